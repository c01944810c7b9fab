// Package project reads and reversibly mutates a Godot project: validating
// the project directory, splicing a single autoload entry into the
// project.godot descriptor, and restoring the descriptor byte-for-byte from
// a snapshot taken before the mutation.
//
// The descriptor is Godot's INI-like dialect. Everything outside the one
// injected stanza must survive untouched, comments and blank lines and
// trailing whitespace included, because teardown promises byte-identical
// restoration. That rules out parse/re-serialize round trips; mutation here
// is pure line splicing.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DescriptorName is the fixed filename of a Godot project descriptor.
const DescriptorName = "project.godot"

const autoloadHeader = "[autoload]"

// Validate checks that root is an existing directory containing a project
// descriptor.
func Validate(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("project directory %s does not exist: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project path %s is not a directory", root)
	}
	if _, err := os.Stat(filepath.Join(root, DescriptorName)); err != nil {
		return fmt.Errorf("%s has no %s: %w", root, DescriptorName, err)
	}
	return nil
}

// Snapshot captures the pre-mutation descriptor so teardown can restore it
// exactly.
type Snapshot struct {
	Root     string
	Path     string
	Original []byte
	mode     os.FileMode
}

// InjectAutoload snapshots the descriptor and writes it back with one added
// autoload entry (`name=value`). An existing [autoload] section gains the
// entry directly under its header; otherwise a new section is appended. On
// write failure the descriptor is left as found.
func InjectAutoload(root, name, value string) (*Snapshot, error) {
	path := filepath.Join(root, DescriptorName)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", DescriptorName, err)
	}
	original, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", DescriptorName, err)
	}

	mutated := spliceAutoload(string(original), name, value)

	if err := os.WriteFile(path, []byte(mutated), info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", DescriptorName, err)
	}

	return &Snapshot{
		Root:     root,
		Path:     path,
		Original: original,
		mode:     info.Mode().Perm(),
	}, nil
}

// spliceAutoload returns the descriptor text with exactly one added line:
// the entry, placed directly after the [autoload] header, or inside a fresh
// [autoload] section appended at the end.
func spliceAutoload(text, name, value string) string {
	entry := name + "=" + value
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if strings.TrimSpace(line) != autoloadHeader {
			continue
		}
		spliced := make([]string, 0, len(lines)+1)
		spliced = append(spliced, lines[:i+1]...)
		spliced = append(spliced, entry)
		spliced = append(spliced, lines[i+1:]...)
		return strings.Join(spliced, "\n")
	}

	// No [autoload] section; append one.
	out := text
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + "\n" + autoloadHeader + "\n" + entry + "\n"
}

// Restore writes the snapshot back over the descriptor, making it
// byte-identical to the pre-mutation content.
func (s *Snapshot) Restore() error {
	mode := s.mode
	if mode == 0 {
		mode = 0o644
	}
	if err := os.WriteFile(s.Path, s.Original, mode); err != nil {
		return fmt.Errorf("failed to restore %s: %w", DescriptorName, err)
	}
	return nil
}
