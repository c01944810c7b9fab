package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeProject(t *testing.T, descriptor string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, DescriptorName), []byte(descriptor), 0o644); err != nil {
		t.Fatalf("failed to seed descriptor: %v", err)
	}
	return root
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr string
	}{
		{
			name:  "valid project",
			setup: func(t *testing.T) string { return writeProject(t, "config_version=5\n") },
		},
		{
			name:    "missing directory",
			setup:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") },
			wantErr: "does not exist",
		},
		{
			name: "path is a file",
			setup: func(t *testing.T) string {
				f := filepath.Join(t.TempDir(), "file")
				os.WriteFile(f, []byte("x"), 0o644)
				return f
			},
			wantErr: "not a directory",
		},
		{
			name:    "directory without descriptor",
			setup:   func(t *testing.T) string { return t.TempDir() },
			wantErr: "has no project.godot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.setup(t))
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSpliceAutoload(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no autoload section appends one",
			in:   "[application]\nconfig/name=\"X\"\n",
			want: "[application]\nconfig/name=\"X\"\n\n[autoload]\nListener=\"*res://l.gd\"\n",
		},
		{
			name: "existing section gains entry under header",
			in:   "[autoload]\nOther=\"*res://other.gd\"\n",
			want: "[autoload]\nListener=\"*res://l.gd\"\nOther=\"*res://other.gd\"\n",
		},
		{
			name: "section header with surrounding sections",
			in:   "[application]\nname=\"X\"\n\n[autoload]\nA=\"*res://a.gd\"\n\n[rendering]\nx=1\n",
			want: "[application]\nname=\"X\"\n\n[autoload]\nListener=\"*res://l.gd\"\nA=\"*res://a.gd\"\n\n[rendering]\nx=1\n",
		},
		{
			name: "missing trailing newline handled",
			in:   "[application]\nname=\"X\"",
			want: "[application]\nname=\"X\"\n\n[autoload]\nListener=\"*res://l.gd\"\n",
		},
		{
			name: "empty descriptor",
			in:   "",
			want: "\n[autoload]\nListener=\"*res://l.gd\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := spliceAutoload(tt.in, "Listener", `"*res://l.gd"`)
			if got != tt.want {
				t.Errorf("spliceAutoload:\ngot:  %q\nwant: %q", got, tt.want)
			}
		})
	}
}

// TestInjectAndRestoreRoundTrip is the core reversibility property: after
// Restore the descriptor is byte-identical to the original.
func TestInjectAndRestoreRoundTrip(t *testing.T) {
	const original = "[application]\nconfig/name=\"X\"\n"
	root := writeProject(t, original)

	snap, err := InjectAutoload(root, "GdPilotListener", `"*res://gdpilot_listener.gd"`)
	if err != nil {
		t.Fatalf("InjectAutoload: %v", err)
	}

	mutated, err := os.ReadFile(snap.Path)
	if err != nil {
		t.Fatalf("read mutated: %v", err)
	}
	if !strings.Contains(string(mutated), "[autoload]") {
		t.Errorf("mutated descriptor has no [autoload] section:\n%s", mutated)
	}
	if !strings.Contains(string(mutated), `GdPilotListener="*res://gdpilot_listener.gd"`) {
		t.Errorf("mutated descriptor lacks listener entry:\n%s", mutated)
	}
	if string(snap.Original) != original {
		t.Errorf("snapshot captured %q, want %q", snap.Original, original)
	}

	if err := snap.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	restored, err := os.ReadFile(snap.Path)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if string(restored) != original {
		t.Errorf("restore not byte-identical:\ngot:  %q\nwant: %q", restored, original)
	}
}

func TestInjectAutoloadMissingDescriptor(t *testing.T) {
	if _, err := InjectAutoload(t.TempDir(), "L", `"*res://l.gd"`); err == nil {
		t.Error("expected error for missing descriptor")
	}
}
