// Package godot resolves the Godot editor executable on the local machine.
package godot

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Candidate binary names on PATH, most specific first.
var pathCandidates = []string{"godot4", "godot"}

// Well-known install locations checked after PATH, per platform.
func installLocations() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Godot.app/Contents/MacOS/Godot",
			"/Applications/Godot_mono.app/Contents/MacOS/Godot",
		}
	case "windows":
		return []string{
			`C:\Program Files\Godot\Godot.exe`,
			`C:\Program Files (x86)\Godot\Godot.exe`,
		}
	default:
		return []string{
			"/usr/local/bin/godot",
			"/usr/bin/godot",
			"/snap/bin/godot",
		}
	}
}

// Locate resolves the editor executable, in priority order: the explicit
// path (from config or flag), the GDPILOT_GODOT_PATH and GODOT_PATH
// environment variables, PATH lookup, then well-known install locations.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		if err := usable(explicit); err != nil {
			return "", fmt.Errorf("configured godot path %s: %w", explicit, err)
		}
		return explicit, nil
	}

	for _, env := range []string{"GDPILOT_GODOT_PATH", "GODOT_PATH"} {
		if path := os.Getenv(env); path != "" {
			if err := usable(path); err != nil {
				return "", fmt.Errorf("%s=%s: %w", env, path, err)
			}
			return path, nil
		}
	}

	for _, name := range pathCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	for _, path := range installLocations() {
		if usable(path) == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("godot executable not found: install Godot 4, add it to PATH, or set GDPILOT_GODOT_PATH")
}

func usable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory")
	}
	return nil
}
