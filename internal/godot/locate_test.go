package godot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "godot")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake binary: %v", err)
	}
	return path
}

func TestLocateExplicitPath(t *testing.T) {
	bin := fakeBinary(t)
	got, err := Locate(bin)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got != bin {
		t.Errorf("Locate = %q, want %q", got, bin)
	}
}

func TestLocateExplicitPathMissing(t *testing.T) {
	_, err := Locate(filepath.Join(t.TempDir(), "nope"))
	if err == nil || !strings.Contains(err.Error(), "configured godot path") {
		t.Errorf("error = %v, want configured-path failure", err)
	}
}

func TestLocateExplicitPathIsDirectory(t *testing.T) {
	_, err := Locate(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "is a directory") {
		t.Errorf("error = %v, want directory rejection", err)
	}
}

func TestLocateEnvOverride(t *testing.T) {
	bin := fakeBinary(t)
	t.Setenv("GDPILOT_GODOT_PATH", bin)

	got, err := Locate("")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got != bin {
		t.Errorf("Locate = %q, want %q", got, bin)
	}
}

func TestLocateEnvOverrideBroken(t *testing.T) {
	t.Setenv("GDPILOT_GODOT_PATH", filepath.Join(t.TempDir(), "nope"))

	_, err := Locate("")
	if err == nil || !strings.Contains(err.Error(), "GDPILOT_GODOT_PATH") {
		t.Errorf("error = %v, want env var named in failure", err)
	}
}

func TestLocateNotFoundHint(t *testing.T) {
	t.Setenv("GDPILOT_GODOT_PATH", "")
	t.Setenv("GODOT_PATH", "")
	t.Setenv("PATH", t.TempDir())

	_, err := Locate("")
	if err == nil {
		t.Skip("a well-known godot install exists on this machine")
	}
	if !strings.Contains(err.Error(), "GDPILOT_GODOT_PATH") {
		t.Errorf("not-found error lacks remediation hint: %v", err)
	}
}
