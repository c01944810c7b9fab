package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), Dir, FileName))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GodotPath != "" || cfg.Port != 0 {
		t.Errorf("missing file did not yield zero config: %+v", cfg)
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	path := Path(t.TempDir())
	want := &Config{
		GodotPath:             "/usr/local/bin/godot",
		Port:                  9181,
		CommandTimeoutSeconds: 10,
		DefaultScene:          "res://main.tscn",
		LogLines:              500,
	}

	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}

	raw, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(raw), "# gdpilot configuration") {
		t.Errorf("config file missing header comment:\n%s", raw)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("port: [not a number\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}
