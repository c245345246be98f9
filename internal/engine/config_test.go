package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewEngineConfigDefaults(t *testing.T) {
	cfg := NewEngineConfig("/tmp/does-not-matter.vfs")
	if cfg.BackingFilePath != "/tmp/does-not-matter.vfs" {
		t.Fatalf("unexpected BackingFilePath: %s", cfg.BackingFilePath)
	}
	if cfg.DefragEfficiencyThreshold != 0.4 {
		t.Fatalf("expected default threshold 0.4, got %v", cfg.DefragEfficiencyThreshold)
	}
	if cfg.WatchBackingFile {
		t.Fatal("expected WatchBackingFile to default to false")
	}
}

func TestEngineConfigLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	contents := `{"BackingFilePath":"/srv/data.vfs","DefragEfficiencyThreshold":0.25,"WatchBackingFile":true}`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := NewEngineConfig("")
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.BackingFilePath != "/srv/data.vfs" {
		t.Fatalf("unexpected BackingFilePath: %s", cfg.BackingFilePath)
	}
	if cfg.DefragEfficiencyThreshold != 0.25 {
		t.Fatalf("unexpected threshold: %v", cfg.DefragEfficiencyThreshold)
	}
	if !cfg.WatchBackingFile {
		t.Fatal("expected WatchBackingFile to be true after load")
	}
}

func TestEngineConfigLoadFromMissingFile(t *testing.T) {
	cfg := NewEngineConfig("")
	if err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error loading a missing config file")
	}
}
