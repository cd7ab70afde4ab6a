package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromMissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.ListenAddr != Default().ListenAddr {
		t.Errorf("expected default listen addr, got %q", cfg.ListenAddr)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.ListenAddr = "0.0.0.0:9999"
	cfg.ScrollbackLines = 5000
	cfg.PTYLogDefault = true

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.ListenAddr != cfg.ListenAddr {
		t.Errorf("expected listen addr %q, got %q", cfg.ListenAddr, loaded.ListenAddr)
	}
	if loaded.ScrollbackLines != cfg.ScrollbackLines {
		t.Errorf("expected scrollback %d, got %d", cfg.ScrollbackLines, loaded.ScrollbackLines)
	}
	if !loaded.PTYLogDefault {
		t.Error("expected pty log default to round-trip true")
	}
}

func TestLoadFromRejectsEmptyListenAddr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: \"\"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("expected validation error for empty listen_addr")
	}
}
