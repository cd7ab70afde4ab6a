package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireWritesPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termd.pid")
	pf, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer pf.Release()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if string(data) == "" {
		t.Error("expected pid file to contain a pid")
	}
}

func TestAcquireFailsWhenAlreadyLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termd.pid")
	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer first.Release()

	if _, err := Acquire(path); err == nil {
		t.Error("expected second Acquire on same path to fail")
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termd.pid")
	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	second, err := Acquire(path)
	if err != nil {
		t.Fatalf("expected reacquire after release to succeed, got %v", err)
	}
	second.Release()
}

func TestIsLiveReflectsCurrentProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termd.pid")
	pf, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer pf.Release()

	if !IsLive(path) {
		t.Error("expected IsLive to report true for the current process's own pid file")
	}
}

func TestIsLiveFalseForMissingFile(t *testing.T) {
	if IsLive(filepath.Join(t.TempDir(), "nope.pid")) {
		t.Error("expected IsLive to report false for a missing file")
	}
}
