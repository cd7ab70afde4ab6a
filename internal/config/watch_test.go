package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestWatchReloadsOnConfigChange(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TERMD_CONFIG_DIR", dir)

	cfg := Default()
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	changes := make(chan *Config, 4)
	stop, err := Watch(func(c *Config) { changes <- c }, func(err error) { t.Logf("watch error: %v", err) })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	cfg.ListenAddr = "0.0.0.0:1234"
	if err := cfg.SaveTo(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	select {
	case got := <-changes:
		if got.ListenAddr != "0.0.0.0:1234" {
			t.Errorf("expected reloaded listen addr, got %q", got.ListenAddr)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected Watch to report the config change")
	}
}
