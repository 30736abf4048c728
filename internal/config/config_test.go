package config

import (
	"testing"
	"time"
)

func TestLoadRequiresURLAndToken(t *testing.T) {
	t.Setenv("INVENTREE_URL", "")
	t.Setenv("INVENTREE_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when INVENTREE_URL is missing")
	}

	t.Setenv("INVENTREE_URL", "http://localhost:8000")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when INVENTREE_TOKEN is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INVENTREE_URL", "http://localhost:8000")
	t.Setenv("INVENTREE_TOKEN", "secret")
	t.Setenv("SYNC_WORKERS", "")
	t.Setenv("PARTS_ROOT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sync.Workers != 1 {
		t.Errorf("default workers = %d, want 1", cfg.Sync.Workers)
	}
	if cfg.Sync.CorpusRoot != "data/parts" {
		t.Errorf("default corpus root = %q", cfg.Sync.CorpusRoot)
	}
	if cfg.InvenTree.Timeout != 30*time.Second {
		t.Errorf("default timeout = %v", cfg.InvenTree.Timeout)
	}
	if cfg.History.Enabled {
		t.Error("history ledger must be opt-in")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("INVENTREE_URL", "http://localhost:8000")
	t.Setenv("INVENTREE_TOKEN", "secret")
	t.Setenv("SYNC_WORKERS", "8")
	t.Setenv("SYNC_RETRY_BACKOFF_MS", "250")
	t.Setenv("HISTORY_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sync.Workers != 8 {
		t.Errorf("workers = %d", cfg.Sync.Workers)
	}
	if cfg.Sync.RetryBackoff != 250*time.Millisecond {
		t.Errorf("backoff = %v", cfg.Sync.RetryBackoff)
	}
	if !cfg.History.Enabled {
		t.Error("HISTORY_ENABLED=true not honored")
	}
}
