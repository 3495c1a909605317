package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsSearchSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("search:\n  user_top_k: 50\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	rt := NewRuntime(SearchConfig{UserTopK: 50})
	w := NewWatcher(path, rt, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("search:\n  user_top_k: 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if rt.Search().UserTopK == 7 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("search settings not reloaded: top_k=%d", rt.Search().UserTopK)
}
