package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type tuning struct {
	MinSegments int `toml:"min_segments"`
}

func TestWatcherDeliversFreshSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("min_segments = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := func(p string) (tuning, error) {
		var out tuning
		data, err := os.ReadFile(p)
		if err != nil {
			return out, err
		}
		return out, toml.Unmarshal(data, &out)
	}

	w := NewWatcher(path, loader, slog.Default())
	w.SetDebounce(50 * time.Millisecond)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	got := make(chan tuning, 1)
	w.OnReload(func(snap tuning) {
		select {
		case got <- snap:
		default:
		}
	})

	if err := os.WriteFile(path, []byte("min_segments = 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case snap := <-got:
		if snap.MinSegments != 4 {
			t.Errorf("reloaded MinSegments = %d, want 4", snap.MinSegments)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherStartMissingFile(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "absent.toml"),
		func(string) (tuning, error) { return tuning{}, nil }, slog.Default())
	if err := w.Start(); err == nil {
		w.Stop()
		t.Error("expected error watching a missing file")
	}
}
