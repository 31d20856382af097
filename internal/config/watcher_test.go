package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/readtowatch/internal/config"
)

func writeConfig(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

type change struct {
	old, new *config.Config
	diff     config.ConfigDiff
}

func startWatcher(t *testing.T, path string) (*config.Watcher, <-chan change) {
	t.Helper()
	changes := make(chan change, 4)
	w, err := config.NewWatcher(path, func(old, new *config.Config, d config.ConfigDiff) {
		changes <- change{old, new, d}
	}, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w, changes
}

func TestWatcher_Reload(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "readtowatch.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "challenge:\n  level: 1\n", base)

	w, changes := startWatcher(t, path)
	if w.Current().Challenge.Level != 1 {
		t.Fatalf("initial level = %d", w.Current().Challenge.Level)
	}

	writeConfig(t, path, "challenge:\n  level: 3\n", base.Add(time.Minute))

	select {
	case c := <-changes:
		if c.old.Challenge.Level != 1 || c.new.Challenge.Level != 3 || !c.diff.ChallengeChanged {
			t.Errorf("change = %d -> %d, diff %+v", c.old.Challenge.Level, c.new.Challenge.Level, c.diff)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload observed")
	}
	if w.Current().Challenge.Level != 3 {
		t.Errorf("Current level = %d, want 3", w.Current().Challenge.Level)
	}
}

func TestWatcher_InvalidKeepsPrevious(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "readtowatch.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "gate:\n  daily_screen_limit: 30\n", base)

	w, changes := startWatcher(t, path)
	writeConfig(t, path, "server:\n  log_level: bananas\n", base.Add(time.Minute))

	select {
	case <-changes:
		t.Fatal("invalid config was applied")
	case <-time.After(100 * time.Millisecond):
	}
	if w.Current().Gate.DailyScreenLimit != 30 {
		t.Errorf("limit = %d, want 30", w.Current().Gate.DailyScreenLimit)
	}
}

func TestWatcher_TouchWithoutChange(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "readtowatch.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "challenge:\n  level: 2\n", base)

	_, changes := startWatcher(t, path)
	writeConfig(t, path, "challenge:\n  level: 2\n", base.Add(time.Minute))

	select {
	case <-changes:
		t.Fatal("identical content reported as change")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNewWatcher_InvalidInitial(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "readtowatch.yaml")
	writeConfig(t, path, "server:\n  log_level: bananas\n", time.Now())
	if _, err := config.NewWatcher(path, nil); err == nil {
		t.Error("expected error for invalid initial config")
	}
}
