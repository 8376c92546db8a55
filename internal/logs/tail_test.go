package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"polyglot/internal/logs"
)

func TestLastReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polyglot.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\npartial"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("expected offset before partial line, got %d", offset)
	}

	all, _, err := logs.Last(path, -1)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all three complete lines, got %#v (%v)", all, err)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "missing.log"), 5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("expected empty result, got %#v %d %v", lines, offset, err)
	}
}

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) add(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	return nil
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func waitFor(t *testing.T, c *collector, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if lines := c.snapshot(); len(lines) >= n {
			return lines
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, have %#v", n, c.snapshot())
	return nil
}

func TestFollowPicksUpAppendsAndRestarts(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "polyglot-1.log")
	if err := os.WriteFile(first, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	current := logs.CurrentPath(dir)
	if err := os.Symlink(first, current); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, offset, err := logs.Last(current, 0)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := &collector{}
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, current, offset, 20*time.Millisecond, got.add)
	}()

	f, err := os.OpenFile(first, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	_, _ = f.WriteString("later\n")
	_ = f.Close()
	waitFor(t, got, 1)

	second := filepath.Join(dir, "polyglot-2.log")
	if err := os.WriteFile(second, []byte("fresh run\n"), 0o644); err != nil {
		t.Fatalf("write second log: %v", err)
	}
	if err := os.Remove(current); err != nil {
		t.Fatalf("remove pointer: %v", err)
	}
	if err := os.Symlink(second, current); err != nil {
		t.Fatalf("relink pointer: %v", err)
	}

	lines := waitFor(t, got, 2)
	if lines[0] != "later" || lines[1] != "fresh run" {
		t.Fatalf("unexpected followed lines: %#v", lines)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Follow: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not stop after cancel")
	}
}
