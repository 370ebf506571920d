package runlock_test

import (
	"errors"
	"path/filepath"
	"testing"

	"rommate/internal/runlock"
)

func TestAcquireIsExclusivePerRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")

	first, err := runlock.Acquire(dir, "/roms/snes")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := runlock.Acquire(dir, "/roms/snes/"); !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked for same root, got %v", err)
	}

	other, err := runlock.Acquire(dir, "/roms/nes")
	if err != nil {
		t.Fatalf("Acquire other root: %v", err)
	}
	defer other.Release()

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	again, err := runlock.Acquire(dir, "/roms/snes")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = again.Release()
}

func TestPathForIsStable(t *testing.T) {
	a := runlock.PathFor("/locks", "/roms/snes")
	b := runlock.PathFor("/locks", "/roms/snes/")
	if a != b {
		t.Fatalf("expected cleaned roots to share a lock: %s vs %s", a, b)
	}
	if filepath.Dir(a) != "/locks" || filepath.Ext(a) != ".lock" {
		t.Fatalf("unexpected lock path %s", a)
	}
}
