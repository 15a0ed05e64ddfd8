package mover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sceneflow/internal/services"
)

func seedKeyDir(t *testing.T, root, key string) string {
	t.Helper()
	dir := filepath.Join(root, key)
	if err := os.MkdirAll(filepath.Join(dir, "scene"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "scene", "scene.cbor"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	return dir
}

func TestMoveRelocatesDirectory(t *testing.T) {
	base := t.TempDir()
	src := seedKeyDir(t, filepath.Join(base, "outputs"), "scene_a")
	dst := filepath.Join(base, "staging", "scene_a")

	if err := Move(context.Background(), src, dst, Options{}, nil); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("source should be gone")
	}
	if _, err := os.Stat(filepath.Join(dst, "scene", "scene.cbor")); err != nil {
		t.Fatalf("destination content missing: %v", err)
	}
}

func TestMoveMissingSource(t *testing.T) {
	base := t.TempDir()
	err := Move(context.Background(), filepath.Join(base, "absent"), filepath.Join(base, "dst"), Options{}, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMoveIdempotentWithoutOverwrite(t *testing.T) {
	base := t.TempDir()
	src := seedKeyDir(t, filepath.Join(base, "outputs"), "scene_a")
	dst := filepath.Join(base, "staging", "scene_a")

	if err := Move(context.Background(), src, dst, Options{}, nil); err != nil {
		t.Fatalf("first move: %v", err)
	}
	// Simulate a rerun: a new source appears while the destination remains.
	src = seedKeyDir(t, filepath.Join(base, "outputs"), "scene_a")
	if err := os.WriteFile(filepath.Join(src, "marker"), []byte("new"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}

	err := Move(context.Background(), src, dst, Options{}, nil)
	if !errors.Is(err, services.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "marker")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("skip must not mutate the destination")
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("skip must not consume the source")
	}
}

func TestMoveOverwriteReplacesDestination(t *testing.T) {
	base := t.TempDir()
	src := seedKeyDir(t, filepath.Join(base, "outputs"), "scene_a")
	if err := os.WriteFile(filepath.Join(src, "marker"), []byte("new"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	dst := seedKeyDir(t, filepath.Join(base, "staging"), "scene_a")
	if err := os.WriteFile(filepath.Join(dst, "stale"), []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}

	if err := Move(context.Background(), src, dst, Options{Overwrite: true}, nil); err != nil {
		t.Fatalf("overwrite move: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "stale")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("overwrite must replace the old destination")
	}
	if _, err := os.Stat(filepath.Join(dst, "marker")); err != nil {
		t.Fatalf("new content missing: %v", err)
	}
}

func TestMoveRunsOwnerFunc(t *testing.T) {
	base := t.TempDir()
	src := seedKeyDir(t, filepath.Join(base, "outputs"), "scene_a")
	dst := filepath.Join(base, "staging", "scene_a")

	var owned string
	opts := Options{ChangeOwner: func(_ context.Context, path string) error {
		owned = path
		return nil
	}}
	if err := Move(context.Background(), src, dst, opts, nil); err != nil {
		t.Fatalf("move: %v", err)
	}
	if owned != dst {
		t.Fatalf("owner func ran against %q, want %q", owned, dst)
	}
}

func TestMoveOwnerFailurePropagates(t *testing.T) {
	base := t.TempDir()
	src := seedKeyDir(t, filepath.Join(base, "outputs"), "scene_a")
	dst := filepath.Join(base, "staging", "scene_a")

	sentinel := errors.New("chown refused")
	opts := Options{ChangeOwner: func(context.Context, string) error { return sentinel }}
	if err := Move(context.Background(), src, dst, opts, nil); !errors.Is(err, sentinel) {
		t.Fatalf("expected owner error, got %v", err)
	}
}

func TestMoveRejectsFileSource(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "file")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Move(context.Background(), src, filepath.Join(base, "dst"), Options{}, nil); err == nil {
		t.Fatal("expected error for non-directory source")
	}
}

func TestCopyTreePreservesLayout(t *testing.T) {
	base := t.TempDir()
	src := seedKeyDir(t, filepath.Join(base, "outputs"), "scene_a")
	dst := filepath.Join(base, "copy", "scene_a")

	if err := copyTree(context.Background(), src, dst); err != nil {
		t.Fatalf("copy tree: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "scene", "scene.cbor"))
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("copy content = %q", data)
	}
}
