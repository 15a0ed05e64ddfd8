package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sceneflow/internal/metadata"
	"sceneflow/internal/services"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "registry", "metadata.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPushIfAbsent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	created, err := store.PushIfAbsent(ctx, "scene_a", map[string]any{"author": "esteban", "week": "2026_week07"})
	if err != nil {
		t.Fatalf("first push: %v", err)
	}
	if !created {
		t.Fatal("first push should create the record")
	}

	created, err = store.PushIfAbsent(ctx, "scene_a", map[string]any{"author": "someone_else"})
	if err != nil {
		t.Fatalf("second push: %v", err)
	}
	if created {
		t.Fatal("second push must not report creation")
	}

	fields, ok, err := store.Get(ctx, "scene_a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("record should exist")
	}
	if fields["author"] != "esteban" {
		t.Fatalf("existing record was overwritten: %v", fields)
	}
}

func TestGetMissing(t *testing.T) {
	store := openStore(t)
	if _, ok, err := store.Get(context.Background(), "absent"); err != nil || ok {
		t.Fatalf("missing record: ok=%v err=%v", ok, err)
	}
}

func TestKeysSorted(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, key := range []string{"scene_c", "scene_a", "scene_b"} {
		if _, err := store.PushIfAbsent(ctx, key, map[string]any{}); err != nil {
			t.Fatalf("push %s: %v", key, err)
		}
	}
	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	want := []string{"scene_a", "scene_b", "scene_c"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}

func seedMetadata(t *testing.T, rec metadata.Record) string {
	t.Helper()
	keyDir := filepath.Join(t.TempDir(), "scene_a")
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := rec.Save(keyDir); err != nil {
		t.Fatalf("save metadata: %v", err)
	}
	return keyDir
}

func TestSyncKeyCreatesAndMarks(t *testing.T) {
	store := openStore(t)
	keyDir := seedMetadata(t, metadata.Record{
		metadata.FieldAuthor: "esteban",
		metadata.FieldStatus: metadata.StatusPending,
		metadata.FieldWeek:   "2026_week07",
	})

	res, err := SyncKey(context.Background(), store, keyDir, nil)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !res.Created || res.AlreadyLocal {
		t.Fatalf("unexpected result %+v", res)
	}

	fields, ok, err := store.Get(context.Background(), "scene_a")
	if err != nil || !ok {
		t.Fatalf("remote record: ok=%v err=%v", ok, err)
	}
	if _, present := fields[metadata.FieldSynced]; present {
		t.Fatal("synced marker must not be pushed remotely")
	}
	if fields[metadata.FieldAuthor] != "esteban" {
		t.Fatalf("remote fields = %v", fields)
	}

	rec, err := metadata.Load(keyDir)
	if err != nil {
		t.Fatalf("reload metadata: %v", err)
	}
	if !rec.Synced() {
		t.Fatal("local synced marker should be set")
	}
}

func TestSyncKeySkipsWhenLocallySynced(t *testing.T) {
	store := openStore(t)
	keyDir := seedMetadata(t, metadata.Record{
		metadata.FieldAuthor: "esteban",
		metadata.FieldSynced: true,
	})

	res, err := SyncKey(context.Background(), store, keyDir, nil)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !res.AlreadyLocal {
		t.Fatalf("expected local skip, got %+v", res)
	}
	if _, ok, _ := store.Get(context.Background(), "scene_a"); ok {
		t.Fatal("locally synced key must not touch the store")
	}
}

func TestSyncKeyMarksWhenRemotePresent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.PushIfAbsent(ctx, "scene_a", map[string]any{"author": "prior"}); err != nil {
		t.Fatalf("seed remote: %v", err)
	}
	keyDir := seedMetadata(t, metadata.Record{metadata.FieldAuthor: "esteban"})

	res, err := SyncKey(ctx, store, keyDir, nil)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Created {
		t.Fatal("existing remote record must not report creation")
	}

	rec, err := metadata.Load(keyDir)
	if err != nil {
		t.Fatalf("reload metadata: %v", err)
	}
	if !rec.Synced() {
		t.Fatal("already-present outcome still sets the local marker")
	}

	fields, _, err := store.Get(ctx, "scene_a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fields["author"] != "prior" {
		t.Fatalf("remote record changed: %v", fields)
	}
}

func TestSyncKeyMissingMetadata(t *testing.T) {
	store := openStore(t)
	keyDir := filepath.Join(t.TempDir(), "scene_a")
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	_, err := SyncKey(context.Background(), store, keyDir, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
