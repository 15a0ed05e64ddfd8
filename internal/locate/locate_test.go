package locate

import (
	"os"
	"path/filepath"
	"testing"
)

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	path := filepath.Join(parts...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	return path
}

func TestFindMissingRootIsNotFound(t *testing.T) {
	match, err := Find(filepath.Join(t.TempDir(), "absent"), "scene_a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if match.Kind != NotFound {
		t.Fatalf("kind = %v, want NotFound", match.Kind)
	}
}

func TestFindZeroMatches(t *testing.T) {
	root := t.TempDir()
	mkdir(t, root, "week_1", "esteban", "scene_other")

	match, err := Find(root, "scene_a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if match.Kind != NotFound || len(match.Paths) != 0 {
		t.Fatalf("expected NotFound, got %+v", match)
	}
}

func TestFindSingleMatch(t *testing.T) {
	root := t.TempDir()
	want := mkdir(t, root, "week_2", "jun1", "scene_a")

	match, err := Find(root, "scene_a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if match.Kind != Found {
		t.Fatalf("kind = %v, want Found", match.Kind)
	}
	if match.Path() != want {
		t.Fatalf("path = %q, want %q", match.Path(), want)
	}
	if match.Week() != "week_2" || match.Author() != "jun1" {
		t.Fatalf("week/author = %q/%q", match.Week(), match.Author())
	}
}

func TestFindAmbiguousReturnsAllMatches(t *testing.T) {
	root := t.TempDir()
	first := mkdir(t, root, "week_1", "esteban", "scene_a")
	second := mkdir(t, root, "week_2", "div", "scene_a")

	match, err := Find(root, "scene_a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if match.Kind != Ambiguous {
		t.Fatalf("kind = %v, want Ambiguous", match.Kind)
	}
	if len(match.Paths) != 2 {
		t.Fatalf("paths = %v, want both matches", match.Paths)
	}
	found := map[string]bool{}
	for _, p := range match.Paths {
		found[p] = true
	}
	if !found[first] || !found[second] {
		t.Fatalf("missing match in %v", match.Paths)
	}
	if match.Path() != "" {
		t.Fatal("ambiguous match must never auto-select a path")
	}
}

func TestFindIgnoresFiles(t *testing.T) {
	root := t.TempDir()
	mkdir(t, root, "week_1", "esteban")
	// A file with the key's name must not count as a match.
	if err := os.WriteFile(filepath.Join(root, "week_1", "esteban", "scene_a"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	// Stray files at the week level are skipped.
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	match, err := Find(root, "scene_a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if match.Kind != NotFound {
		t.Fatalf("kind = %v, want NotFound", match.Kind)
	}
}
