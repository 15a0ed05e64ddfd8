package scene

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func mustRaw(t *testing.T, value any) cbor.RawMessage {
	t.Helper()
	raw, err := cbor.Marshal(value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestPayloadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DirName, FileName)
	payload := Payload{
		"n_frames": mustRaw(t, 3),
		"height":   mustRaw(t, 10),
	}
	if err := payload.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var frames int
	if err := loaded.Decode("n_frames", &frames); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frames != 3 {
		t.Fatalf("n_frames = %d", frames)
	}
	if got := loaded.Fields(); !reflect.DeepEqual(got, []string{"height", "n_frames"}) {
		t.Fatalf("fields = %v", got)
	}
}

func TestProjectReportsMissingFields(t *testing.T) {
	payload := Payload{
		"images": mustRaw(t, FrameStack{Count: 1, Height: 1, Width: 1, Pixels: []byte{1, 2, 3}}),
		"mask":   mustRaw(t, []byte{1}),
		"extra":  mustRaw(t, "dropped"),
	}

	projected, missing := payload.Project([]string{"images", "mask", "depths"})
	if projected.Has("extra") {
		t.Fatal("projection must drop fields outside the allow-list")
	}
	if !projected.Has("images") || !projected.Has("mask") {
		t.Fatalf("projection lost fields: %v", projected.Fields())
	}
	if !reflect.DeepEqual(missing, []string{"depths"}) {
		t.Fatalf("missing = %v", missing)
	}
}

func TestDecodeMissingField(t *testing.T) {
	payload := Payload{}
	var v int
	if err := payload.Decode("n_frames", &v); !errors.Is(err, ErrFieldMissing) {
		t.Fatalf("expected ErrFieldMissing, got %v", err)
	}
}

func TestCopyFieldMergesIntoDestination(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src", FileName)
	dstPath := filepath.Join(dir, "dst", FileName)

	src := Payload{"mask": mustRaw(t, []byte{9, 9})}
	if err := src.Save(srcPath); err != nil {
		t.Fatalf("save src: %v", err)
	}
	dst := Payload{"height": mustRaw(t, 7)}
	if err := dst.Save(dstPath); err != nil {
		t.Fatalf("save dst: %v", err)
	}

	overwrote, err := CopyField(srcPath, dstPath, "mask")
	if err != nil {
		t.Fatalf("copy field: %v", err)
	}
	if overwrote {
		t.Fatal("destination did not previously carry mask")
	}

	merged, err := Load(dstPath)
	if err != nil {
		t.Fatalf("reload dst: %v", err)
	}
	var height int
	if err := merged.Decode("height", &height); err != nil || height != 7 {
		t.Fatalf("merge clobbered existing field: %v %d", err, height)
	}
	var mask []byte
	if err := merged.Decode("mask", &mask); err != nil || len(mask) != 2 {
		t.Fatalf("mask not copied: %v %v", err, mask)
	}

	// Second copy reports the overwrite.
	overwrote, err = CopyField(srcPath, dstPath, "mask")
	if err != nil {
		t.Fatalf("second copy: %v", err)
	}
	if !overwrote {
		t.Fatal("second copy should report overwrite")
	}
}

func TestCopyFieldRequiresBothPayloads(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src", FileName)
	if err := (Payload{"mask": mustRaw(t, []byte{1})}).Save(srcPath); err != nil {
		t.Fatalf("save src: %v", err)
	}

	if _, err := CopyField(srcPath, filepath.Join(dir, "dst", FileName), "mask"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing destination error, got %v", err)
	}
	if _, err := CopyField(filepath.Join(dir, "absent", FileName), srcPath, "mask"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing source error, got %v", err)
	}
}

func TestCopyFieldMissingSourceField(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src", FileName)
	dstPath := filepath.Join(dir, "dst", FileName)
	if err := (Payload{}).Save(srcPath); err != nil {
		t.Fatalf("save src: %v", err)
	}
	if err := (Payload{}).Save(dstPath); err != nil {
		t.Fatalf("save dst: %v", err)
	}
	if _, err := CopyField(srcPath, dstPath, "mask"); !errors.Is(err, ErrFieldMissing) {
		t.Fatalf("expected ErrFieldMissing, got %v", err)
	}
}
