// Package scene edits the serialized per-key scene payload: a CBOR mapping
// of named arrays and scalars (frames, depths, camera parameters, mask).
// Fields stay opaque raw CBOR so projection and single-field copies never
// re-encode data they do not understand; only image fields get typed decodes.
package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

const (
	// DirName is the subdirectory holding the payload inside a key directory.
	DirName = "scene"
	// FileName is the payload file name.
	FileName = "scene.cbor"
)

// ProjectionFields is the allow-list of payload fields carried when a scene
// is pulled back from the archive into staging.
var ProjectionFields = []string{
	"images",
	"depths",
	"intrinsics",
	"extrinsics",
	"n_frames",
	"height",
	"width",
	"mask",
}

// ErrFieldMissing marks operations on a payload field that is not present.
var ErrFieldMissing = errors.New("scene: field not present")

// Payload is the decoded top-level mapping. Values are raw CBOR.
type Payload map[string]cbor.RawMessage

// PayloadPath returns the payload location inside a key directory.
func PayloadPath(keyDir string) string {
	return filepath.Join(keyDir, DirName, FileName)
}

// Load reads and decodes a payload file.
func Load(path string) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload Payload
	if err := cbor.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", path, err)
	}
	if payload == nil {
		payload = Payload{}
	}
	return payload, nil
}

// Save encodes and writes the payload, creating parent directories.
func (p Payload) Save(path string) error {
	data, err := cbor.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Fields returns the sorted field names present in the payload.
func (p Payload) Fields() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the payload carries the named field.
func (p Payload) Has(field string) bool {
	_, ok := p[field]
	return ok
}

// Project copies the named fields into a new payload and reports which of
// them were absent. Missing fields are a warning for the caller, not an
// error: payloads are never guaranteed complete.
func (p Payload) Project(fields []string) (Payload, []string) {
	out := make(Payload, len(fields))
	var missing []string
	for _, field := range fields {
		if raw, ok := p[field]; ok {
			out[field] = raw
		} else {
			missing = append(missing, field)
		}
	}
	return out, missing
}

// Decode unmarshals one field into value. Returns ErrFieldMissing when the
// payload does not carry the field.
func (p Payload) Decode(field string, value any) error {
	raw, ok := p[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFieldMissing, field)
	}
	if err := cbor.Unmarshal(raw, value); err != nil {
		return fmt.Errorf("decode field %s: %w", field, err)
	}
	return nil
}

// CopyField merges one field from the payload at srcPath into the payload at
// dstPath. Both payload files must already exist; the destination mapping is
// otherwise left untouched. Returns whether the destination already carried
// the field (it is overwritten).
func CopyField(srcPath, dstPath, field string) (bool, error) {
	src, err := Load(srcPath)
	if err != nil {
		return false, err
	}
	raw, ok := src[field]
	if !ok {
		return false, fmt.Errorf("%w: %s in %s", ErrFieldMissing, field, srcPath)
	}

	dst, err := Load(dstPath)
	if err != nil {
		return false, err
	}
	_, overwrote := dst[field]
	dst[field] = raw
	if err := dst.Save(dstPath); err != nil {
		return false, err
	}
	return overwrote, nil
}
