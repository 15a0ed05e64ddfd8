// Package metadata reads and writes the per-key metadata.yaml file that
// tracks a scene through the pipeline. The file is the pipeline's persistent
// state: author and week decide archive destinations, reconstruction_status
// gates archival, and synced records registry pushes.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the metadata file stored inside each key directory.
const FileName = "metadata.yaml"

// Recognized field names. Unknown fields are preserved across merges.
const (
	FieldAuthor               = "author"
	FieldStatus               = "status"
	FieldWeek                 = "week"
	FieldReconstructionStatus = "reconstruction_status"
	FieldSynced               = "synced"
)

// StatusPending is the only status value the pipeline currently writes.
const StatusPending = "pending"

// Record is one key's metadata mapping. Field values keep whatever YAML type
// they were written with; the typed accessors below normalize on read.
type Record map[string]any

// Path returns the metadata file location for a key directory.
func Path(keyDir string) string {
	return filepath.Join(keyDir, FileName)
}

// Load reads the metadata record from a key directory. A missing file yields
// an empty record; a file that is not a YAML mapping is an error.
func Load(keyDir string) (Record, error) {
	data, err := os.ReadFile(Path(keyDir))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, nil
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var record Record
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	if record == nil {
		record = Record{}
	}
	return record, nil
}

// Exists reports whether a key directory carries a metadata file.
func Exists(keyDir string) bool {
	info, err := os.Stat(Path(keyDir))
	return err == nil && !info.IsDir()
}

// Save writes the record back to the key directory, keeping insertion order
// out of it: yaml.v3 marshals maps with sorted keys, which keeps the file
// stable and human-diffable.
func (r Record) Save(keyDir string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(Path(keyDir), data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Merge applies fields into the record, last write wins per field. Existing
// fields not named in fields are preserved.
func (r Record) Merge(fields map[string]any) {
	for k, v := range fields {
		r[k] = v
	}
}

// MergeAndSave loads the record for keyDir, merges fields, and persists it.
func MergeAndSave(keyDir string, fields map[string]any) (Record, error) {
	record, err := Load(keyDir)
	if err != nil {
		return nil, err
	}
	record.Merge(fields)
	if err := record.Save(keyDir); err != nil {
		return nil, err
	}
	return record, nil
}

func (r Record) stringField(name string) string {
	if v, ok := r[name].(string); ok {
		return v
	}
	return ""
}

// Author returns the author field, empty when absent or not a string.
func (r Record) Author() string { return r.stringField(FieldAuthor) }

// Week returns the week field, empty when absent or not a string.
func (r Record) Week() string { return r.stringField(FieldWeek) }

// Synced reports whether the record was already pushed to the registry.
func (r Record) Synced() bool {
	v, ok := r[FieldSynced].(bool)
	return ok && v
}

// ReconstructionSucceeded reports whether reconstruction_status marks
// success: boolean true, or the string "success" ignoring case and
// surrounding whitespace. Anything else, including absence, is not success.
func (r Record) ReconstructionSucceeded() bool {
	switch v := r[FieldReconstructionStatus].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "success")
	default:
		return false
	}
}

// SyncFields returns a copy of the record without the synced marker, the
// shape pushed to the registry.
func (r Record) SyncFields() map[string]any {
	fields := make(map[string]any, len(r))
	for k, v := range r {
		if k == FieldSynced {
			continue
		}
		fields[k] = v
	}
	return fields
}

// HasSuccessfulReconstruction loads the record for keyDir and evaluates the
// success predicate. Missing or unreadable metadata is not success.
func HasSuccessfulReconstruction(keyDir string) bool {
	record, err := Load(keyDir)
	if err != nil {
		return false
	}
	return record.ReconstructionSucceeded()
}
