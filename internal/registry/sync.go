package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"sceneflow/internal/logging"
	"sceneflow/internal/metadata"
	"sceneflow/internal/services"
)

// SyncResult describes what a sync attempt did for one key.
type SyncResult struct {
	// Created is true when this run inserted the remote record.
	Created bool
	// AlreadyLocal is true when the local synced marker made the store
	// call unnecessary.
	AlreadyLocal bool
}

// SyncKey pushes one staged key's metadata into the store and persists the
// local synced marker. The marker is written whether the push created the
// record or found it already present, so across reruns each key performs at
// most one logical remote write.
func SyncKey(ctx context.Context, store *Store, keyDir string, logger *slog.Logger) (SyncResult, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	key := filepath.Base(keyDir)

	if !metadata.Exists(keyDir) {
		return SyncResult{}, fmt.Errorf("%w: no metadata for key %s", services.ErrNotFound, key)
	}
	record, err := metadata.Load(keyDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return SyncResult{}, fmt.Errorf("%w: no metadata for key %s", services.ErrNotFound, key)
		}
		return SyncResult{}, fmt.Errorf("load metadata: %w", err)
	}

	if record.Synced() {
		logger.Debug("key already synced locally", logging.String(logging.FieldKey, key))
		return SyncResult{AlreadyLocal: true}, nil
	}

	created, err := store.PushIfAbsent(ctx, key, record.SyncFields())
	if err != nil {
		return SyncResult{}, err
	}
	if created {
		logger.Info("registry record created", logging.String(logging.FieldKey, key))
	} else {
		logger.Info("registry record already present", logging.String(logging.FieldKey, key))
	}

	if _, err := metadata.MergeAndSave(keyDir, map[string]any{metadata.FieldSynced: true}); err != nil {
		return SyncResult{}, fmt.Errorf("persist synced marker: %w", err)
	}
	return SyncResult{Created: created}, nil
}
