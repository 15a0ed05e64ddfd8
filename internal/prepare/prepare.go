// Package prepare trims a staged key directory down to the artifact set that
// gets archived: the simulation outputs, the scene payload, a consolidated
// reconstruction tree, and first-frame source images.
package prepare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sceneflow/internal/logging"
	"sceneflow/internal/scene"
	"sceneflow/internal/services"
)

const (
	reconstructionDir = "reconstruction"
	objectsDir        = "objects"
	sceneModelFile    = "scene.glb"
	objectsIndexFile  = "index.json"
	sourceDir         = "source"
	firstFrameName    = "frame_00000.jpg"
	firstResizedName  = "000000.jpg"
)

// keepTopLevel lists the directories that survive the final top-level sweep.
var keepTopLevel = map[string]bool{
	scene.SimulationDir: true,
	reconstructionDir:   true,
	scene.DirName:       true,
	sourceDir:           true,
}

type step struct {
	name string
	run  func(keyDir string) error
}

// Run executes every preparation step against the key directory. Steps keep
// going past individual failures so one bad artifact does not leave the rest
// of the tree untrimmed; all step errors are joined into the return value.
// A missing key directory is reported as services.ErrNotFound.
func Run(ctx context.Context, keyDir string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	if info, err := os.Stat(keyDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: key directory %s", services.ErrNotFound, keyDir)
		}
		return fmt.Errorf("stat key directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("key path %s is not a directory", keyDir)
	}

	steps := []step{
		{"promote scene model", promoteSceneModel},
		{"prune object clips", pruneObjectsToClips},
		{"write object index", writeObjectsIndex},
		{"prune scene payload", pruneSceneToPayload},
		{"seed source frames", seedSourceFrames},
		{"consolidate reconstruction", consolidateReconstruction},
		{"sweep top level", sweepTopLevel},
	}

	var failures []error
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		if err := s.run(keyDir); err != nil {
			logger.Error("preparation step failed",
				logging.String("step", s.name),
				logging.String(logging.FieldPath, keyDir),
				logging.Error(err))
			failures = append(failures, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		logger.Debug("preparation step complete", logging.String("step", s.name))
	}
	return errors.Join(failures...)
}

// promoteSceneModel replaces reconstruction/scene.glb with the optimized
// model produced under reconstruction/scenario. Nothing to promote is fine.
func promoteSceneModel(keyDir string) error {
	src := filepath.Join(keyDir, reconstructionDir, "scenario", "scene_optimized.glb")
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	dst := filepath.Join(keyDir, reconstructionDir, sceneModelFile)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(src, dst)
}

// pruneObjectsToClips deletes every non-mp4 file directly under
// reconstruction/objects. Subdirectories are left for the consolidation pass.
func pruneObjectsToClips(keyDir string) error {
	dir := filepath.Join(keyDir, reconstructionDir, objectsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || isClip(entry.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// writeObjectsIndex records the sorted clip filenames as a JSON array next to
// the clips themselves. An existing index is rewritten.
func writeObjectsIndex(keyDir string) error {
	dir := filepath.Join(keyDir, reconstructionDir, objectsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && isClip(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, objectsIndexFile), append(data, '\n'), 0o644)
}

// pruneSceneToPayload keeps only the serialized payload under scene/.
func pruneSceneToPayload(keyDir string) error {
	dir := filepath.Join(keyDir, scene.DirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() && entry.Name() == scene.FileName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// seedSourceFrames copies the first captured frame and its resized variant
// into source/ so a thumbnail survives the top-level sweep. Frame filenames
// are fixed width: captures use five digits, resized frames six.
func seedSourceFrames(keyDir string) error {
	dst := filepath.Join(keyDir, sourceDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	candidates := []string{
		filepath.Join(keyDir, "images", firstFrameName),
		filepath.Join(keyDir, "resized_images", firstResizedName),
	}
	for _, src := range candidates {
		if _, err := os.Stat(src); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		if err := copyFile(src, filepath.Join(dst, filepath.Base(src))); err != nil {
			return err
		}
	}
	return nil
}

// consolidateReconstruction keeps only objects/ and scene.glb under
// reconstruction/ and deletes everything else.
func consolidateReconstruction(keyDir string) error {
	dir := filepath.Join(keyDir, reconstructionDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() == objectsDir {
			continue
		}
		if !entry.IsDir() && entry.Name() == sceneModelFile {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// sweepTopLevel removes every top-level directory that is not part of the
// archived artifact set. Top-level files such as metadata.yaml are untouched.
func sweepTopLevel(keyDir string) error {
	entries, err := os.ReadDir(keyDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() || keepTopLevel[entry.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(keyDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func isClip(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".mp4")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
