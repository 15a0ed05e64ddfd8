// Package ownership reassigns directory trees between the service identities
// that own each stage of the storage pipeline.
package ownership

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"sceneflow/internal/logging"
	"sceneflow/internal/services"
)

// Identity is a uid/gid pair applied recursively to a tree.
type Identity struct {
	UID int
	GID int
}

func (i Identity) String() string {
	return fmt.Sprintf("%d:%d", i.UID, i.GID)
}

// Changer reassigns ownership of the tree rooted at path.
type Changer interface {
	Change(ctx context.Context, path string, id Identity) error
}

// New returns a helper-backed changer when a privilege helper is configured
// and a direct changer otherwise.
func New(helper string, logger *slog.Logger) Changer {
	if logger == nil {
		logger = logging.NewNop()
	}
	helper = strings.TrimSpace(helper)
	if helper == "" {
		return Direct{logger: logger}
	}
	return Helper{Command: helper, logger: logger}
}

// Direct chowns every entry with the rights of the current process.
type Direct struct {
	logger *slog.Logger
}

func (d Direct) Change(ctx context.Context, path string, id Identity) error {
	return filepath.WalkDir(path, func(entry string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Lchown(entry, id.UID, id.GID); err != nil {
			return fmt.Errorf("chown %s: %w", entry, err)
		}
		return nil
	})
}

// Helper escalates through an external command such as sudo. A non-zero exit
// is fatal for the whole batch: continuing would strand directories under the
// wrong identity.
type Helper struct {
	Command string
	logger  *slog.Logger
}

func (h Helper) Change(ctx context.Context, path string, id Identity) error {
	cmd := exec.CommandContext(ctx, h.Command, "chown", "-R", id.String(), path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "helper exited with failure"
		}
		return services.Wrap(services.ErrPrivileged, "", "chown", detail, err)
	}
	if h.logger != nil {
		h.logger.Debug("ownership reassigned",
			logging.String(logging.FieldPath, path),
			logging.String("identity", id.String()))
	}
	return nil
}
