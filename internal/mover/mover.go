// Package mover relocates a key's directory between pipeline stage roots.
// Moves are skip-on-collision by default and fall back to copy-and-delete
// when source and destination live on different filesystems, with a
// free-space preflight before any cross-device copy.
package mover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"

	"sceneflow/internal/logging"
	"sceneflow/internal/services"
)

// OwnerFunc reassigns ownership of a directory tree after a move.
type OwnerFunc func(ctx context.Context, path string) error

// Options controls a single move.
type Options struct {
	// Overwrite deletes an existing destination before moving.
	Overwrite bool
	// ChangeOwner, when set, runs against the destination after the move.
	ChangeOwner OwnerFunc
}

// Move relocates the directory at src to dst. The source must exist and the
// destination must not (unless Overwrite). Missing source surfaces as
// services.ErrNotFound and an existing destination as services.ErrExists so
// batch callers can classify both as skips.
func Move(ctx context.Context, src, dst string, opts Options, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}

	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: source %s", services.ErrNotFound, src)
		}
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", src)
	}

	if _, err := os.Stat(dst); err == nil {
		if !opts.Overwrite {
			return fmt.Errorf("%w: destination %s", services.ErrExists, dst)
		}
		logger.Warn("removing existing destination before move", logging.String(logging.FieldPath, dst))
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("remove existing destination: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat destination: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination parent: %w", err)
	}

	if err := os.Rename(src, dst); err != nil {
		var linkErr *os.LinkError
		if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
			return fmt.Errorf("move %s: %w", src, err)
		}
		logger.Info("crossing filesystems, copying",
			logging.String("src", src), logging.String("dst", dst))
		if err := moveAcrossDevices(ctx, src, dst); err != nil {
			return err
		}
	}

	if opts.ChangeOwner != nil {
		if err := opts.ChangeOwner(ctx, dst); err != nil {
			return fmt.Errorf("reassign ownership of %s: %w", dst, err)
		}
	}
	return nil
}

func moveAcrossDevices(ctx context.Context, src, dst string) error {
	size, err := treeSize(src)
	if err != nil {
		return fmt.Errorf("measure source tree: %w", err)
	}
	if err := checkFreeSpace(filepath.Dir(dst), size); err != nil {
		return err
	}
	if err := copyTree(ctx, src, dst); err != nil {
		// Leave no partial destination behind.
		_ = os.RemoveAll(dst)
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func treeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}

func checkFreeSpace(dir string, need int64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		// Preflight is best-effort; the copy itself reports real failures.
		return nil
	}
	free := int64(stat.Bavail) * stat.Bsize
	if free < need {
		return fmt.Errorf("insufficient space on %s: need %d bytes, %d available", dir, need, free)
	}
	return nil
}

func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			info, err := d.Info()
			if err != nil {
				return err
			}
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
