package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const geometryDir = "geometry"

type pruneTally struct {
	scanned int
	deleted int
	missing int
	failed  int
}

func newPruneCommand(ctx *commandContext) *cobra.Command {
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Space reclamation utilities",
	}

	pruneCmd.AddCommand(newPruneGeometryCommand(ctx))

	return pruneCmd
}

func newPruneGeometryCommand(ctx *commandContext) *cobra.Command {
	var author, week, backend string
	var archive bool

	cmd := &cobra.Command{
		Use:   "geometry",
		Short: "Delete intermediate geometry folders from key directories",
		Long: "Geometry folders are large reconstruction intermediates. With --author the\n" +
			"sweep covers every key under that author's outputs; with --archive it\n" +
			"covers the backend tree, optionally narrowed by --week and --author.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := ctx.deps()
			if err != nil {
				return err
			}

			var tally pruneTally
			if archive {
				if backend != "" && !cfg.KnownBackend(backend) {
					return fmt.Errorf("unknown backend %q", backend)
				}
				err = pruneArchiveGeometry(cfg.BackendRoot(backend), week, author, &tally)
			} else {
				if author == "" {
					return errors.New("either --author or --archive is required")
				}
				err = pruneAuthorGeometry(cfg.AuthorOutputsDir(author), &tally)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, deleted %d, without geometry %d, failed %d\n",
				tally.scanned, tally.deleted, tally.missing, tally.failed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&author, "author", "a", "", "Author whose key directories are swept")
	cmd.Flags().StringVarP(&week, "week", "w", "", "Restrict the archive sweep to one week")
	cmd.Flags().StringVar(&backend, "backend", "", "Archive backend tree to sweep")
	cmd.Flags().BoolVar(&archive, "archive", false, "Sweep the archive tree instead of author outputs")

	return cmd
}

func pruneAuthorGeometry(outputsDir string, tally *pruneTally) error {
	entries, err := os.ReadDir(outputsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", outputsDir)
		}
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pruneGeometryIn(filepath.Join(outputsDir, entry.Name()), tally)
	}
	return nil
}

// pruneArchiveGeometry sweeps <root>/<week>/<author>/<key>/geometry, with week
// and author acting as filters when non-empty.
func pruneArchiveGeometry(root, week, author string, tally *pruneTally) error {
	weeks, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", root)
		}
		return err
	}
	for _, weekDir := range weeks {
		if !weekDir.IsDir() || (week != "" && weekDir.Name() != week) {
			continue
		}
		authors, err := os.ReadDir(filepath.Join(root, weekDir.Name()))
		if err != nil {
			return err
		}
		for _, authorDir := range authors {
			if !authorDir.IsDir() || (author != "" && authorDir.Name() != author) {
				continue
			}
			keys, err := os.ReadDir(filepath.Join(root, weekDir.Name(), authorDir.Name()))
			if err != nil {
				return err
			}
			for _, keyDir := range keys {
				if !keyDir.IsDir() {
					continue
				}
				pruneGeometryIn(filepath.Join(root, weekDir.Name(), authorDir.Name(), keyDir.Name()), tally)
			}
		}
	}
	return nil
}

func pruneGeometryIn(keyDir string, tally *pruneTally) {
	tally.scanned++
	target := filepath.Join(keyDir, geometryDir)
	if _, err := os.Stat(target); err != nil {
		tally.missing++
		return
	}
	if err := os.RemoveAll(target); err != nil {
		tally.failed++
		return
	}
	tally.deleted++
}
