package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"sceneflow/internal/locate"
	"sceneflow/internal/logging"
	"sceneflow/internal/mover"
	"sceneflow/internal/ownership"
	"sceneflow/internal/report"
	"sceneflow/internal/services"
)

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	var keysPath, backend string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Move archived keys back into staging",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.deps()
			if err != nil {
				return err
			}
			set, err := loadKeyset(keysPath)
			if err != nil {
				return err
			}
			if backend != "" && !cfg.KnownBackend(backend) {
				return fmt.Errorf("unknown backend %q", backend)
			}

			root := cfg.BackendRoot(backend)
			rep := report.New()
			for _, key := range set.Keys {
				match, err := locate.Find(root, key)
				if err != nil {
					rep.Fail(key, err)
					logger.Error("locate failed", logging.String(logging.FieldKey, key), logging.Error(err))
					continue
				}
				switch match.Kind {
				case locate.NotFound:
					rep.Skip(key, "not found")
				case locate.Ambiguous:
					rep.Skip(key, "ambiguous")
					logger.Warn("multiple archive matches, not guessing",
						logging.String(logging.FieldKey, key),
						logging.Any("matches", match.Paths))
				case locate.Found:
					dst := filepath.Join(cfg.Paths.StagingDir, key)
					err := mover.Move(cmd.Context(), match.Path(), dst, mover.Options{Overwrite: overwrite}, logger)
					rep.Record(key, err)
				}
			}

			printReport(cmd.OutOrStdout(), "Restore", rep)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keysPath, "keys", "k", "", "Path to the YAML key-list file")
	cmd.Flags().StringVar(&backend, "backend", "", "Archive backend tree to restore from")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace staged keys that already exist")
	_ = cmd.MarkFlagRequired("keys")

	return cmd
}

func newHandoffCommand(ctx *commandContext) *cobra.Command {
	var keysPath, author string

	cmd := &cobra.Command{
		Use:   "handoff",
		Short: "Move staged keys to an author's outputs tree",
		Long: "Handoff moves each staged key into <root>/<author>/outputs and reassigns\n" +
			"ownership to the handoff identity, escalating through the configured\n" +
			"privilege helper when one is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.deps()
			if err != nil {
				return err
			}
			set, err := loadKeyset(keysPath)
			if err != nil {
				return err
			}

			owner := ownership.New(cfg.Ownership.Helper, logger)
			id := ownership.Identity{UID: cfg.Ownership.HandoffUID, GID: cfg.Ownership.HandoffGID}
			opts := mover.Options{
				ChangeOwner: func(ctx context.Context, path string) error {
					return owner.Change(ctx, path, id)
				},
			}

			destBase := cfg.AuthorOutputsDir(author)
			rep := report.New()
			for _, key := range set.Keys {
				src := filepath.Join(cfg.Paths.StagingDir, key)
				err := mover.Move(cmd.Context(), src, filepath.Join(destBase, key), opts, logger)
				if err != nil && services.Fatal(err) {
					rep.Fail(key, err)
					printReport(cmd.OutOrStdout(), "Handoff", rep)
					return err
				}
				rep.Record(key, err)
			}

			printReport(cmd.OutOrStdout(), "Handoff", rep)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keysPath, "keys", "k", "", "Path to the YAML key-list file")
	cmd.Flags().StringVarP(&author, "author", "a", "", "Author receiving the keys")
	_ = cmd.MarkFlagRequired("keys")
	_ = cmd.MarkFlagRequired("author")

	return cmd
}
