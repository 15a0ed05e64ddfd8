package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"sceneflow/internal/locate"
	"sceneflow/internal/logging"
	"sceneflow/internal/report"
	"sceneflow/internal/scene"
)

func newSceneCommand(ctx *commandContext) *cobra.Command {
	sceneCmd := &cobra.Command{
		Use:   "scene",
		Short: "Scene payload utilities",
	}

	sceneCmd.AddCommand(newSceneExtractBackgroundCommand(ctx))
	sceneCmd.AddCommand(newSceneCopyMaskCommand(ctx))
	sceneCmd.AddCommand(newScenePullCommand(ctx))

	return sceneCmd
}

func newSceneExtractBackgroundCommand(ctx *commandContext) *cobra.Command {
	var keysPath, backend string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "extract-background",
		Short: "Write simulation/background.jpg from each archived payload",
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
					err := scene.ExtractBackground(match.Path(), dryRun)
					switch {
					case err == nil:
						rep.Succeed(key)
					case errors.Is(err, fs.ErrExist):
						rep.Skip(key, "already exists")
					default:
						rep.Fail(key, err)
						logger.Error("background extraction failed",
							logging.String(logging.FieldKey, key), logging.Error(err))
					}
				}
			}

			printReport(cmd.OutOrStdout(), "Extract background", rep)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keysPath, "keys", "k", "", "Path to the YAML key-list file")
	cmd.Flags().StringVar(&backend, "backend", "", "Archive backend tree to read from")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate payloads without writing images")
	_ = cmd.MarkFlagRequired("keys")

	return cmd
}

func newSceneCopyMaskCommand(ctx *commandContext) *cobra.Command {
	var keysPath, backend string

	cmd := &cobra.Command{
		Use:   "copy-mask",
		Short: "Copy the mask field from archived payloads into staged ones",
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
					src := scene.PayloadPath(match.Path())
					dst := scene.PayloadPath(filepath.Join(cfg.Paths.StagingDir, key))
					overwrote, err := scene.CopyField(src, dst, "mask")
					switch {
					case err == nil:
						if overwrote {
							logger.Warn("replaced existing mask field",
								logging.String(logging.FieldKey, key))
						}
						rep.Succeed(key)
					case errors.Is(err, fs.ErrNotExist):
						rep.Skip(key, "payload missing")
					case errors.Is(err, scene.ErrFieldMissing):
						rep.Skip(key, "no mask field")
					default:
						rep.Fail(key, err)
					}
				}
			}

			printReport(cmd.OutOrStdout(), "Copy mask", rep)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keysPath, "keys", "k", "", "Path to the YAML key-list file")
	cmd.Flags().StringVar(&backend, "backend", "", "Archive backend tree to read from")
	_ = cmd.MarkFlagRequired("keys")

	return cmd
}

func newScenePullCommand(ctx *commandContext) *cobra.Command {
	var keysPath, backend string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Rebuild staged scene payloads from the archive",
		Long: "Pull projects each archived payload down to the capture fields, writes it\n" +
			"as a fresh staged payload, and exports the frame stack as resized images.",
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
					rep.Record(key, pullKey(cfg.Paths.StagingDir, key, match.Path(), logger))
				}
			}

			printReport(cmd.OutOrStdout(), "Pull", rep)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keysPath, "keys", "k", "", "Path to the YAML key-list file")
	cmd.Flags().StringVar(&backend, "backend", "", "Archive backend tree to read from")
	_ = cmd.MarkFlagRequired("keys")

	return cmd
}

func pullKey(stagingDir, key, archivedDir string, logger *slog.Logger) error {
	payload, err := scene.Load(scene.PayloadPath(archivedDir))
	if err != nil {
		return err
	}

	projected, missing := payload.Project(scene.ProjectionFields)
	if len(missing) > 0 {
		logger.Warn("payload lacks projection fields",
			logging.String(logging.FieldKey, key),
			logging.Any("missing", missing))
	}
	if !projected.Has("images") {
		return fmt.Errorf("%w: images", scene.ErrFieldMissing)
	}

	keyDir := filepath.Join(stagingDir, key)
	if err := projected.Save(scene.PayloadPath(keyDir)); err != nil {
		return err
	}
	if _, err := scene.ExportFrames(projected, filepath.Join(keyDir, "resized_images")); err != nil {
		return err
	}
	return nil
}
