package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sceneflow/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var keysPath, author, week, fromStage, backend string
	var requireSuccess bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the storage pipeline over a key batch",
		Long: "Run moves each key's outputs into staging, stamps metadata, prunes the\n" +
			"artifacts for storage, syncs the metadata registry, and archives into the\n" +
			"week/author tree.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.deps()
			if err != nil {
				return err
			}
			set, err := loadKeyset(keysPath)
			if err != nil {
				return err
			}
			from := pipeline.StageIntake
			if fromStage != "" {
				if from, err = pipeline.ParseStage(fromStage); err != nil {
					return err
				}
			}

			runner, err := pipeline.New(cfg, logger, pipeline.Options{
				Keys:           set.Keys,
				IntakeKeys:     set.AuthorKeys(),
				Author:         author,
				Week:           week,
				From:           from,
				Backend:        backend,
				RequireSuccess: requireSuccess,
				Out:            cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}

			summary, err := runner.Run(cmd.Context())
			if summary != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "\nrun logs: %s\n\n", summary.RunDir)
				for _, stage := range pipeline.Stages() {
					if rep, ok := summary.Stages[stage]; ok {
						printReport(out, stage.Label(), rep)
					}
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&keysPath, "keys", "k", "", "Path to the YAML key-list file")
	cmd.Flags().StringVarP(&author, "author", "a", "", "Author whose outputs feed intake")
	cmd.Flags().StringVarP(&week, "week", "w", "", "Week group for metadata and archival")
	cmd.Flags().StringVar(&fromStage, "from-stage", "", "First stage to run (intake, metadata, prepare, sync, archive)")
	cmd.Flags().StringVar(&backend, "backend", "", "Archive backend tree (default from configuration)")
	cmd.Flags().BoolVar(&requireSuccess, "require-success", false, "Archive only keys with a successful reconstruction")
	_ = cmd.MarkFlagRequired("keys")

	return cmd
}

// newStageCommands returns one standalone command per pipeline stage,
// mirroring the batch scripts each stage grew out of.
func newStageCommands(ctx *commandContext) []*cobra.Command {
	specs := []struct {
		stage pipeline.Stage
		short string
	}{
		{pipeline.StageIntake, "Move author outputs into staging"},
		{pipeline.StageMetadata, "Stamp author, status, and week into staged metadata"},
		{pipeline.StagePrepare, "Prune staged keys down to the archived artifact set"},
		{pipeline.StageSync, "Push staged metadata to the registry"},
		{pipeline.StageArchive, "Move staged keys into the week/author archive tree"},
	}

	cmds := make([]*cobra.Command, 0, len(specs))
	for _, spec := range specs {
		cmds = append(cmds, newStageCommand(ctx, spec.stage, spec.short))
	}
	return cmds
}

func newStageCommand(ctx *commandContext, stage pipeline.Stage, short string) *cobra.Command {
	var keysPath, author, week, backend string
	var requireSuccess bool

	cmd := &cobra.Command{
		Use:   stage.String(),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.deps()
			if err != nil {
				return err
			}
			set, err := loadKeyset(keysPath)
			if err != nil {
				return err
			}
			keys := set.Keys
			if stage == pipeline.StageIntake {
				keys = set.AuthorKeys()
			}

			runner, err := pipeline.New(cfg, logger, pipeline.Options{
				Keys:           keys,
				Author:         author,
				Week:           week,
				From:           stage,
				Backend:        backend,
				RequireSuccess: requireSuccess,
				Out:            cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}

			summary, err := runner.RunSingle(cmd.Context(), stage)
			if summary != nil {
				if rep, ok := summary.Stages[stage]; ok {
					out := cmd.OutOrStdout()
					fmt.Fprintln(out)
					printReport(out, stage.Label(), rep)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&keysPath, "keys", "k", "", "Path to the YAML key-list file")
	_ = cmd.MarkFlagRequired("keys")

	switch stage {
	case pipeline.StageIntake, pipeline.StageMetadata:
		cmd.Flags().StringVarP(&author, "author", "a", "", "Author whose outputs feed intake")
		cmd.Flags().StringVarP(&week, "week", "w", "", "Week group for metadata")
		_ = cmd.MarkFlagRequired("author")
		_ = cmd.MarkFlagRequired("week")
	case pipeline.StageArchive:
		cmd.Flags().StringVarP(&author, "author", "a", "", "Fallback author when metadata lacks one")
		cmd.Flags().StringVarP(&week, "week", "w", "", "Fallback week when metadata lacks one")
		cmd.Flags().StringVar(&backend, "backend", "", "Archive backend tree (default from configuration)")
		cmd.Flags().BoolVar(&requireSuccess, "require-success", false, "Archive only keys with a successful reconstruction")
	}

	return cmd
}
