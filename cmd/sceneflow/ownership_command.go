package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sceneflow/internal/ownership"
)

func newFixOwnershipCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix-ownership",
		Short: "Reassign the staging root to the staging identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.deps()
			if err != nil {
				return err
			}

			id := ownership.Identity{UID: cfg.Ownership.StagingUID, GID: cfg.Ownership.StagingGID}
			owner := ownership.New(cfg.Ownership.Helper, logger)
			if err := owner.Change(cmd.Context(), cfg.Paths.StagingDir, id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ownership of %s set to %s\n", cfg.Paths.StagingDir, id)
			return nil
		},
	}

	return cmd
}
