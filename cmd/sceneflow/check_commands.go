package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sceneflow/internal/locate"
	"sceneflow/internal/metadata"
	"sceneflow/internal/scene"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Read-only batch status checks",
	}

	checkCmd.AddCommand(newCheckBackgroundCommand(ctx))
	checkCmd.AddCommand(newCheckStatusCommand(ctx))

	return checkCmd
}

func newCheckBackgroundCommand(ctx *commandContext) *cobra.Command {
	var keysPath, backend string

	cmd := &cobra.Command{
		Use:   "background",
		Short: "Report which archived keys have an extracted background image",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := ctx.deps()
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

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("background check", colorize) {
				fmt.Fprintln(out, line)
			}

			root := cfg.BackendRoot(backend)
			var found, missing, notInArchive, ambiguous int
			var missingKeys []string
			for _, key := range set.Keys {
				match, err := locate.Find(root, key)
				if err != nil {
					return err
				}
				switch match.Kind {
				case locate.NotFound:
					fmt.Fprintln(out, renderStatusLine(key, statusWarn, "not in archive", colorize))
					notInArchive++
				case locate.Ambiguous:
					fmt.Fprintln(out, renderStatusLine(key, statusWarn,
						fmt.Sprintf("ambiguous (%s)", strings.Join(match.Paths, ", ")), colorize))
					ambiguous++
				case locate.Found:
					rel := fmt.Sprintf("%s/%s/%s", match.Week(), match.Author(), key)
					if _, err := os.Stat(scene.BackgroundPath(match.Path())); err == nil {
						fmt.Fprintln(out, renderStatusLine(key, statusOK, rel, colorize))
						found++
					} else {
						fmt.Fprintln(out, renderStatusLine(key, statusError, "missing background.jpg", colorize))
						missing++
						missingKeys = append(missingKeys, key)
					}
				}
			}

			fmt.Fprintf(out, "\ntotal %d, found %d, missing %d, not in archive %d, ambiguous %d\n",
				len(set.Keys), found, missing, notInArchive, ambiguous)
			if len(missingKeys) > 0 {
				fmt.Fprintln(out, "\nkeys missing background.jpg:")
				for _, key := range missingKeys {
					fmt.Fprintf(out, "  - %s\n", key)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&keysPath, "keys", "k", "", "Path to the YAML key-list file")
	cmd.Flags().StringVar(&backend, "backend", "", "Archive backend tree to check")
	_ = cmd.MarkFlagRequired("keys")

	return cmd
}

func newCheckStatusCommand(ctx *commandContext) *cobra.Command {
	var keysPath, only, outputBase string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report which keys have a successful reconstruction",
		Long: "Status reads each key's metadata.yaml under the staging root (or\n" +
			"--output-base) and prints the successful subset as a ready-to-paste\n" +
			"keys block.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := ctx.deps()
			if err != nil {
				return err
			}
			set, err := loadKeyset(keysPath)
			if err != nil {
				return err
			}

			keys := set.Keys
			if strings.TrimSpace(only) != "" {
				var requested []string
				for _, key := range strings.Split(only, ",") {
					if key = strings.TrimSpace(key); key != "" {
						requested = append(requested, key)
					}
				}
				known, unknown := set.Subset(requested)
				if len(unknown) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "keys not in the list (skipping): %s\n",
						strings.Join(unknown, ", "))
				}
				keys = known
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no keys to check")
				return nil
			}

			base := strings.TrimSpace(outputBase)
			if base == "" {
				base = cfg.Paths.StagingDir
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("reconstruction status", colorize) {
				fmt.Fprintln(out, line)
			}

			var success, noMetadata, notSuccess []string
			for _, key := range keys {
				keyDir := filepath.Join(base, key)
				switch {
				case !metadata.Exists(keyDir):
					fmt.Fprintln(out, renderStatusLine(key, statusError, "no metadata.yaml", colorize))
					noMetadata = append(noMetadata, key)
				case metadata.HasSuccessfulReconstruction(keyDir):
					fmt.Fprintln(out, renderStatusLine(key, statusOK, "reconstruction_status = success", colorize))
					success = append(success, key)
				default:
					fmt.Fprintln(out, renderStatusLine(key, statusError, "not successful", colorize))
					notSuccess = append(notSuccess, key)
				}
			}

			fmt.Fprintf(out, "\nchecked %d, success %d, not success %d, no metadata %d\n",
				len(keys), len(success), len(notSuccess), len(noMetadata))

			if len(success) > 0 {
				block, err := yaml.Marshal(map[string][]string{"keys": success})
				if err != nil {
					return fmt.Errorf("render keys block: %w", err)
				}
				fmt.Fprintln(out, "\nsuccessful keys block:")
				fmt.Fprintln(out, "---")
				fmt.Fprint(out, string(block))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&keysPath, "keys", "k", "", "Path to the YAML key-list file")
	cmd.Flags().StringVar(&only, "only", "", "Comma-separated subset of keys to check")
	cmd.Flags().StringVarP(&outputBase, "output-base", "o", "", "Base directory for key folders (default: staging)")
	_ = cmd.MarkFlagRequired("keys")

	return cmd
}
