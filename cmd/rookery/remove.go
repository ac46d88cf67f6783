package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/config"
)

var removeCmd = &cobra.Command{
	Use:     "remove [flags] <path1> [path2] ...",
	Aliases: []string{"rm"},
	Short:   "Remove resources from rookery storage",
	Long: `Delete resources directly from the configured storage.

Directories are only removed with -r, and then together with everything
below them. The root cannot be removed.

Examples:
  # Remove a single resource
  rookery remove styles/roads.sld

  # Remove several resources
  rookery rm a.txt b.txt

  # Remove a directory tree
  rookery rm -r workspaces/old`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

var (
	removeRecursive bool
	removeQuiet     bool
)

func init() {
	removeCmd.Flags().BoolVarP(&removeRecursive, "recursive", "r", false, "remove directories and their contents")
	removeCmd.Flags().BoolVarP(&removeQuiet, "quiet", "q", false, "suppress per-resource output")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	service, cleanup, err := openService(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	removed := 0
	notFound := 0

	for _, arg := range args {
		p, parseErr := rookery.ResolvePath(arg)
		if parseErr != nil {
			return fmt.Errorf("remove %s: %w", arg, parseErr)
		}

		r, getErr := service.Get(ctx, p)
		if getErr != nil {
			return fmt.Errorf("remove %s: %w", p, getErr)
		}
		if r.Type == rookery.Directory && !removeRecursive {
			return fmt.Errorf("%s is a directory (use -r to remove recursively)", p)
		}

		var doomed []rookery.Path
		if r.Exists() {
			walkErr := service.Tree().Walk(ctx, p, func(res rookery.Resource) error {
				doomed = append(doomed, res.Path)
				return nil
			})
			if walkErr != nil && !errors.Is(walkErr, rookery.ErrNotFound) {
				return fmt.Errorf("remove %s: %w", p, walkErr)
			}
		}

		deleteErr := service.Delete(ctx, p)
		if errors.Is(deleteErr, rookery.ErrNotFound) {
			notFound++
			if !removeQuiet {
				slog.Warn("not found", "path", p.String())
			}
			continue
		}
		if deleteErr != nil {
			return fmt.Errorf("remove %s: %w", p, deleteErr)
		}

		removed += len(doomed)
		if !removeQuiet {
			for _, d := range doomed {
				slog.Info("removed", "path", d.String())
			}
		}
	}

	slog.Info("remove complete", "removed", removed, "not_found", notFound)
	return nil
}
