package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/config"
)

var importCmd = &cobra.Command{
	Use:   "import [flags] <source1> [source2] ...",
	Short: "Import local files into rookery storage",
	Long: `Import files into the configured storage without going through HTTP.

A source is a single file, a directory (with -r) or a zip archive (with -r).
Relative paths inside directories and archives are kept below the
destination. Existing resources are replaced.

Examples:
  # Import a single style
  rookery import styles/roads.sld

  # Import into a destination directory
  rookery import --dest workspaces/topp styles/roads.sld

  # Import a whole data directory
  rookery import -r ./geoserver_data

  # Import a packaged archive
  rookery import -r --dest styles styles.zip`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var (
	importDest      string
	importRecursive bool
	importQuiet     bool
)

func init() {
	importCmd.Flags().StringVarP(&importDest, "dest", "d", "", "destination directory in storage")
	importCmd.Flags().BoolVarP(&importRecursive, "recursive", "r", false, "import directories and zip archives")
	importCmd.Flags().BoolVarP(&importQuiet, "quiet", "q", false, "suppress per-source output")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	dest, err := rookery.ResolvePath(importDest)
	if err != nil {
		return fmt.Errorf("invalid destination %q: %w", importDest, err)
	}

	service, cleanup, err := openService(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	total := 0
	for _, source := range args {
		info, statErr := os.Stat(source)
		if statErr != nil {
			return fmt.Errorf("import %s: %w", source, statErr)
		}

		isArchive := !info.IsDir() && filepath.Ext(source) == ".zip" && importRecursive
		if !info.IsDir() && !isArchive {
			target := dest.Join(filepath.Base(source))

			f, openErr := os.Open(source)
			if openErr != nil {
				return fmt.Errorf("import %s: %w", source, openErr)
			}
			created, uploadErr := service.Upload(ctx, target, f)
			_ = f.Close()
			if uploadErr != nil {
				return fmt.Errorf("import %s: %w", source, uploadErr)
			}

			total++
			if !importQuiet {
				slog.Info("imported", "source", source, "path", target.String(), "created", created)
			}
			continue
		}

		if !importRecursive {
			return fmt.Errorf("%s is a directory (use -r to import recursively)", source)
		}

		fsys, done, openErr := openSource(source)
		if openErr != nil {
			return fmt.Errorf("import %s: %w", source, openErr)
		}
		n, importErr := service.Import(ctx, dest, fsys)
		done()
		total += n
		if importErr != nil {
			return fmt.Errorf("import %s after %d resource(s): %w", source, n, importErr)
		}

		if !importQuiet {
			slog.Info("imported", "source", source, "path", dest.String(), "resources", n)
		}
	}

	slog.Info("import complete", "resources", total)
	return nil
}
