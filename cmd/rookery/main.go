package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sagarc03/rookery/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "rookery",
	Short:   "Hierarchical resource store with a GeoServer-style REST API",
	Long: `Rookery serves a tree of directories and files over a REST endpoint
modelled on the GeoServer resource API. Resources can live on the local
filesystem, in memory, in a SQL database or in an S3-compatible bucket.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			files = append(files, path)
		}

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("storage-driver", "", "storage driver: filesystem, memory, database, blob (env: ROOKERY_STORAGE_DRIVER)")
	rootCmd.PersistentFlags().String("storage-path", "", "storage directory for the filesystem driver (default: ./data, env: ROOKERY_STORAGE_PATH)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: ROOKERY_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: rookery.db, env: ROOKERY_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: ROOKERY_LOG_LEVEL)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
