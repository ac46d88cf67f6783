package main

import (
	"os"

	"github.com/spf13/cobra"
)

var copyCmd = &cobra.Command{
	Use:     "copy <source> <destination>",
	Aliases: []string{"cp"},
	Short:   "Copy a resource on the server",
	Long: `Copy a file to a new path on the server. Directories cannot be copied.

An existing file at the destination is replaced. Missing parent directories
of the destination are created.

Examples:
  rookery-cli copy styles/roads.sld styles/roads-backup.sld
  rookery-cli copy styles/roads.sld backup/styles/roads.sld`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelocate(cmd, args, false)
	},
}

var moveCmd = &cobra.Command{
	Use:     "move <source> <destination>",
	Aliases: []string{"mv"},
	Short:   "Move a resource on the server",
	Long: `Move a file or a whole directory to a new path on the server.

Examples:
  rookery-cli move styles/draft.sld styles/final.sld
  rookery-cli move workspaces/old workspaces/archive/old`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelocate(cmd, args, true)
	},
}

func runRelocate(cmd *cobra.Command, args []string, move bool) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	relocate := client.Copy
	if move {
		relocate = client.Move
	}

	result, err := relocate(cmd.Context(), args[0], args[1])
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatRelocate(os.Stdout, result)
}
