package main

import (
	"os"

	"github.com/sagarc03/rookery/clientcli"
	"github.com/spf13/cobra"
)

var listRecursive bool

var listCmd = &cobra.Command{
	Use:     "list [remote-path]",
	Aliases: []string{"ls"},
	Short:   "List a directory",
	Long: `List the resources in a directory, or describe a single file.

Examples:
  rookery-cli list
  rookery-cli list styles
  rookery-cli list -r workspaces/topp
  rookery-cli list --json workspaces | jq '.items[].path'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listRecursive, "recursive", "r", false, "descend into subdirectories")
}

func runList(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.List(cmd.Context(), clientcli.ListOptions{
		Path:      path,
		Recursive: listRecursive,
	})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatList(os.Stdout, result)
}
