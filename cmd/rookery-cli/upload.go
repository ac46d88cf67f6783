package main

import (
	"os"

	"github.com/sagarc03/rookery/clientcli"
	"github.com/spf13/cobra"
)

var uploadRecursive bool

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path> [remote-path]",
	Short: "Upload files to the server",
	Long: `Upload files to the server.

Missing parent directories are created. An existing file is replaced;
uploading onto a directory fails. When remote-path is omitted the local
path is used, cleaned of leading "./" and "../" segments.

Examples:
  rookery-cli upload ./styles/roads.sld styles/roads.sld
  rookery-cli upload -r ./templates/ workspaces/topp/templates/`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", false, "upload directory recursively")
}

func runUpload(cmd *cobra.Command, args []string) error {
	localPath := args[0]
	remotePath := clientcli.NormalizeLocalToRemotePath(localPath)
	if len(args) > 1 {
		remotePath = args[1]
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Upload(cmd.Context(), clientcli.UploadOptions{
		LocalPath:  localPath,
		RemotePath: remotePath,
		Recursive:  uploadRecursive,
	})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if err := getFormatter().FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	for i := range results {
		if results[i].Err != nil {
			return &exitError{code: 1}
		}
	}

	return nil
}

