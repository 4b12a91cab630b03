package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ingestCmd uploads documentation files for the backend to index
var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Upload documentation for the agent to index",
	Long: `Upload one or more documentation files. The backend chunks and
embeds them so later questions can be answered against their content.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		logger := newLogger(cfg)
		defer func() {
			_ = logger.Sync()
		}()

		client, err := newClient(cfg, logger)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx := context.Background()

		for _, path := range args {
			label := fmt.Sprintf("Uploading %s", path)
			spin := newSpinner(label)
			spin.start()

			message, err := client.Ingest(ctx, path, func(percent int) {
				spin.setMessage(fmt.Sprintf("%s (%d%%)", label, percent))
			})
			if err != nil {
				spin.stopWithError()
				fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Upload failed"))
				return fmt.Errorf("failed to ingest %s: %w", path, err)
			}

			spin.stopWithSuccess(message)
		}

		return nil
	},
}
