package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var documentsForceFlag bool

// documentsCmd manages the backend's document index
var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage ingested documents",
}

// documentsClearCmd deletes every ingested document
var documentsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all ingested documents and their embeddings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !documentsForceFlag {
			fmt.Print("Delete all ingested documents? [y/N] ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

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

		message, err := client.DeleteDocuments(context.Background())
		if err != nil {
			fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Delete failed"))
			return fmt.Errorf("failed to delete documents: %w", err)
		}

		fmt.Println(message)
		return nil
	},
}

func init() {
	documentsClearCmd.Flags().BoolVarP(&documentsForceFlag, "force", "y", false, "Skip confirmation prompt")
	documentsCmd.AddCommand(documentsClearCmd)
}
