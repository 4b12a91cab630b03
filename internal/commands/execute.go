package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var executeFileFlag string

// executeCmd runs code in the backend sandbox
var executeCmd = &cobra.Command{
	Use:   "execute [code]",
	Short: "Run code in the backend sandbox",
	Long: `Run a snippet in the backend's sandboxed interpreter and print its
output.

Examples:
  agentchat execute "print(1 + 1)"
  agentchat execute -f snippet.py
  cat snippet.py | agentchat execute`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readCode(args)
		if err != nil {
			return err
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

		output, err := client.Execute(context.Background(), code)
		if err != nil {
			fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Execution failed"))
			return fmt.Errorf("execution failed: %w", err)
		}

		fmt.Print(output)
		if output != "" && output[len(output)-1] != '\n' {
			fmt.Println()
		}
		return nil
	},
}

func init() {
	executeCmd.Flags().StringVarP(&executeFileFlag, "file", "f", "", "Read code from file")
}

// readCode resolves the code to run from flag, argument, or stdin
func readCode(args []string) (string, error) {
	if executeFileFlag != "" {
		data, err := os.ReadFile(executeFileFlag)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), nil
	}

	if len(args) > 0 {
		return args[0], nil
	}

	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	return "", fmt.Errorf("no code provided")
}
