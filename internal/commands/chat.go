package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmelo/agentchat/internal/chat"
	"github.com/dmelo/agentchat/internal/tui"
)

// chatCmd starts the interactive chat TUI
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start interactive chat",
	Long: `Start an interactive chat session with the agent backend.

Answers stream in token by token. Multiple chat sessions can be kept
open and switched between; each keeps its own message history for the
lifetime of the process.`,
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

		store := chat.NewSessionStore()
		store.CreateSession()

		if err := tui.RunChat(store, client); err != nil {
			return fmt.Errorf("chat failed: %w", err)
		}
		return nil
	},
}
