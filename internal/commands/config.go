package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmelo/agentchat/internal/config"
	"github.com/dmelo/agentchat/internal/render"
)

var (
	setBaseURLFlag  string
	setThemeFlag    string
	setStyleFlag    string
	setClipboard    string
	setVerboseValue string
)

// configCmd shows and updates the user configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
	Long: `Show the current configuration, or update individual settings.

Examples:
  agentchat config
  agentchat config --set-base-url http://10.0.0.5:8000
  agentchat config --set-theme catppuccin
  agentchat config --set-markdown-style dracula
  agentchat config --set-clipboard on`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		changed := false

		if setBaseURLFlag != "" {
			cfg.BaseURL = strings.TrimRight(setBaseURLFlag, "/")
			changed = true
		}

		if setThemeFlag != "" {
			if _, ok := render.GetTUIThemeByName(setThemeFlag); !ok {
				return fmt.Errorf("unknown theme %q (available: %s)",
					setThemeFlag, strings.Join(render.TUIThemeNames(), ", "))
			}
			cfg.TUITheme = setThemeFlag
			changed = true
		}

		if setStyleFlag != "" {
			if !render.IsBuiltinStyle(setStyleFlag) {
				return fmt.Errorf("unknown markdown style %q (available: %s)",
					setStyleFlag, strings.Join(render.StyleNames(), ", "))
			}
			cfg.Markdown.Style = setStyleFlag
			changed = true
		}

		if setClipboard != "" {
			enabled, err := parseOnOff(setClipboard)
			if err != nil {
				return err
			}
			cfg.CopyToClipboard = enabled
			changed = true
		}

		if setVerboseValue != "" {
			enabled, err := parseOnOff(setVerboseValue)
			if err != nil {
				return err
			}
			cfg.Verbose = enabled
			changed = true
		}

		if changed {
			if err := config.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Println("Configuration saved.")
		}

		printConfig(cfg)
		return nil
	},
}

func init() {
	configCmd.Flags().StringVar(&setBaseURLFlag, "set-base-url", "", "Set the agent backend address")
	configCmd.Flags().StringVar(&setThemeFlag, "set-theme", "", "Set the TUI color theme")
	configCmd.Flags().StringVar(&setStyleFlag, "set-markdown-style", "", "Set the markdown rendering style")
	configCmd.Flags().StringVar(&setClipboard, "set-clipboard", "", "Copy generated code to clipboard (on/off)")
	configCmd.Flags().StringVar(&setVerboseValue, "set-verbose", "", "Enable verbose logging (on/off)")
}

func parseOnOff(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", value)
	}
}

func printConfig(cfg config.Config) {
	path, _ := config.GetConfigPath()

	fmt.Println("Current configuration:")
	fmt.Printf("  Base URL:        %s\n", cfg.BaseURL)
	fmt.Printf("  TUI theme:       %s\n", cfg.TUITheme)
	fmt.Printf("  Markdown style:  %s\n", cfg.Markdown.Style)
	fmt.Printf("  Clipboard copy:  %t\n", cfg.CopyToClipboard)
	fmt.Printf("  Verbose:         %t\n", cfg.Verbose)
	if path != "" {
		fmt.Printf("  Config file:     %s\n", path)
	}
}
