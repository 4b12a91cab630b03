package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"

	"github.com/dmelo/agentchat/internal/api"
	"github.com/dmelo/agentchat/internal/models"
	"github.com/dmelo/agentchat/internal/render"
)

// runQuery asks a single question and outputs the streamed answer.
// If rawOutput is true, only the raw answer text is printed without
// decoration.
func runQuery(question string, rawOutput bool) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question cannot be empty")
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

	ctx := context.Background()

	if rawOutput {
		result, err := client.Query(ctx, question)
		if err != nil {
			return err
		}

		text := result.Explanation
		if result.GeneratedCode != "" {
			text += "\n\n```python\n" + result.GeneratedCode + "\n```\n"
		}

		if outputFlag != "" {
			if err := os.WriteFile(outputFlag, []byte(text), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			return nil
		}
		fmt.Print(text)
		return nil
	}

	// Decorated output: spinner until the first token, then live tokens
	spin := newSpinner("Asking the agent")
	spin.start()

	var (
		started   bool
		streamErr error
		result    *models.QueryResponse
	)

	client.StreamQuery(ctx, question, api.StreamHandlers{
		OnToken: func(text string) {
			if !started {
				spin.stopQuiet()
				fmt.Println(assistantLabelStyle.Render("✦ Agent"))
				started = true
			}
			fmt.Print(text)
		},
		OnCodeBlock: func(code string) {
			// Shown from the final result after the stream ends
		},
		OnComplete: func(r *models.QueryResponse) {
			result = r
		},
		OnError: func(err error) {
			streamErr = err
		},
	})

	if streamErr != nil {
		if !started {
			spin.stopWithError()
		}
		fmt.Fprintln(os.Stderr, formatErrorMessage(streamErr, "Query failed"))
		return fmt.Errorf("query failed: %w", streamErr)
	}

	if !started {
		spin.stopQuiet()
		fmt.Println(assistantLabelStyle.Render("✦ Agent"))
	}
	fmt.Println()

	return printResult(cfg.CopyToClipboard, result)
}

// printResult renders the final answer: generated code, execution
// output, optional clipboard copy and file output
func printResult(copyCode bool, result *models.QueryResponse) error {
	if result == nil {
		return nil
	}

	termWidth := getTerminalWidth()
	bubbleWidth := termWidth - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	contentWidth := bubbleWidth - 4

	renderOpts := render.LoadOptionsFromConfigWithWidth(contentWidth)

	if result.GeneratedCode != "" {
		rendered, err := render.CodeBlock(result.GeneratedCode, renderOpts)
		if err != nil {
			rendered = result.GeneratedCode
		}
		rendered = strings.TrimRight(rendered, "\n")
		fmt.Println(assistantBubbleStyle.Width(bubbleWidth).Render(rendered))

		if copyCode {
			if err := clipboard.WriteAll(result.GeneratedCode); err != nil {
				warnMsg := lipgloss.NewStyle().Foreground(colorFailure).Render(
					fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
				)
				fmt.Fprintln(os.Stderr, warnMsg)
			} else {
				clipMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Code copied to clipboard")
				fmt.Fprintln(os.Stderr, clipMsg)
			}
		}
	}

	if result.ExecutionResult != "" {
		dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)
		fmt.Println(dimStyle.Render("Output: " + result.ExecutionResult))
	}

	if outputFlag != "" {
		text := result.Explanation
		if result.GeneratedCode != "" {
			text += "\n\n```python\n" + result.GeneratedCode + "\n```\n"
		}
		if err := os.WriteFile(outputFlag, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		successMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render(
			fmt.Sprintf("✓ Answer saved to %s", outputFlag),
		)
		fmt.Fprintln(os.Stderr, successMsg)
	}

	return nil
}
