package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
)

var chatTUICmd = &cobra.Command{
	Use:   "tui [session-id]",
	Short: "Open an interactive chat in the terminal",
	Long: `Open an interactive terminal chat for an active session.

Controls:
  Enter        - Ask the question
  Esc          - Stop the current answer
  PgUp/PgDown  - Scroll the transcript
  Ctrl+C       - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runChatTUI,
}

func init() {
	chatCmd.AddCommand(chatTUICmd)
}

func runChatTUI(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := tui.NewApp(&tui.Ports{Chat: chatService, Documents: documentService}, args[0])
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(commandContext(cmd))

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
