package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a document",
	Long: `Open chat sessions against ready documents and ask questions.

A session is bound to exactly one document. Answers stream to the terminal
as they are generated and each completed exchange is kept in the session's
history until the session is deactivated.`,
}

var chatStartCmd = &cobra.Command{
	Use:   "start [doc-id]",
	Short: "Start a chat session for a ready document",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatStart,
}

var chatAskCmd = &cobra.Command{
	Use:   "ask [session-id] [question...]",
	Short: "Ask a question within a session",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runChatAsk,
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show the history of one or all active sessions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChatHistory,
}

var chatDeactivateCmd = &cobra.Command{
	Use:   "deactivate [session-id]",
	Short: "Deactivate a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatDeactivate,
}

func init() {
	chatCmd.AddCommand(chatStartCmd)
	chatCmd.AddCommand(chatAskCmd)
	chatCmd.AddCommand(chatHistoryCmd)
	chatCmd.AddCommand(chatDeactivateCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChatStart(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	session, err := chatService.Start(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to start chat: %w", err)
	}

	cmd.Printf("Started chat %s for document %s\n", session.ID, session.DocumentID)
	cmd.Printf("Ask with 'docqa chat ask %s <question>' or open 'docqa chat tui %s'.\n", session.ID, session.ID)
	return nil
}

func runChatAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	query := strings.Join(args[1:], " ")
	stream, err := chatService.Message(commandContext(cmd), args[0], query)
	if err != nil {
		return fmt.Errorf("failed to ask: %w", err)
	}
	defer stream.Close()

	out := cmd.OutOrStdout()
	for stream.Next() {
		fmt.Fprint(out, stream.Token())
	}
	fmt.Fprintln(out)

	if err := stream.Err(); err != nil {
		logger.Warn("answer generation failed: %v", err)
	}
	if _, ok := stream.Answer(); !ok {
		return errors.New("answer was interrupted")
	}
	return nil
}

func runChatHistory(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}
	ctx := commandContext(cmd)

	if len(args) == 1 {
		session, err := chatService.History(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}
		printSession(cmd, session)
		return nil
	}

	sessions, err := chatService.HistoryAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if len(sessions) == 0 {
		cmd.Println("No active chat sessions.")
		return nil
	}
	for i := range sessions {
		if i > 0 {
			cmd.Println()
		}
		printSession(cmd, &sessions[i])
	}
	return nil
}

func runChatDeactivate(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	if err := chatService.Deactivate(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to deactivate chat: %w", err)
	}

	cmd.Printf("Chat %s deactivated\n", args[0])
	return nil
}

func printSession(cmd *cobra.Command, session *domain.ChatSession) {
	cmd.Printf("Chat %s (document %s, started %s)\n",
		session.ID, session.DocumentID, session.StartedAt.Format(time.RFC3339))
	if len(session.Turns) == 0 {
		cmd.Println("  (no questions yet)")
		return
	}
	for _, turn := range session.Turns {
		cmd.Printf("  Q: %s\n", turn.Query)
		cmd.Printf("  A: %s\n", turn.Answer)
	}
}
