package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datalens-cli/internal/chat"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
)

var chatSheet string

var chatCmd = &cobra.Command{
	Use:   "chat <file>",
	Short: "Print a dataset summary and ask questions about it interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Loading dataset: %s\n", args[0])
		sum, err := loadSummary(args[0], chatSheet)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, "✓ Dataset loaded successfully!")
		printSummary(out, dataset.Stat(args[0]), sum)

		client, err := newChatClient(cfg)
		if err != nil {
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, warnStyle.Render("⚠ "+err.Error()))
			_, _ = fmt.Fprintln(out, "\nDataset summary is available above.")
			_, _ = fmt.Fprintln(out, "Configure your API key to enable Q&A functionality.")
			return nil
		}
		session := chat.NewSession(client, sum.SummaryText(), getLogger())

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          promptStyle.Render("You: "),
			HistoryFile:     historyFile(),
			InterruptPrompt: "^C",
			EOFPrompt:       "quit",
			Stdout:          out,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize REPL: %w", err)
		}
		defer func() { _ = rl.Close() }()

		chatLoop(cmd.Context(), rl, out, session)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatSheet, "sheet", "", "spreadsheet sheet name (default: first sheet)")
}

// lineReader is the part of *readline.Instance the loop needs.
type lineReader interface {
	Readline() (string, error)
}

// chatLoop reads questions until quit, Ctrl-C or EOF.
func chatLoop(ctx context.Context, rl lineReader, out io.Writer, s *chat.Session) {
	if ctx == nil {
		ctx = context.Background()
	}
	_, _ = fmt.Fprintln(out, "\nChat Mode - Ask questions about your dataset")
	_, _ = fmt.Fprintln(out, mutedStyle.Render("   Type 'quit' or 'exit' to end the session"))
	_, _ = fmt.Fprintln(out, mutedStyle.Render("   Type 'clear' to clear conversation history"))
	_, _ = fmt.Fprintln(out, strings.Repeat("-", 60))

	for {
		line, err := rl.Readline()
		if err != nil {
			// readline.ErrInterrupt on Ctrl-C, io.EOF on Ctrl-D
			_, _ = fmt.Fprintln(out, "\nGoodbye!")
			return
		}
		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		switch strings.ToLower(question) {
		case "quit", "exit", "q":
			_, _ = fmt.Fprintln(out, "\nGoodbye!")
			return
		case "clear":
			s.ClearHistory()
			_, _ = fmt.Fprintln(out, "✓ Conversation history cleared.")
			continue
		}

		answer, err := s.Ask(ctx, question)
		if err != nil {
			_, _ = fmt.Fprintln(out, errStyle.Render("✗ Error: "+err.Error()))
			continue
		}
		_, _ = fmt.Fprintf(out, "\n%s %s\n\n", answerStyle.Render("Assistant:"), answer)
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".datalens")
	if err := utils.EnsureDir(dir); err != nil {
		return ""
	}
	return filepath.Join(dir, "chat_history")
}
