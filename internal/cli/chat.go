package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vbonduro/arogya/internal/camera"
	"github.com/vbonduro/arogya/internal/chat"
	"github.com/vbonduro/arogya/internal/domain"
	"github.com/vbonduro/arogya/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask skin health questions",
	Long: `Start a conversation with the assistant. Each line is one question.
Type /reset to start over or /quit to exit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := newInferenceClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New("chat", client, camera.NoDevices{}, logger)
	defer sess.Close()

	in := cmd.InOrStdin()
	return chatLoop(ctx, in, cmd.OutOrStdout(), sess.Chat, isTerminal(in))
}

// chatLoop reads questions line by line until EOF, /quit or ctx is done.
// The "> " prompt is only written when interactive.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, m *chat.Manager, interactive bool) error {
	printTurns(out, m.Transcript())
	if interactive {
		fmt.Fprintf(out, "Try: %s\n", strings.Join(chat.Suggestions, " | "))
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		// Commands and blank lines are matched trimmed; questions are sent as typed.
		switch strings.TrimSpace(line) {
		case "":
			continue
		case "/quit":
			return nil
		case "/reset":
			m.Initialize()
			printTurns(out, m.Transcript())
			continue
		}

		if reply, ok := m.Send(ctx, line); ok {
			printTurns(out, []domain.Turn{reply})
		}
	}
}

func printTurns(out io.Writer, turns []domain.Turn) {
	for _, t := range turns {
		label := "Assistant"
		if t.Speaker == domain.SpeakerUser {
			label = "You"
		}
		fmt.Fprintf(out, "%s: %s\n", label, t.Text)
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
