package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vbonduro/arogya/internal/camera"
	"github.com/vbonduro/arogya/internal/domain"
	"github.com/vbonduro/arogya/internal/session"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Analyze a skin image file",
	Long: `Load FILE (JPEG, PNG, GIF, BMP or WebP), send it with the standard
analysis instruction and print the assessment.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	client, err := newInferenceClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New("analyze", client, camera.NoDevices{}, logger)
	defer sess.Close()

	if _, err := sess.Images.LoadFromFile(data); err != nil {
		return userError(err)
	}
	return printAnalysis(ctx, cmd.OutOrStdout(), sess)
}

// printAnalysis analyzes the session's current image and writes the
// assessment text to w.
func printAnalysis(ctx context.Context, w io.Writer, sess *session.Session) error {
	result, err := sess.AnalyzeCurrent(ctx)
	if err != nil {
		return userError(err)
	}
	_, err = fmt.Fprintln(w, result.Text)
	return err
}

// userError reduces classified errors to the message a user should see.
func userError(err error) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return errors.New(domain.UserMessage(derr))
	}
	return err
}
