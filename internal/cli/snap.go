package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vbonduro/arogya/internal/domain"
	"github.com/vbonduro/arogya/internal/export"
	"github.com/vbonduro/arogya/internal/session"
)

var (
	snapFacing    string
	snapOut       string
	snapNoAnalyze bool
)

var snapCmd = &cobra.Command{
	Use:   "snap",
	Short: "Capture one camera frame and analyze it",
	Long: `Open the camera, capture a single frame at its native resolution,
release the camera, then optionally save the JPEG and analyze it.`,
	Args: cobra.NoArgs,
	RunE: runSnap,
}

func init() {
	snapCmd.Flags().StringVar(&snapFacing, "facing", "back", "camera to use: back or front")
	snapCmd.Flags().StringVar(&snapOut, "out", "", "save the captured JPEG to this file or directory")
	snapCmd.Flags().BoolVar(&snapNoAnalyze, "no-analyze", false, "capture only; skip the analysis")
}

func runSnap(cmd *cobra.Command, args []string) error {
	facing, ok := domain.ParseFacingMode(snapFacing)
	if !ok {
		return fmt.Errorf("--facing must be back or front, got %q", snapFacing)
	}

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

	sess := session.New("snap", client, newDevices(cfg, logger), logger)
	defer sess.Close()

	if err := sess.Camera.Start(ctx, facing); err != nil {
		return userError(err)
	}
	img, err := sess.Camera.Capture()
	if err != nil {
		return userError(err)
	}

	if snapOut != "" {
		path, err := export.Write(img, snapOut)
		if err != nil {
			return fmt.Errorf("failed to save capture: %w", err)
		}
		logger.Info("capture saved", "path", path, "bytes", len(img.Data))
	}
	if snapNoAnalyze {
		return nil
	}
	return printAnalysis(ctx, cmd.OutOrStdout(), sess)
}
