package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"face-greeter-go/config"
	"face-greeter-go/internal/integrations/opencv"
	"face-greeter-go/internal/util/timezone"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the camera loop and greet new faces",
	Long: `Open the camera, detect and track faces and play a greeting for every new
identity. Press q in the preview window or send SIGINT/SIGTERM to stop; the
encounter ledger is written before the program exits.`,
	RunE: runGreeter,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("camera", "", "Camera device path (e.g., /dev/video0) or index (e.g., 0, 1)")
	cmd.Flags().String("mode", "", "Greeting mode: random-language, custom-recording or sequential-by-encounter")
	cmd.Flags().String("custom-voice", "", "Name of the custom recording to play (implies custom-recording mode)")
	cmd.Flags().Bool("no-window", false, "Do not open the preview window")
}

// applyRunFlags überschreibt die Konfiguration mit explizit gesetzten Flags
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("camera") {
		cfg.Camera.Source = mustGetString(cmd, "camera")
	}
	if flags.Changed("custom-voice") {
		cfg.Greeting.CustomVoice = mustGetString(cmd, "custom-voice")
		if !flags.Changed("mode") {
			cfg.Greeting.Mode = config.ModeCustomRecording
		}
	}
	if flags.Changed("mode") {
		cfg.Greeting.Mode = mustGetString(cmd, "mode")
	}
	if mustGetBool(cmd, "no-window") {
		cfg.Camera.ShowWindow = false
	}
	return cfg.Validate()
}

func runGreeter(cmd *cobra.Command, args []string) error {
	cfg, release, err := loadConfig()
	if err != nil {
		return err
	}
	defer release()

	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Starting face greeter %s (mode %s)", Version, cfg.Greeting.Mode)

	g, err := newGreeter(ctx, cfg, timezone.Now())
	if err != nil {
		return fmt.Errorf("failed to initialize greeter: %w", err)
	}

	vision, err := opencv.NewService(cfg, cfg.Camera.ShowWindow)
	if err != nil {
		g.Close(context.Background())
		return err
	}
	log.Infof("Successfully opened camera: %s", vision.CameraSource())

	g.startServer(vision.DebugSvc)

	loopErr := runLoop(ctx, g, vision)

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	closeErr := g.Close(shutdownCtx)
	if err := vision.Close(); err != nil {
		log.WithError(err).Warn("Failed to release camera")
	}

	if loopErr != nil {
		return loopErr
	}
	return closeErr
}

// runLoop verarbeitet Frames, bis q gedrückt wird, ein Signal eintrifft oder die Kamera ausfällt
func runLoop(ctx context.Context, g *greeter, vision *opencv.Service) error {
	for {
		select {
		case <-ctx.Done():
			log.Info("Stop signal received")
			return nil
		default:
		}

		frame, faces, err := vision.Next()
		if err != nil {
			return fmt.Errorf("camera stopped delivering frames: %w", err)
		}

		result := g.proc.Process(timezone.Now(), faces, frame)
		if vision.Render(result.Live, result.Outcomes, statusLines(g.proc.State())) {
			log.Info("Quit key pressed")
			return nil
		}
	}
}
