package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ondrejvana/rollcall/internal/camera"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Poll the camera and mark recognized students until interrupted",
	Long: `Run the capture loop in the foreground. Frames are fetched from the
configured camera snapshot URL, every recognized student is marked
present once per day, and events are printed as they happen.

Examples:
  rollcall capture
  rollcall capture --interval 1000`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().Int("interval", 0, "Delay between frames in milliseconds (overrides CAMERA_INTERVAL_MS)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if a.config.Camera.URL == "" {
		return errors.New("CAMERA_URL environment variable is required")
	}
	if a.service.GallerySize() == 0 {
		return errors.New("no encodings enrolled, register students first")
	}

	intervalMs := a.config.Camera.IntervalMs
	if flagInterval := mustGetInt(cmd, "interval"); flagInterval > 0 {
		intervalMs = flagInterval
	}
	interval := time.Duration(intervalMs) * time.Millisecond

	source := camera.NewHTTPFrameSource(a.config.Camera.URL)
	session := camera.NewSession(uuid.New().String(), source, a.service, interval)
	events := session.AddListener()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping capture...")
		cancel()
	}()

	if err := session.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("Capturing from %s every %s, press Ctrl+C to stop\n", a.config.Camera.URL, interval)

	for event := range events {
		switch event.Type {
		case "marked":
			fmt.Printf("Marked %s present\n", event.Message)
		case "recognized":
			fmt.Printf("Recognized %s (already marked)\n", event.Message)
		case "error":
			fmt.Fprintf(os.Stderr, "Frame error: %s\n", event.Message)
		case "failed":
			fmt.Fprintf(os.Stderr, "Capture failed: %s\n", event.Message)
		}
	}
	session.Wait()

	info := session.Snapshot()
	fmt.Printf("Processed %d frames, marked %d students\n", info.FramesProcessed, info.MarkedCount)
	if info.Status == camera.StatusFailed {
		return fmt.Errorf("capture ended with failure: %s", info.Error)
	}
	return nil
}
