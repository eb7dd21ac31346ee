package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the camera and mark attendance",
	Long: `Run the attendance loop: grab frames from the camera, detect and
recognize faces against the reference gallery and record each recognized
person once per day in the ledger.

Frames come from the configured snapshot URL (CAMERA_URL) or, with --dir,
from a directory of still images processed once in name order.`,
	RunE: runAttendance,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("camera", "", "Snapshot URL override (defaults to CAMERA_URL)")
	runCmd.Flags().String("dir", "", "Process a directory of images instead of a camera")
	runCmd.Flags().Int("interval", 0, "Seconds between frames (defaults to CAMERA_INTERVAL)")
	runCmd.Flags().Float64("threshold", 0, "Match distance threshold override")
	runCmd.Flags().Bool("once", false, "Process a single frame and exit")
}

func runAttendance(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	client := extractor.NewClient(cfg.Embedding.URL)

	source, streaming, err := frameSource(cmd, cfg)
	if err != nil {
		return err
	}

	loader := newLoader(cfg, client)
	result, err := loadGalleryWithProgress(ctx, loader, cfg.Gallery.Dir)
	if err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}
	printSkipped(result.Skipped)
	if result.Gallery.Len() == 0 {
		return errors.New("gallery is empty, nothing to recognize")
	}
	fmt.Printf("Gallery ready: %d identities (dim %d)\n", result.Gallery.Len(), result.Gallery.Dim())

	store, closeStore, err := newLedgerStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	matcher := newMatcher(cmd, cfg)
	pipe := pipeline.New(client, result.Gallery, matcher, store)
	fmt.Printf("Run %s started (threshold %.3f)\n", pipe.RunID(), matcher.Threshold)

	interval := time.Duration(cfg.Camera.Interval) * time.Second
	if n := mustGetInt(cmd, "interval"); n > 0 {
		interval = time.Duration(n) * time.Second
	}

	if mustGetBool(cmd, "once") {
		return processNextFrame(ctx, source, pipe)
	}
	if !streaming {
		return drainSource(ctx, source, pipe)
	}
	return watchCamera(ctx, source, pipe, interval)
}

// frameSource picks between the snapshot camera and a directory of stills.
// The second return value reports whether the source is endless.
func frameSource(cmd *cobra.Command, cfg *config.Config) (camera.Source, bool, error) {
	if dir := mustGetString(cmd, "dir"); dir != "" {
		src, err := camera.NewDirSource(dir)
		if err != nil {
			return nil, false, fmt.Errorf("opening frame directory: %w", err)
		}
		return src, false, nil
	}

	url := mustGetString(cmd, "camera")
	if url == "" {
		url = cfg.Camera.URL
	}
	if url == "" {
		return nil, false, errors.New("no frame source: set CAMERA_URL or pass --camera or --dir")
	}
	return camera.NewSnapshotClient(url), true, nil
}

// watchCamera polls the camera until the context is cancelled. A single bad
// frame is logged and skipped, the loop keeps going.
func watchCamera(ctx context.Context, source camera.Source, pipe *pipeline.Pipeline, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopping attendance loop")
			return nil
		case <-ticker.C:
			if err := processNextFrame(ctx, source, pipe); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Printf("frame skipped: %v\n", err)
			}
		}
	}
}

// drainSource processes a finite source until it runs out of frames.
func drainSource(ctx context.Context, source camera.Source, pipe *pipeline.Pipeline) error {
	for {
		if err := processNextFrame(ctx, source, pipe); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("frame skipped: %v\n", err)
		}
	}
}

func processNextFrame(ctx context.Context, source camera.Source, pipe *pipeline.Pipeline) error {
	frame, err := source.NextFrame(ctx)
	if err != nil {
		return err
	}

	results, err := pipe.ProcessFrame(ctx, frame)
	if err != nil {
		return fmt.Errorf("processing frame: %w", err)
	}
	for _, res := range results {
		printFaceResult(res)
	}
	return nil
}

func printFaceResult(res pipeline.FaceResult) {
	switch {
	case res.Err != nil:
		fmt.Printf("  face error: %v\n", res.Err)
	case !res.Match.Accepted:
		fmt.Printf("  %s (distance %.3f)\n", match.Unknown, res.Match.Distance)
	default:
		fmt.Printf("  %s (distance %.3f, %s)\n", res.Match.Name, res.Match.Distance, res.Outcome)
	}
}
