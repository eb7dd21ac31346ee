package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Attendance web server.
The API accepts camera frames for recognition, serves attendance records
and manages the reference gallery.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Float64("threshold", 0, "Match distance threshold override")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	client := extractor.NewClient(cfg.Embedding.URL)

	store, closeStore, err := newLedgerStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	loader := newLoader(cfg, client)
	state := handlers.NewState(store, client, newMatcher(cmd, cfg), loader, cfg.Gallery.Dir, nil)

	// Load the gallery up front so the API is useful immediately. A failure
	// is not fatal, a reload request can fix it once the problem is gone.
	if result, err := loader.Load(ctx, cfg.Gallery.Dir); err != nil {
		fmt.Printf("Warning: gallery not loaded: %v\n", err)
	} else {
		printSkipped(result.Skipped)
		state.SetGallery(result.Gallery, result.Skipped)
		fmt.Printf("Gallery ready: %d identities (dim %d)\n", result.Gallery.Len(), result.Gallery.Dim())
	}

	server := web.NewServer(cfg, mustGetInt(cmd, "port"), mustGetString(cmd, "host"), state)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
