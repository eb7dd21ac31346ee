package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/match"
)

// resolveThreshold applies the --threshold flag on top of the configured
// value. A zero flag means "not set".
func resolveThreshold(cmd *cobra.Command, cfg *config.Config) float64 {
	if t := mustGetFloat64(cmd, "threshold"); t > 0 {
		return t
	}
	return cfg.Match.Threshold
}

// newMatcher builds the matcher for a command run.
func newMatcher(cmd *cobra.Command, cfg *config.Config) *match.Matcher {
	return match.NewMatcher(resolveThreshold(cmd, cfg))
}

// newLedgerStore picks the ledger backend. MySQL when a DSN is configured,
// per-day CSV files otherwise. The returned closer is a no-op for CSV.
func newLedgerStore(cfg *config.Config) (ledger.Store, func() error, error) {
	if cfg.Ledger.MySQLDSN != "" {
		store, err := ledger.NewMySQLStore(cfg.Ledger.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to MySQL ledger: %w", err)
		}
		fmt.Println("Using MySQL attendance ledger")
		return store, store.Close, nil
	}
	store := ledger.NewCSVStore(cfg.Ledger.Dir)
	return store, func() error { return nil }, nil
}

// newLoader builds a gallery loader around the embedding service client.
func newLoader(cfg *config.Config, client *extractor.Client) *gallery.Loader {
	return &gallery.Loader{
		Extractor: client,
		Dim:       cfg.Embedding.Dim,
		MultiFace: cfg.Gallery.MultiFace,
	}
}

// loadGalleryWithProgress loads the reference directory showing a progress bar.
func loadGalleryWithProgress(ctx context.Context, loader *gallery.Loader, dir string) (*gallery.LoadResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading gallery directory: %w", err)
	}
	total := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			total++
		}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Loading gallery"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
	loader.Progress = func(file string) { _ = bar.Add(1) }
	defer func() {
		_ = bar.Finish()
		fmt.Println()
	}()

	return loader.Load(ctx, dir)
}

// printSkipped prints the files excluded from a gallery load.
func printSkipped(skipped []gallery.SkippedFile) {
	if len(skipped) == 0 {
		return
	}
	fmt.Printf("Skipped %d file(s):\n", len(skipped))
	for _, s := range skipped {
		fmt.Printf("  %s: %s\n", s.Path, s.Reason)
	}
}
