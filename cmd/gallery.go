package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/store/postgres"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Manage the reference gallery",
}

var galleryLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the reference gallery and report what was enrolled",
	Long: `Load every image in the gallery directory through the embedding
service and report the enrolled identities and skipped files.

With --push the embeddings are also stored in the PostgreSQL cache so
later runs can skip the embedding service.`,
	RunE: runGalleryLoad,
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities",
	Long: `List the identities in the reference gallery. With --cache the
listing comes from the PostgreSQL embedding cache, otherwise from the
gallery directory on disk.`,
	RunE: runGalleryList,
}

var galleryAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Find suspiciously similar reference images",
	Long: `Audit the gallery for pairs of identities whose embeddings are
closer than a distance cutoff. Such pairs usually mean the same person
was enrolled twice under different names, which makes matches between
them arbitrary.`,
	RunE: runGalleryAudit,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryLoadCmd)
	galleryCmd.AddCommand(galleryListCmd)
	galleryCmd.AddCommand(galleryAuditCmd)

	galleryLoadCmd.Flags().Bool("push", false, "Store embeddings in the PostgreSQL cache")

	galleryListCmd.Flags().Bool("cache", false, "List from the PostgreSQL cache instead of the directory")

	galleryAuditCmd.Flags().Float64("max-distance", 0.4, "Report pairs closer than this distance")
	galleryAuditCmd.Flags().Bool("cache", false, "Audit the PostgreSQL cache instead of reloading the directory")
}

func runGalleryLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	client := extractor.NewClient(cfg.Embedding.URL)

	loader := newLoader(cfg, client)
	result, err := loadGalleryWithProgress(ctx, loader, cfg.Gallery.Dir)
	if err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}

	g := result.Gallery
	fmt.Printf("Loaded %d identities (dim %d)\n", g.Len(), g.Dim())
	printSkipped(result.Skipped)
	if result.NoImages {
		fmt.Println("Gallery directory contains no images")
	}

	if !mustGetBool(cmd, "push") {
		return nil
	}
	return pushGallery(ctx, cfg, g)
}

// pushGallery upserts the loaded embeddings into the PostgreSQL cache.
func pushGallery(ctx context.Context, cfg *config.Config, g *gallery.Gallery) error {
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	repo := postgres.NewGalleryRepository(pool)
	for i := 0; i < g.Len(); i++ {
		name := g.Name(i)
		if err := repo.Save(ctx, name, g.Embedding(i), cfg.Embedding.Model, ""); err != nil {
			return fmt.Errorf("saving %s: %w", name, err)
		}
	}
	fmt.Printf("Pushed %d embeddings to the cache\n", g.Len())
	return nil
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if mustGetBool(cmd, "cache") {
		return listFromCache(cmd.Context(), cfg)
	}
	return listFromDir(cfg.Gallery.Dir)
}

func listFromCache(ctx context.Context, cfg *config.Config) error {
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	defer pool.Close()

	entries, err := postgres.NewGalleryRepository(pool).All(ctx)
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDIM\tMODEL\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", e.Name, e.Dim, e.Model, e.CreatedAt.Format("2006-01-02"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d identities in the cache\n", len(entries))
	return nil
}

func listFromDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading gallery directory: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFILE")
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", gallery.IdentityFromFilename(entry.Name()), entry.Name())
		count++
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d reference images\n", count)
	return nil
}

func runGalleryAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	maxDistance := mustGetFloat64(cmd, "max-distance")

	g, err := auditGallery(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	if g.Len() < 2 {
		return errors.New("need at least two identities to audit")
	}

	pairs := gallery.FindNearDuplicates(g, maxDistance)
	if len(pairs) == 0 {
		fmt.Printf("No pairs closer than %.3f\n", maxDistance)
		return nil
	}

	fmt.Printf("%d suspicious pair(s) closer than %.3f:\n", len(pairs), maxDistance)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DISTANCE\tA\tB")
	for _, p := range pairs {
		fmt.Fprintf(w, "%.4f\t%s\t%s\n", p.Distance, p.A, p.B)
	}
	return w.Flush()
}

// auditGallery obtains the gallery to audit, either from the cache or by
// reloading the directory through the embedding service.
func auditGallery(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*gallery.Gallery, error) {
	if mustGetBool(cmd, "cache") {
		pool, err := postgres.NewPool(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		defer pool.Close()

		g, skipped, err := postgres.NewGalleryRepository(pool).LoadGallery(ctx, cfg.Embedding.Dim)
		if err != nil {
			return nil, fmt.Errorf("loading cache: %w", err)
		}
		for _, s := range skipped {
			fmt.Printf("skipped cached entry: %s\n", s)
		}
		return g, nil
	}

	client := extractor.NewClient(cfg.Embedding.URL)
	loader := newLoader(cfg, client)
	result, err := loadGalleryWithProgress(ctx, loader, cfg.Gallery.Dir)
	if err != nil {
		return nil, fmt.Errorf("loading gallery: %w", err)
	}
	printSkipped(result.Skipped)
	return result.Gallery, nil
}
