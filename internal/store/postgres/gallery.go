package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// StoredEntry is one cached gallery embedding.
type StoredEntry struct {
	Name       string
	Embedding  []float32
	Dim        int
	Model      string
	SourceFile string
	CreatedAt  time.Time
}

// GalleryRepository provides PostgreSQL-backed gallery embedding storage.
type GalleryRepository struct {
	pool *Pool
}

// NewGalleryRepository creates a new repository.
func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// Save stores a gallery entry (upsert by identity name).
func (r *GalleryRepository) Save(ctx context.Context, name string, embedding []float32, model, sourceFile string) error {
	vec := pgvector.NewVector(embedding)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO gallery_embeddings (name, embedding, dim, model, source_file, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (name)
		DO UPDATE SET embedding = $2, dim = $3, model = $4, source_file = $5, created_at = NOW()
	`, name, vec, len(embedding), model, sourceFile)
	if err != nil {
		return fmt.Errorf("save gallery embedding: %w", err)
	}
	return nil
}

// All returns every cached entry in name order.
func (r *GalleryRepository) All(ctx context.Context) ([]StoredEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, embedding, dim, model, source_file, created_at
		FROM gallery_embeddings
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query gallery embeddings: %w", err)
	}
	defer rows.Close()

	var entries []StoredEntry
	for rows.Next() {
		var e StoredEntry
		var vec pgvector.Vector
		if err := rows.Scan(&e.Name, &vec, &e.Dim, &e.Model, &e.SourceFile, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan gallery embedding: %w", err)
		}
		e.Embedding = vec.Slice()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of cached entries.
func (r *GalleryRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM gallery_embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count gallery embeddings: %w", err)
	}
	return count, nil
}

// DeleteAll clears the cache.
func (r *GalleryRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM gallery_embeddings"); err != nil {
		return fmt.Errorf("clear gallery embeddings: %w", err)
	}
	return nil
}

// FindNearest returns the cached entries closest to the query embedding by
// euclidean distance, with their distances.
func (r *GalleryRepository) FindNearest(ctx context.Context, embedding []float32, limit int) ([]StoredEntry, []float64, error) {
	vec := pgvector.NewVector(embedding)

	rows, err := r.pool.Query(ctx, `
		SELECT name, embedding, dim, model, source_file, created_at, embedding <-> $1 AS distance
		FROM gallery_embeddings
		ORDER BY embedding <-> $1
		LIMIT $2
	`, vec, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query nearest gallery embeddings: %w", err)
	}
	defer rows.Close()

	var entries []StoredEntry
	var distances []float64
	for rows.Next() {
		var e StoredEntry
		var vec pgvector.Vector
		var dist float64
		if err := rows.Scan(&e.Name, &vec, &e.Dim, &e.Model, &e.SourceFile, &e.CreatedAt, &dist); err != nil {
			return nil, nil, fmt.Errorf("scan nearest gallery embedding: %w", err)
		}
		e.Embedding = vec.Slice()
		entries = append(entries, e)
		distances = append(distances, dist)
	}
	return entries, distances, rows.Err()
}

// LoadGallery rebuilds an in-memory gallery from the cache. Entries whose
// dimensionality does not match are skipped and reported.
func (r *GalleryRepository) LoadGallery(ctx context.Context, dim int) (*gallery.Gallery, []string, error) {
	entries, err := r.All(ctx)
	if err != nil {
		return nil, nil, err
	}

	g := gallery.New(dim)
	var skipped []string
	for _, e := range entries {
		if len(e.Embedding) != dim {
			skipped = append(skipped, e.Name)
			continue
		}
		if err := g.Add(e.Name, e.Embedding); err != nil {
			skipped = append(skipped, e.Name)
		}
	}
	return g, skipped, nil
}
