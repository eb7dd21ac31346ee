//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-attendance/internal/config"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	pool, err := NewPool(&config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestGalleryRepository_SaveAndLoad(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewGalleryRepository(pool)

	if err := repo.Save(ctx, "alice", []float32{1, 0, 0, 0}, "dlib", "alice.jpg"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := repo.Save(ctx, "bob", []float32{0, 1, 0, 0}, "dlib", "bob.jpg"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Upsert: saving alice again must not create a second row.
	if err := repo.Save(ctx, "alice", []float32{1, 1, 0, 0}, "dlib", "alice2.jpg"); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected 2 entries, got %d", count)
	}

	g, skipped, err := repo.LoadGallery(ctx, 4)
	if err != nil {
		t.Fatalf("LoadGallery failed: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("unexpected skipped entries: %v", skipped)
	}
	if g.Len() != 2 {
		t.Fatalf("expected 2 gallery entries, got %d", g.Len())
	}
	if emb := g.Embedding(0); emb[1] != 1 {
		t.Errorf("upsert did not replace the embedding: %v", emb)
	}
}

func TestGalleryRepository_FindNearest(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewGalleryRepository(pool)

	if err := repo.Save(ctx, "alice", []float32{1, 0}, "dlib", "alice.jpg"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, "bob", []float32{0, 10}, "dlib", "bob.jpg"); err != nil {
		t.Fatal(err)
	}

	entries, distances, err := repo.FindNearest(ctx, []float32{0.9, 0}, 1)
	if err != nil {
		t.Fatalf("FindNearest failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "alice" {
		t.Errorf("expected alice as nearest, got %+v", entries)
	}
	if len(distances) != 1 || distances[0] > 0.2 {
		t.Errorf("unexpected distance: %v", distances)
	}
}

func TestGalleryRepository_DeleteAll(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewGalleryRepository(pool)

	if err := repo.Save(ctx, "alice", []float32{1, 0}, "dlib", "alice.jpg"); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected empty cache, got %d entries", count)
	}
}
