package gallery

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/extractor"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Extractor detects faces and computes their embeddings.
// Satisfied by *extractor.Client.
type Extractor interface {
	DetectFaces(ctx context.Context, imageData []byte) (*extractor.FaceResponse, error)
}

// SkippedFile records a reference image excluded from the gallery.
type SkippedFile struct {
	Path   string
	Reason string
}

// LoadResult is the outcome of building a gallery from a directory.
type LoadResult struct {
	Gallery  *Gallery
	Skipped  []SkippedFile
	NoImages bool // directory contained no regular files at all
}

// Loader builds a gallery from a directory of reference images.
type Loader struct {
	Extractor Extractor
	Dim       int              // expected embedding dimensionality
	MultiFace string           // config.MultiFaceFirst or config.MultiFaceReject
	Progress  func(file string) // optional, called once per file before processing
}

// Load scans dir (non-recursive), extracts one face embedding per image and
// returns the resulting gallery. The identity of each entry is the base
// filename without extension. A file that cannot contribute an entry is
// skipped with a recorded reason; it never aborts the load.
func (l *Loader) Load(ctx context.Context, dir string) (*LoadResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading gallery directory: %w", err)
	}

	result := &LoadResult{Gallery: New(l.Dim)}

	files := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files++

		path := filepath.Join(dir, entry.Name())
		if l.Progress != nil {
			l.Progress(path)
		}

		name := IdentityFromFilename(entry.Name())
		if skip := l.loadOne(ctx, result.Gallery, path, name); skip != "" {
			result.Skipped = append(result.Skipped, SkippedFile{Path: path, Reason: skip})
		}
	}

	result.NoImages = files == 0
	return result, nil
}

// loadOne processes a single reference image. Returns an empty string on
// success or the skip reason otherwise.
func (l *Loader) loadOne(ctx context.Context, g *Gallery, path, name string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("unreadable file: %v", err)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Sprintf("not a decodable image: %v", err)
	}

	if g.Has(name) {
		return "duplicate identity (first reference image wins)"
	}

	resp, err := l.Extractor.DetectFaces(ctx, data)
	if err != nil {
		return fmt.Sprintf("face detection failed: %v", err)
	}

	if len(resp.Faces) == 0 {
		return "no face detected"
	}
	if len(resp.Faces) > 1 && l.MultiFace == config.MultiFaceReject {
		return fmt.Sprintf("%d faces detected, expected exactly one", len(resp.Faces))
	}

	// Multi-face policy "first": the extractor orders faces by detection,
	// take the first one.
	face := resp.Faces[0]
	if len(face.Embedding) != l.Dim {
		return fmt.Sprintf("embedding has %d components, expected %d", len(face.Embedding), l.Dim)
	}

	if err := g.Add(name, face.Embedding); err != nil {
		return err.Error()
	}
	return ""
}

// IdentityFromFilename derives the identity from a reference image filename.
func IdentityFromFilename(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
