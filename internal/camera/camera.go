// Package camera supplies frames to the recognition loop. Video capture
// itself stays outside the system; a frame is just the bytes of a still
// image, either fetched from an IP camera's snapshot endpoint or read from a
// directory of pre-captured files.
package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Source yields one frame per call as raw image bytes.
type Source interface {
	NextFrame(ctx context.Context) ([]byte, error)
}

// SnapshotClient fetches frames from a still-image URL, the convention most
// IP cameras expose (e.g., http://cam/snapshot.jpg).
type SnapshotClient struct {
	url    string
	client *http.Client
}

// NewSnapshotClient creates a snapshot source for the given URL.
func NewSnapshotClient(url string) *SnapshotClient {
	return &SnapshotClient{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// NextFrame fetches a single frame.
func (c *SnapshotClient) NextFrame(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("camera returned an empty frame")
	}
	return data, nil
}

// DirSource iterates the files of a directory once, in name order. Useful for
// offline runs against captured frames. NextFrame returns io.EOF when the
// directory is exhausted.
type DirSource struct {
	files []string
	pos   int
}

// NewDirSource creates a directory-backed frame source.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return &DirSource{files: files}, nil
}

// NextFrame reads the next file.
func (s *DirSource) NextFrame(ctx context.Context) ([]byte, error) {
	if s.pos >= len(s.files) {
		return nil, io.EOF
	}

	path := s.files[s.pos]
	s.pos++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading frame %s: %w", path, err)
	}
	return data, nil
}
