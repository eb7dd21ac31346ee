package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
)

// State is the shared recognition state behind the API handlers. The gallery
// is replaced wholesale by a reload job, so reads go through a lock while
// the gallery itself stays immutable.
type State struct {
	Store      ledger.Store
	Extractor  pipeline.Extractor
	Matcher    *match.Matcher
	Loader     *gallery.Loader
	GalleryDir string

	mu       sync.RWMutex
	gal      *gallery.Gallery
	pipe     *pipeline.Pipeline
	skipped  []gallery.SkippedFile
	loadedAt time.Time
}

// NewState creates handler state around an already loaded gallery.
func NewState(store ledger.Store, ex pipeline.Extractor, m *match.Matcher, loader *gallery.Loader, dir string, loaded *gallery.LoadResult) *State {
	s := &State{
		Store:      store,
		Extractor:  ex,
		Matcher:    m,
		Loader:     loader,
		GalleryDir: dir,
	}
	if loaded != nil {
		s.SetGallery(loaded.Gallery, loaded.Skipped)
	}
	return s
}

// Gallery returns the currently active gallery. May be nil before the
// first successful load.
func (s *State) Gallery() *gallery.Gallery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gal
}

// Pipeline returns the recognition pipeline bound to the active gallery.
func (s *State) Pipeline() *pipeline.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipe
}

// Skipped returns the skip records from the last gallery load.
func (s *State) Skipped() []gallery.SkippedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skipped
}

// LoadedAt returns when the active gallery was installed.
func (s *State) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// SetGallery swaps in a freshly loaded gallery and rebuilds the pipeline.
// In-flight requests keep using the old gallery; new requests see the new one.
func (s *State) SetGallery(g *gallery.Gallery, skipped []gallery.SkippedFile) {
	pipe := pipeline.New(s.Extractor, g, s.Matcher, s.Store)
	s.mu.Lock()
	s.gal = g
	s.pipe = pipe
	s.skipped = skipped
	s.loadedAt = time.Now()
	s.mu.Unlock()
}

// Reload rebuilds the gallery from the configured directory and installs it.
func (s *State) Reload(ctx context.Context) (*gallery.LoadResult, error) {
	result, err := s.Loader.Load(ctx, s.GalleryDir)
	if err != nil {
		return nil, err
	}
	s.SetGallery(result.Gallery, result.Skipped)
	return result, nil
}
