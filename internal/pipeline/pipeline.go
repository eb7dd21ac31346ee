// Package pipeline glues the per-frame pieces together: extract faces, match
// each one against the gallery, and mark attendance for accepted matches.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/match"
)

// markAttempts bounds retries of a failed ledger write. Persistent storage
// failures surface to the caller instead of retrying forever.
const markAttempts = 3

// Extractor detects faces and computes their embeddings.
type Extractor interface {
	DetectFaces(ctx context.Context, imageData []byte) (*extractor.FaceResponse, error)
}

// FaceResult is the outcome for one face in a frame.
type FaceResult struct {
	BBox    []float64      // pixel bounding box from the extractor
	Match   match.Result   // label, distance, acceptance
	Outcome ledger.Outcome // set when the match was accepted and the mark attempt finished
	Err     error          // per-face failure (bad embedding, ledger write failure)
}

// Pipeline processes frames. The gallery is read-only and shared; the ledger
// serializes its own writes, so a single pipeline is safe for concurrent use.
type Pipeline struct {
	extractor Extractor
	gal       *gallery.Gallery
	matcher   *match.Matcher
	store     ledger.Store

	runID string
	now   func() time.Time
}

// New creates a pipeline. A fresh run ID tags all log lines of this instance.
func New(ex Extractor, g *gallery.Gallery, m *match.Matcher, store ledger.Store) *Pipeline {
	return &Pipeline{
		extractor: ex,
		gal:       g,
		matcher:   m,
		store:     store,
		runID:     uuid.NewString(),
		now:       time.Now,
	}
}

// RunID returns the identifier tagging this pipeline's log lines.
func (p *Pipeline) RunID() string {
	return p.runID
}

// ProcessFrame extracts faces from raw frame bytes and resolves each one.
func (p *Pipeline) ProcessFrame(ctx context.Context, imageData []byte) ([]FaceResult, error) {
	resp, err := p.extractor.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("extracting faces: %w", err)
	}
	return p.ResolveFaces(ctx, resp.Faces), nil
}

// ResolveFaces matches and marks a frame's pre-extracted faces. Each face is
// handled independently; the returned slice is parallel to the input.
func (p *Pipeline) ResolveFaces(ctx context.Context, faces []extractor.Face) []FaceResult {
	results := make([]FaceResult, len(faces))
	for i, face := range faces {
		results[i] = p.resolveOne(ctx, face)
	}
	return results
}

func (p *Pipeline) resolveOne(ctx context.Context, face extractor.Face) FaceResult {
	result := FaceResult{BBox: face.BBox}

	m, err := p.matcher.Match(p.gal, face.Embedding)
	if err != nil {
		result.Err = err
		return result
	}
	result.Match = m

	if !m.Accepted {
		return result
	}

	at := p.now()
	outcome, err := p.markWithRetry(ctx, m.Name, at)
	if err != nil {
		log.Printf("[run %s] failed to mark %s: %v", p.runID, m.Name, err)
		result.Err = fmt.Errorf("marking attendance for %s: %w", m.Name, err)
		return result
	}

	result.Outcome = outcome
	if outcome == ledger.Marked {
		log.Printf("[run %s] marked %s at %s (distance %.3f)", p.runID, m.Name, at.Format("15:04:05"), m.Distance)
	}
	return result
}

// markWithRetry attempts the ledger write a bounded number of times.
func (p *Pipeline) markWithRetry(ctx context.Context, name string, at time.Time) (ledger.Outcome, error) {
	var lastErr error
	for attempt := 0; attempt < markAttempts; attempt++ {
		outcome, err := p.store.Mark(ctx, at, name, at)
		if err == nil {
			return outcome, nil
		}
		lastErr = err
	}
	return "", lastErr
}
