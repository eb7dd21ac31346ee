// Package match resolves a query face embedding to an identity by exact
// nearest-neighbor search over the gallery.
package match

import (
	"errors"
	"fmt"
	"math"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// Unknown is the label returned when no gallery entry is close enough.
const Unknown = "Unknown"

// ErrDimMismatch is returned when a query embedding's dimensionality does not
// match the gallery's. The query is rejected, never coerced.
var ErrDimMismatch = errors.New("embedding dimensionality mismatch")

// Result is the outcome of matching one query embedding.
type Result struct {
	Name     string  // matched identity, or Unknown
	Distance float64 // euclidean distance to the nearest entry, -1 for an empty gallery
	Accepted bool    // whether Distance cleared the threshold
}

// Matcher matches query embeddings against a gallery. It is stateless and
// safe for concurrent use; each call is independent.
type Matcher struct {
	Threshold float64 // maximum euclidean distance for an accepted match
}

// NewMatcher creates a matcher with the given acceptance threshold.
func NewMatcher(threshold float64) *Matcher {
	return &Matcher{Threshold: threshold}
}

// Match finds the gallery entry nearest to query by euclidean distance.
// The nearest entry wins only if its distance is below the threshold,
// otherwise the result is Unknown with the distance still reported.
// Ties resolve to the first entry in gallery order.
func (m *Matcher) Match(g *gallery.Gallery, query []float32) (Result, error) {
	if g == nil || g.Len() == 0 {
		// argmin is undefined on an empty gallery; short-circuit.
		return Result{Name: Unknown, Distance: -1}, nil
	}
	if len(query) != g.Dim() {
		return Result{}, fmt.Errorf("%w: query has %d components, gallery has %d", ErrDimMismatch, len(query), g.Dim())
	}

	dim := g.Dim()
	arena := g.Arena()

	best := 0
	bestSq := squaredDistance(arena[:dim], query)
	for i := 1; i < g.Len(); i++ {
		sq := squaredDistance(arena[i*dim:(i+1)*dim], query)
		// Strict less-than keeps the first occurrence on ties.
		if sq < bestSq {
			bestSq = sq
			best = i
		}
	}

	dist := math.Sqrt(bestSq)
	if dist >= m.Threshold {
		return Result{Name: Unknown, Distance: dist}, nil
	}
	return Result{Name: g.Name(best), Distance: dist, Accepted: true}, nil
}

// squaredDistance computes the squared euclidean distance between two vectors
// of equal length.
func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// EuclideanDistance computes the euclidean distance between two vectors.
// Returns an error for mismatched or empty inputs.
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, fmt.Errorf("%w: got %d and %d components", ErrDimMismatch, len(a), len(b))
	}
	return math.Sqrt(squaredDistance(a, b)), nil
}
