// Package gallery builds and holds the set of known (identity, embedding)
// pairs used as match candidates. A gallery is built once from a directory of
// reference images and is read-only afterwards, so it can be shared across
// concurrent matchers without locking.
package gallery

import (
	"fmt"
)

// Gallery stores identities alongside a flat embedding arena. Entry i owns
// arena[i*dim : (i+1)*dim] and names[i].
type Gallery struct {
	dim   int
	names []string
	arena []float32
}

// New creates an empty gallery for embeddings of the given dimensionality.
func New(dim int) *Gallery {
	return &Gallery{dim: dim}
}

// Add appends an entry. Only the loader should call this; the gallery is
// treated as immutable once matching starts.
func (g *Gallery) Add(name string, embedding []float32) error {
	if len(embedding) != g.dim {
		return fmt.Errorf("embedding for %q has %d components, gallery expects %d", name, len(embedding), g.dim)
	}
	g.names = append(g.names, name)
	g.arena = append(g.arena, embedding...)
	return nil
}

// Len returns the number of entries.
func (g *Gallery) Len() int {
	return len(g.names)
}

// Dim returns the embedding dimensionality.
func (g *Gallery) Dim() int {
	return g.dim
}

// Name returns the identity of entry i.
func (g *Gallery) Name(i int) string {
	return g.names[i]
}

// Embedding returns a view into the arena for entry i. Callers must not
// modify the returned slice.
func (g *Gallery) Embedding(i int) []float32 {
	return g.arena[i*g.dim : (i+1)*g.dim]
}

// Arena returns the flat embedding arena. Callers must not modify it.
func (g *Gallery) Arena() []float32 {
	return g.arena
}

// Names returns a copy of all identities in insertion order.
func (g *Gallery) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Has reports whether an identity is already present, compared after
// diacritics normalization so "Jiří.jpg" and "jiri.png" collide.
func (g *Gallery) Has(name string) bool {
	norm := NormalizeIdentity(name)
	for _, n := range g.names {
		if NormalizeIdentity(n) == norm {
			return true
		}
	}
	return false
}
