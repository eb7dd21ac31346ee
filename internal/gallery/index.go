package gallery

import (
	"sort"

	"github.com/coder/hnsw"
)

// hnswMaxNeighbors is the M parameter for the audit graph. Galleries are
// small, so the default trade-off is fine.
const hnswMaxNeighbors = 16

// AuditPair reports two gallery identities whose reference embeddings sit
// suspiciously close together, which usually means the same person appears
// under two filenames.
type AuditPair struct {
	A        string
	B        string
	Distance float64
}

// FindNearDuplicates builds an HNSW index over the gallery and returns every
// pair of distinct identities within maxDistance of each other, ordered by
// ascending distance.
func FindNearDuplicates(g *Gallery, maxDistance float64) []AuditPair {
	if g.Len() < 2 {
		return nil
	}

	graph := hnsw.NewGraph[int]()
	graph.M = hnswMaxNeighbors
	graph.Ml = 1.0 / float64(hnswMaxNeighbors)
	graph.Distance = hnsw.EuclideanDistance

	for i := 0; i < g.Len(); i++ {
		graph.Add(hnsw.MakeNode(i, g.Embedding(i)))
	}

	seen := make(map[[2]int]bool)
	var pairs []AuditPair

	for i := 0; i < g.Len(); i++ {
		// k=2 so we get the entry itself plus its nearest neighbor.
		neighbors := graph.Search(g.Embedding(i), 2)
		for _, n := range neighbors {
			if n.Key == i {
				continue
			}
			key := [2]int{min(i, n.Key), max(i, n.Key)}
			if seen[key] {
				continue
			}
			seen[key] = true

			// The graph search is approximate; recompute the exact distance.
			dist := float64(hnsw.EuclideanDistance(g.Embedding(i), n.Value))
			if dist > maxDistance {
				continue
			}
			pairs = append(pairs, AuditPair{
				A:        g.Name(key[0]),
				B:        g.Name(key[1]),
				Distance: dist,
			})
		}
	}

	sort.Slice(pairs, func(a, b int) bool { return pairs[a].Distance < pairs[b].Distance })
	return pairs
}
