package gallery

import "testing"

func TestFindNearDuplicates(t *testing.T) {
	g := New(3)
	mustAdd := func(name string, emb []float32) {
		t.Helper()
		if err := g.Add(name, emb); err != nil {
			t.Fatal(err)
		}
	}
	mustAdd("alice", []float32{1, 0, 0})
	mustAdd("alice-copy", []float32{1.01, 0, 0})
	mustAdd("bob", []float32{0, 5, 0})

	pairs := FindNearDuplicates(g, 0.5)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 near-duplicate pair, got %d: %+v", len(pairs), pairs)
	}
	if pairs[0].A != "alice" || pairs[0].B != "alice-copy" {
		t.Errorf("unexpected pair: %+v", pairs[0])
	}
	if pairs[0].Distance > 0.02 {
		t.Errorf("unexpected distance: %f", pairs[0].Distance)
	}
}

func TestFindNearDuplicates_NoPairs(t *testing.T) {
	g := New(2)
	if err := g.Add("alice", []float32{0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := g.Add("bob", []float32{10, 10}); err != nil {
		t.Fatal(err)
	}

	if pairs := FindNearDuplicates(g, 0.5); len(pairs) != 0 {
		t.Errorf("expected no pairs, got %+v", pairs)
	}
}

func TestFindNearDuplicates_TinyGallery(t *testing.T) {
	g := New(2)
	if err := g.Add("alice", []float32{0, 0}); err != nil {
		t.Fatal(err)
	}

	if pairs := FindNearDuplicates(g, 0.5); pairs != nil {
		t.Errorf("expected nil for single-entry gallery, got %+v", pairs)
	}
}
