package gallery

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/extractor"
)

// fakeExtractor returns canned face responses keyed by the identity derived
// from the posted image content (written into the file by writeTestImage).
type fakeExtractor struct {
	responses map[string]*extractor.FaceResponse
	err       error
	calls     int
}

func (f *fakeExtractor) DetectFaces(ctx context.Context, imageData []byte) (*extractor.FaceResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for key, resp := range f.responses {
		if strings.Contains(string(imageData), key) {
			return resp, nil
		}
	}
	return &extractor.FaceResponse{FacesCount: 0, Faces: []extractor.Face{}}, nil
}

// writeTestImage writes a valid PNG followed by a marker string so the fake
// extractor can tell files apart. DecodeConfig only reads the header, so the
// trailing marker does not break decoding.
func writeTestImage(t *testing.T, dir, filename, marker string) {
	t.Helper()
	var buf strings.Builder
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	data := buf.String() + marker
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
}

func faceResponse(embedding []float32, count int) *extractor.FaceResponse {
	faces := make([]extractor.Face, count)
	for i := range faces {
		faces[i] = extractor.Face{
			FaceIndex: i,
			Dim:       len(embedding),
			Embedding: embedding,
			BBox:      []float64{0, 0, 10, 10},
			DetScore:  0.9,
		}
	}
	return &extractor.FaceResponse{FacesCount: count, Faces: faces}
}

func TestLoad_SkipsImagesWithoutFaces(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "alice.jpg", "face:alice")
	writeTestImage(t, dir, "bad.jpg", "face:none")

	loader := &Loader{
		Extractor: &fakeExtractor{responses: map[string]*extractor.FaceResponse{
			"face:alice": faceResponse([]float32{1, 2, 3, 4}, 1),
		}},
		Dim:       4,
		MultiFace: config.MultiFaceFirst,
	}

	result, err := loader.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if result.Gallery.Len() != 1 {
		t.Fatalf("expected 1 gallery entry, got %d", result.Gallery.Len())
	}
	if result.Gallery.Name(0) != "alice" {
		t.Errorf("expected identity 'alice', got %q", result.Gallery.Name(0))
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("expected 1 skipped file, got %d", len(result.Skipped))
	}
	if !strings.Contains(result.Skipped[0].Reason, "no face") {
		t.Errorf("unexpected skip reason: %q", result.Skipped[0].Reason)
	}
	if result.NoImages {
		t.Error("NoImages should be false when files exist")
	}
}

func TestLoad_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	loader := &Loader{
		Extractor: &fakeExtractor{},
		Dim:       4,
		MultiFace: config.MultiFaceFirst,
	}

	result, err := loader.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !result.NoImages {
		t.Error("expected NoImages for empty directory")
	}
	if result.Gallery.Len() != 0 {
		t.Errorf("expected empty gallery, got %d entries", result.Gallery.Len())
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	loader := &Loader{Extractor: &fakeExtractor{}, Dim: 4}

	_, err := loader.Load(context.Background(), "/does/not/exist")
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLoad_IgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestImage(t, filepath.Join(dir, "nested"), "bob.jpg", "face:bob")
	writeTestImage(t, dir, "alice.jpg", "face:alice")

	fake := &fakeExtractor{responses: map[string]*extractor.FaceResponse{
		"face:alice": faceResponse([]float32{1, 2, 3, 4}, 1),
		"face:bob":   faceResponse([]float32{5, 6, 7, 8}, 1),
	}}
	loader := &Loader{Extractor: fake, Dim: 4, MultiFace: config.MultiFaceFirst}

	result, err := loader.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if result.Gallery.Len() != 1 || result.Gallery.Name(0) != "alice" {
		t.Errorf("expected only top-level alice, got %v", result.Gallery.Names())
	}
	if fake.calls != 1 {
		t.Errorf("expected 1 extractor call, got %d", fake.calls)
	}
}

func TestLoad_SkipsUndecodableFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := &fakeExtractor{}
	loader := &Loader{Extractor: fake, Dim: 4, MultiFace: config.MultiFaceFirst}

	result, err := loader.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("expected 1 skipped file, got %d", len(result.Skipped))
	}
	if !strings.Contains(result.Skipped[0].Reason, "not a decodable image") {
		t.Errorf("unexpected skip reason: %q", result.Skipped[0].Reason)
	}
	if fake.calls != 0 {
		t.Errorf("extractor should not be called for undecodable files, got %d calls", fake.calls)
	}
}

func TestLoad_DuplicateIdentity(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "alice.jpg", "face:alice")
	writeTestImage(t, dir, "alice.png", "face:alice2")

	loader := &Loader{
		Extractor: &fakeExtractor{responses: map[string]*extractor.FaceResponse{
			"face:alice":  faceResponse([]float32{1, 2, 3, 4}, 1),
			"face:alice2": faceResponse([]float32{5, 6, 7, 8}, 1),
		}},
		Dim:       4,
		MultiFace: config.MultiFaceFirst,
	}

	result, err := loader.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if result.Gallery.Len() != 1 {
		t.Fatalf("expected 1 entry after duplicate skip, got %d", result.Gallery.Len())
	}
	if len(result.Skipped) != 1 || !strings.Contains(result.Skipped[0].Reason, "duplicate identity") {
		t.Errorf("expected duplicate identity skip, got %+v", result.Skipped)
	}
}

func TestLoad_MultiFacePolicies(t *testing.T) {
	tests := []struct {
		policy      string
		wantEntries int
		wantSkipped int
	}{
		{config.MultiFaceFirst, 1, 0},
		{config.MultiFaceReject, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			dir := t.TempDir()
			writeTestImage(t, dir, "group.jpg", "face:group")

			loader := &Loader{
				Extractor: &fakeExtractor{responses: map[string]*extractor.FaceResponse{
					"face:group": faceResponse([]float32{1, 2, 3, 4}, 3),
				}},
				Dim:       4,
				MultiFace: tt.policy,
			}

			result, err := loader.Load(context.Background(), dir)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if result.Gallery.Len() != tt.wantEntries {
				t.Errorf("expected %d entries, got %d", tt.wantEntries, result.Gallery.Len())
			}
			if len(result.Skipped) != tt.wantSkipped {
				t.Errorf("expected %d skipped, got %d", tt.wantSkipped, len(result.Skipped))
			}
		})
	}
}

func TestLoad_DimMismatchSkipped(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "alice.jpg", "face:alice")

	loader := &Loader{
		Extractor: &fakeExtractor{responses: map[string]*extractor.FaceResponse{
			"face:alice": faceResponse([]float32{1, 2}, 1), // 2-d instead of 4-d
		}},
		Dim:       4,
		MultiFace: config.MultiFaceFirst,
	}

	result, err := loader.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if result.Gallery.Len() != 0 {
		t.Errorf("expected no entries for mismatched dim, got %d", result.Gallery.Len())
	}
	if len(result.Skipped) != 1 || !strings.Contains(result.Skipped[0].Reason, "expected 4") {
		t.Errorf("expected dim mismatch skip, got %+v", result.Skipped)
	}
}

func TestLoad_ExtractorFailureSkipsFile(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "alice.jpg", "face:alice")

	loader := &Loader{
		Extractor: &fakeExtractor{err: fmt.Errorf("connection refused")},
		Dim:       4,
		MultiFace: config.MultiFaceFirst,
	}

	result, err := loader.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if result.Gallery.Len() != 0 {
		t.Errorf("expected empty gallery, got %d entries", result.Gallery.Len())
	}
	if len(result.Skipped) != 1 || !strings.Contains(result.Skipped[0].Reason, "face detection failed") {
		t.Errorf("expected detection failure skip, got %+v", result.Skipped)
	}
}

func TestIdentityFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"alice.jpg", "alice"},
		{"Jan Novák.png", "Jan Novák"},
		{"bob", "bob"},
		{"archive.tar.gz", "archive.tar"},
	}

	for _, tt := range tests {
		if got := IdentityFromFilename(tt.filename); got != tt.want {
			t.Errorf("IdentityFromFilename(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestGallery_Arena(t *testing.T) {
	g := New(2)
	if err := g.Add("alice", []float32{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := g.Add("bob", []float32{3, 4}); err != nil {
		t.Fatal(err)
	}

	if g.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", g.Len())
	}
	if got := g.Embedding(1); got[0] != 3 || got[1] != 4 {
		t.Errorf("unexpected embedding for entry 1: %v", got)
	}
	if len(g.Arena()) != 4 {
		t.Errorf("expected arena of 4 floats, got %d", len(g.Arena()))
	}
	if err := g.Add("carol", []float32{1}); err == nil {
		t.Error("expected error for wrong dimensionality")
	}
}
