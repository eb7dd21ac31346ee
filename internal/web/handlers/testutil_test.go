package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/match"
)

// fakeExtractor returns a canned face response for every frame.
type fakeExtractor struct {
	resp *extractor.FaceResponse
	err  error
}

func (f *fakeExtractor) DetectFaces(ctx context.Context, imageData []byte) (*extractor.FaceResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// memStore is an in-memory ledger store for handler tests.
type memStore struct {
	mu      sync.Mutex
	marked  map[string]map[string]bool
	entries map[string][]ledger.Entry
}

func newMemStore() *memStore {
	return &memStore{
		marked:  make(map[string]map[string]bool),
		entries: make(map[string][]ledger.Entry),
	}
}

func (s *memStore) EnsureDay(ctx context.Context, day time.Time) error { return nil }

func (s *memStore) IsMarked(ctx context.Context, day time.Time, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marked[ledger.DayString(day)][name], nil
}

func (s *memStore) Mark(ctx context.Context, day time.Time, name string, at time.Time) (ledger.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledger.DayString(day)
	if s.marked[key] == nil {
		s.marked[key] = make(map[string]bool)
	}
	if s.marked[key][name] {
		return ledger.AlreadyMarked, nil
	}
	s.marked[key][name] = true
	s.entries[key] = append(s.entries[key], ledger.Entry{Name: name, Timestamp: at.Format("15:04:05")})
	return ledger.Marked, nil
}

func (s *memStore) Entries(ctx context.Context, day time.Time) ([]ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[ledger.DayString(day)], nil
}

// embeddingOf builds a distinct constant embedding for tests.
func embeddingOf(dim int, value float32) []float32 {
	emb := make([]float32, dim)
	for i := range emb {
		emb[i] = value
	}
	return emb
}

// testState builds handler state around a two-person gallery and the
// given extractor.
func testState(t *testing.T, ex *fakeExtractor, store ledger.Store) *State {
	t.Helper()

	g := gallery.New(4)
	if err := g.Add("alice", embeddingOf(4, 0)); err != nil {
		t.Fatalf("adding alice: %v", err)
	}
	if err := g.Add("bob", embeddingOf(4, 10)); err != nil {
		t.Fatalf("adding bob: %v", err)
	}

	state := NewState(store, ex, match.NewMatcher(0.6), nil, "", nil)
	state.SetGallery(g, nil)
	return state
}

// multipartRequest builds a multipart upload with the image under "file".
func multipartRequest(t *testing.T, path string, imageData []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "frame.jpg")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write(imageData); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
