package handlers

import (
	"context"
	"log"
	"net/http"
	"time"
)

// reloadTimeout bounds a background gallery reload. Extraction is one HTTP
// call per image, so even large galleries finish well under this.
const reloadTimeout = 10 * time.Minute

// GalleryHandler serves the gallery listing and async reloads.
type GalleryHandler struct {
	state *State
	jobs  *JobManager
}

// NewGalleryHandler creates a gallery handler.
func NewGalleryHandler(state *State, jobs *JobManager) *GalleryHandler {
	return &GalleryHandler{state: state, jobs: jobs}
}

// skippedResponse describes a reference image excluded from the gallery.
type skippedResponse struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// galleryResponse is the response for GET /api/v1/gallery.
type galleryResponse struct {
	Count    int               `json:"count"`
	Dim      int               `json:"dim"`
	Names    []string          `json:"names"`
	Skipped  []skippedResponse `json:"skipped"`
	LoadedAt time.Time         `json:"loaded_at"`
}

// List handles GET /api/v1/gallery and returns the enrolled identities.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	g := h.state.Gallery()
	if g == nil {
		respondError(w, http.StatusServiceUnavailable, "gallery not loaded")
		return
	}

	skipped := make([]skippedResponse, 0)
	for _, s := range h.state.Skipped() {
		skipped = append(skipped, skippedResponse{Path: s.Path, Reason: s.Reason})
	}

	respondJSON(w, http.StatusOK, galleryResponse{
		Count:    g.Len(),
		Dim:      g.Dim(),
		Names:    g.Names(),
		Skipped:  skipped,
		LoadedAt: h.state.LoadedAt(),
	})
}

// Reload handles POST /api/v1/gallery/reload. It starts a background job
// that rebuilds the gallery from the reference directory and responds with
// the job ID for polling.
func (h *GalleryHandler) Reload(w http.ResponseWriter, r *http.Request) {
	jobID := h.jobs.Create()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()

		h.jobs.SetRunning(jobID)
		result, err := h.state.Reload(ctx)
		if err != nil {
			log.Printf("gallery reload %s failed: %v", jobID, err)
			h.jobs.Finish(jobID, 0, 0, err)
			return
		}
		log.Printf("gallery reload %s done: %d loaded, %d skipped",
			jobID, result.Gallery.Len(), len(result.Skipped))
		h.jobs.Finish(jobID, result.Gallery.Len(), len(result.Skipped), nil)
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(JobStatusPending),
	})
}
