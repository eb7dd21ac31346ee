package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
)

// maxFrameSize caps uploaded frames at 20 MB.
const maxFrameSize = 20 << 20

// RecognizeHandler accepts camera frames and runs them through recognition.
type RecognizeHandler struct {
	state *State
}

// NewRecognizeHandler creates a recognize handler.
func NewRecognizeHandler(state *State) *RecognizeHandler {
	return &RecognizeHandler{state: state}
}

// faceResponse is the per-face result in the recognize response.
type faceResponse struct {
	Name     string    `json:"name"`
	Distance float64   `json:"distance"`
	Accepted bool      `json:"accepted"`
	Outcome  string    `json:"outcome,omitempty"`
	BBox     []float64 `json:"bbox,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// recognizeResponse is the response for POST /api/v1/recognize.
type recognizeResponse struct {
	RunID      string         `json:"run_id"`
	FacesCount int            `json:"faces_count"`
	Faces      []faceResponse `json:"faces"`
}

// Recognize handles POST /api/v1/recognize. It expects a multipart form with
// an image under the "file" field, detects faces, matches them against the
// gallery and marks attendance for accepted matches.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	pipe := h.state.Pipeline()
	if pipe == nil {
		respondError(w, http.StatusServiceUnavailable, "gallery not loaded")
		return
	}

	if err := r.ParseMultipartForm(maxFrameSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxFrameSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(imageData) == 0 {
		respondError(w, http.StatusBadRequest, "empty file")
		return
	}
	if len(imageData) > maxFrameSize {
		respondError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	results, err := pipe.ProcessFrame(r.Context(), imageData)
	if err != nil {
		log.Printf("recognize failed for %s: %v", sanitizeForLog(header.Filename), err)
		respondError(w, http.StatusBadGateway, "face detection failed")
		return
	}

	respondJSON(w, http.StatusOK, recognizeResponse{
		RunID:      pipe.RunID(),
		FacesCount: len(results),
		Faces:      toFaceResponses(results),
	})
}

func toFaceResponses(results []pipeline.FaceResult) []faceResponse {
	faces := make([]faceResponse, 0, len(results))
	for _, res := range results {
		face := faceResponse{
			Name:     res.Match.Name,
			Distance: res.Match.Distance,
			Accepted: res.Match.Accepted,
			Outcome:  string(res.Outcome),
			BBox:     res.BBox,
		}
		if res.Err != nil {
			face.Error = res.Err.Error()
			if face.Name == "" {
				face.Name = match.Unknown
			}
		}
		faces = append(faces, face)
	}
	return faces
}
