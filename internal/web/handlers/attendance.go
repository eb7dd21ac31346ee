package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// AttendanceHandler serves attendance records from the ledger.
type AttendanceHandler struct {
	store ledger.Store
	now   func() time.Time
}

// NewAttendanceHandler creates an attendance handler.
func NewAttendanceHandler(store ledger.Store) *AttendanceHandler {
	return &AttendanceHandler{store: store, now: time.Now}
}

// attendanceResponse is the response for the attendance endpoints.
type attendanceResponse struct {
	Day     string         `json:"day"`
	Count   int            `json:"count"`
	Entries []ledger.Entry `json:"entries"`
}

// Today handles GET /api/v1/attendance and returns today's records.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	h.respondDay(w, r, h.now())
}

// ByDate handles GET /api/v1/attendance/{date} with the date in DD-MM-YYYY.
func (h *AttendanceHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	day, err := ledger.ParseDay(chi.URLParam(r, "date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected DD-MM-YYYY")
		return
	}
	h.respondDay(w, r, day)
}

func (h *AttendanceHandler) respondDay(w http.ResponseWriter, r *http.Request, day time.Time) {
	entries, err := h.store.Entries(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read attendance")
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	respondJSON(w, http.StatusOK, attendanceResponse{
		Day:     ledger.DayString(day),
		Count:   len(entries),
		Entries: entries,
	})
}
