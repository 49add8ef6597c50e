package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/pulselog/internal/domain/types"
)

const maxLogsLimit = 366

// AthleteHandler handles profile, log and meet requests.
type AthleteHandler struct {
	deps         AthleteDependencies
	maxBodyBytes int64
}

// NewAthleteHandler creates a new athlete handler.
func NewAthleteHandler(deps AthleteDependencies, maxBodyBytes int64) *AthleteHandler {
	return &AthleteHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandlePutProfile handles PUT /v1/athletes/{athleteID}/profile.
func (h *AthleteHandler) HandlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req types.ProfileRequest
	if err := decode(w, r, h.maxBodyBytes, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	p, err := h.deps.UpsertProfile(r.Context(), r.PathValue("athleteID"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGetProfile handles GET /v1/athletes/{athleteID}/profile.
func (h *AthleteHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Profile(r.Context(), r.PathValue("athleteID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandlePostLog handles POST /v1/athletes/{athleteID}/logs. The log is stored
// either way; 202 instead of 201 means the insight refresh was not queued.
func (h *AthleteHandler) HandlePostLog(w http.ResponseWriter, r *http.Request) {
	var req types.LogRequest
	if err := decode(w, r, h.maxBodyBytes, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	receipt, err := h.deps.LogSession(r.Context(), r.PathValue("athleteID"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusCreated
	if !receipt.RefreshQueued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, receipt)
}

// HandleGetLogs handles GET /v1/athletes/{athleteID}/logs?limit=N.
func (h *AthleteHandler) HandleGetLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLogsLimit {
			writeServiceError(w, fmt.Errorf("%w: limit must be between 1 and %d", ErrBadRequest, maxLogsLimit))
			return
		}
		limit = n
	}
	logs, err := h.deps.RecentLogs(r.Context(), r.PathValue("athleteID"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// HandlePostMeet handles POST /v1/athletes/{athleteID}/meets.
func (h *AthleteHandler) HandlePostMeet(w http.ResponseWriter, r *http.Request) {
	var req types.MeetRequest
	if err := decode(w, r, h.maxBodyBytes, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	m, err := h.deps.AddMeet(r.Context(), r.PathValue("athleteID"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleGetMeets handles GET /v1/athletes/{athleteID}/meets.
func (h *AthleteHandler) HandleGetMeets(w http.ResponseWriter, r *http.Request) {
	meets, err := h.deps.UpcomingMeets(r.Context(), r.PathValue("athleteID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meets)
}
