package api

import "net/http"

// InsightsHandler serves the read views over the insight engine.
type InsightsHandler struct {
	deps InsightDependencies
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(deps InsightDependencies) *InsightsHandler {
	return &InsightsHandler{deps: deps}
}

// HandleFeed handles GET /v1/athletes/{athleteID}/insights.
func (h *InsightsHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := h.deps.Feed(r.Context(), r.PathValue("athleteID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// HandleExplain handles GET /v1/athletes/{athleteID}/insights/explained.
func (h *InsightsHandler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Explain(r.Context(), r.PathValue("athleteID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDashboard handles GET /v1/athletes/{athleteID}/dashboard.
func (h *InsightsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.deps.Dashboard(r.Context(), r.PathValue("athleteID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleWeeklySummary handles GET /v1/athletes/{athleteID}/weekly-summary.
func (h *InsightsHandler) HandleWeeklySummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.WeeklySummary(r.Context(), r.PathValue("athleteID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
