// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/pulselog/internal/adapters/repository"
	service "github.com/okian/pulselog/internal/app"
	"github.com/okian/pulselog/internal/domain/model"
	"github.com/okian/pulselog/internal/domain/types"
)

const defaultMaxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AthleteDependencies
	InsightDependencies
	StatsProvider
}

// AthleteDependencies are the record-keeping operations.
type AthleteDependencies interface {
	LogSession(ctx context.Context, athleteID string, req types.LogRequest) (types.LogReceipt, error)
	RecentLogs(ctx context.Context, athleteID string, limit int) ([]model.DailyLog, error)
	UpsertProfile(ctx context.Context, athleteID string, req types.ProfileRequest) (model.AthleteProfile, error)
	Profile(ctx context.Context, athleteID string) (model.AthleteProfile, error)
	AddMeet(ctx context.Context, athleteID string, req types.MeetRequest) (model.Meet, error)
	UpcomingMeets(ctx context.Context, athleteID string) ([]model.Meet, error)
}

// InsightDependencies are the read views over the insight engine.
type InsightDependencies interface {
	Dashboard(ctx context.Context, athleteID string) (types.Dashboard, error)
	Feed(ctx context.Context, athleteID string) (types.Feed, error)
	WeeklySummary(ctx context.Context, athleteID string) (types.WeeklySummary, error)
	Explain(ctx context.Context, athleteID string) ([]types.Enhanced, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	athleteHandler  *AthleteHandler
	insightsHandler *InsightsHandler
}

// Option configures the Server.
type Option func(*settings)

type settings struct {
	maxBodyBytes int64
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := settings{maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		eventsHandler:   NewEventsHandler(),
		athleteHandler:  NewAthleteHandler(deps, cfg.maxBodyBytes),
		insightsHandler: NewInsightsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /v1/events", MetricsMiddleware(s.eventsHandler.HandleListEvents, "events"))

	a := s.athleteHandler
	mux.HandleFunc("PUT /v1/athletes/{athleteID}/profile", MetricsMiddleware(a.HandlePutProfile, "put_profile"))
	mux.HandleFunc("GET /v1/athletes/{athleteID}/profile", MetricsMiddleware(a.HandleGetProfile, "get_profile"))
	mux.HandleFunc("POST /v1/athletes/{athleteID}/logs", MetricsMiddleware(a.HandlePostLog, "post_log"))
	mux.HandleFunc("GET /v1/athletes/{athleteID}/logs", MetricsMiddleware(a.HandleGetLogs, "get_logs"))
	mux.HandleFunc("POST /v1/athletes/{athleteID}/meets", MetricsMiddleware(a.HandlePostMeet, "post_meet"))
	mux.HandleFunc("GET /v1/athletes/{athleteID}/meets", MetricsMiddleware(a.HandleGetMeets, "get_meets"))

	i := s.insightsHandler
	mux.HandleFunc("GET /v1/athletes/{athleteID}/insights", MetricsMiddleware(i.HandleFeed, "insights"))
	mux.HandleFunc("GET /v1/athletes/{athleteID}/insights/explained", MetricsMiddleware(i.HandleExplain, "insights_explained"))
	mux.HandleFunc("GET /v1/athletes/{athleteID}/dashboard", MetricsMiddleware(i.HandleDashboard, "dashboard"))
	mux.HandleFunc("GET /v1/athletes/{athleteID}/weekly-summary", MetricsMiddleware(i.HandleWeeklySummary, "weekly_summary"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and store sentinels to statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBodyTooBig):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrInvalidJSON),
		errors.Is(err, service.ErrInvalidLog),
		errors.Is(err, service.ErrInvalidProfile),
		errors.Is(err, service.ErrInvalidMeet),
		errors.Is(err, service.ErrMissingAthlete),
		errors.Is(err, repository.ErrMissingAthlete),
		errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, repository.ErrStoreClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decode reads a single JSON object from the request body into v.
func decode(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooBig, tooBig.Limit)
		}
		return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after object", ErrInvalidJSON)
	}
	return nil
}
