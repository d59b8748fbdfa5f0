// Package api exposes the demo user store over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/kroma-labs/sentinel-tracing/example/internal/database"
)

const defaultLimit = 10

// Store is the subset of the user store the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, name, email string) (database.User, error)
	ListUsers(ctx context.Context, limit int) ([]database.User, error)
	GetUser(ctx context.Context, id int64) (database.User, error)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type handler struct {
	store  Store
	logger zerolog.Logger
}

// NewRouter returns the demo routes. Metrics are served from gatherer.
// Requests are traced with the global OpenTelemetry provider, so database
// spans from the tracing driver nest under the HTTP server span.
//
//	GET  /healthz      database ping
//	GET  /metrics      Prometheus metrics
//	GET  /users        list users (?limit=N)
//	POST /users        create a user
//	GET  /users/{id}   get a user
func NewRouter(store Store, gatherer prometheus.Gatherer, logger zerolog.Logger) http.Handler {
	h := &handler{store: store, logger: logger}

	r := chi.NewRouter()
	r.Use(
		h.recoverer,
		requestID,
		tracing(otel.GetTracerProvider(), otel.GetTextMapPropagator()),
		accessLog(logger),
	)
	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Get("/{id}", h.getUser)
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	users, err := h.store.ListUsers(r.Context(), limit)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid json body"))
		return
	}
	if req.Name == "" || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("name and email are required"))
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("id must be an integer"))
		return
	}

	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, database.ErrUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, err)
	default:
		h.logger.Error().Err(err).Msg("store request failed")
		h.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("encode response")
	}
}
