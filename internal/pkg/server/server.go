package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
	"github.com/anicoll/xsense-integration/pkg/hasher"
)

const defaultHistoryWindow = 24 * time.Hour

var (
	errHistoryDisabled = errors.New("state history is not enabled")
	errUnauthorized    = errors.New("unauthorized")
)

type coordinator interface {
	Snapshot() *model.Snapshot
	LastError() error
	LastRefreshed() time.Time
}

type historyStore interface {
	History(ctx context.Context, uniqueID string, since time.Time) ([]model.StateRecord, error)
	LatestStates(ctx context.Context) ([]model.StateRecord, error)
	Ping(ctx context.Context) error
}

// StatesFunc returns the current state of every entity.
type StatesFunc func() []model.EntityState

type server struct {
	coord   coordinator
	states  StatesFunc
	store   historyStore
	ws      http.Handler
	creds   hasher.Credentials
	logger  *zap.Logger
	metrics http.Handler
}

type Option func(*server)

func WithHistory(store historyStore) Option {
	return func(s *server) {
		s.store = store
	}
}

func WithWebsocket(h http.Handler) Option {
	return func(s *server) {
		s.ws = h
	}
}

func WithCredentials(creds hasher.Credentials) Option {
	return func(s *server) {
		s.creds = creds
	}
}

func New(coord coordinator, states StatesFunc, opts ...Option) *server {
	s := &server{
		coord:   coord,
		states:  states,
		logger:  zap.L(),
		metrics: promhttp.Handler(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler wires every route. /api and /ws sit behind basic auth when credentials are set.
func (s *server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware)

	r.Get("/healthz", s.GetHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics)

	r.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Route("/api", func(r chi.Router) {
			r.Get("/snapshot", s.GetSnapshot)
			r.Get("/entities", s.GetEntities)
			r.Get("/entities/{id}/history", s.GetEntityHistory)
			r.Get("/history/latest", s.GetLatestStates)
		})
		if s.ws != nil {
			r.Method(http.MethodGet, "/ws", s.ws)
		}
	})
	return r
}

type health struct {
	Status        string    `json:"status"`
	LastRefreshed time.Time `json:"last_refreshed"`
	Error         string    `json:"error,omitempty"`
}

func (s *server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := health{Status: "ok", LastRefreshed: s.coord.LastRefreshed()}
	status := http.StatusOK
	if err := s.coord.LastError(); err != nil {
		resp.Status = "failing"
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	} else if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn("history store unreachable", zap.Error(err))
			resp.Status = "failing"
			resp.Error = "history store: " + err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

func (s *server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Snapshot())
}

func (s *server) GetEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.states())
}

func (s *server) GetEntityHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		handleError(w, http.StatusNotFound, errHistoryDisabled)
		return
	}

	since := time.Now().Add(-defaultHistoryWindow)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			handleError(w, http.StatusBadRequest, err)
			return
		}
		since = t
	}

	id := chi.URLParam(r, "id")
	records, err := s.store.History(r.Context(), id, since)
	if err != nil {
		s.logger.Error("failed to read state history", zap.String("entity", id), zap.Error(err))
		handleError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetLatestStates returns the last recorded state of every entity.
func (s *server) GetLatestStates(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		handleError(w, http.StatusNotFound, errHistoryDisabled)
		return
	}
	records, err := s.store.LatestStates(r.Context())
	if err != nil {
		s.logger.Error("failed to read latest states", zap.Error(err))
		handleError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type errorResponse struct {
	Error string `json:"error"`
}

func handleError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to write response", zap.Error(err))
	}
}
