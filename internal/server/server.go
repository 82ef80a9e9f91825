// Package server exposes NPC turns over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/engine"
	npcerrors "github.com/randalmurphal/npcgraph/pkg/npcgraph/errors"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/thread"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

// Defaults for server options.
const (
	DefaultHistoryLimit    = 20
	DefaultShutdownTimeout = 5 * time.Second
	maxBodyBytes           = 1 << 20
)

// Server serves the NPC API for every persona a manager knows.
type Server struct {
	manager         *engine.Manager
	logger          *slog.Logger
	registry        *prometheus.Registry
	metrics         *Metrics
	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry sets the Prometheus registry served on /metrics.
// Defaults to a fresh registry with the Go and process collectors.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithShutdownTimeout bounds how long Serve waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// New creates a server over manager.
func New(manager *engine.Manager, opts ...Option) *Server {
	s := &Server{
		manager:         manager,
		logger:          slog.Default(),
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	s.metrics = NewMetrics(s.registry)
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/health", s.health)
	r.Get("/npcs", s.listNPCs)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/threads/{owner}/{session}", func(r chi.Router) {
		r.Post("/turns", s.postTurn)
		r.Get("/history", s.getHistory)
		r.Post("/events", s.postEvents)
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("graceful shutdown did not complete", slog.String("error", err.Error()))
			return srv.Close()
		}
		s.logger.Info("http server stopped")
		return nil
	})
	return g.Wait()
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.observeRequest(route, r.Method, status, time.Since(start))
	})
}

// TurnRequest is the body of POST /threads/{owner}/{session}/turns.
type TurnRequest struct {
	Text   string       `json:"text"`
	Events []turn.Event `json:"events,omitempty"`
}

// EventsRequest is the body of POST /threads/{owner}/{session}/events.
type EventsRequest struct {
	Events []turn.Event `json:"events"`
}

// HistoryResponse is returned by GET /threads/{owner}/{session}/history.
type HistoryResponse struct {
	ThreadID string          `json:"thread_id"`
	Records  []thread.Record `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listNPCs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"npcs": s.manager.NPCs()})
}

func (s *Server) postTurn(w http.ResponseWriter, r *http.Request) {
	owner, session := chi.URLParam(r, "owner"), chi.URLParam(r, "session")

	var body TurnRequest
	if !s.decode(w, r, &body) {
		return
	}

	result, err := s.manager.Respond(r.Context(), owner, engine.Input{
		Session: session,
		Text:    body.Text,
		Events:  body.Events,
	})
	s.metrics.observeTurn(owner, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	owner, session := chi.URLParam(r, "owner"), chi.URLParam(r, "session")

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	e, err := s.manager.Get(owner)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	threadID := e.ThreadID(session)
	recs, err := e.History(r.Context(), threadID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []thread.Record{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{ThreadID: threadID, Records: recs})
}

func (s *Server) postEvents(w http.ResponseWriter, r *http.Request) {
	owner, session := chi.URLParam(r, "owner"), chi.URLParam(r, "session")

	var body EventsRequest
	if !s.decode(w, r, &body) {
		return
	}
	if len(body.Events) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no events given"})
		return
	}

	e, err := s.manager.Get(owner)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	threadID := e.ThreadID(session)
	if err := e.Push(threadID, body.Events...); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"thread_id": threadID, "queued": len(body.Events)})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	level := slog.LevelWarn
	if code >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", code),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("error", err.Error()),
	)
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// statusFor maps turn errors onto HTTP status codes.
func statusFor(err error) int {
	var timeoutErr *npcerrors.TimeoutError
	var rateErr *npcerrors.RateLimitError
	switch {
	case errors.Is(err, engine.ErrUnknownNPC):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInboxFull), errors.As(err, &rateErr):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
