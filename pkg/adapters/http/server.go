// Package http exposes a slotflow engine as a JSON API with server-sent
// events for context changes and graph reloads.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/xid"

	"github.com/aretw0/slotflow"
	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/internal/validator"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/aretw0/slotflow/pkg/runner"
)

// Engine is the part of *slotflow.Engine the API serves.
type Engine interface {
	ports.TurnProcessor
	Context(ctx context.Context, sessionID string) (*domain.Context, error)
	Sessions(ctx context.Context) ([]string, error)
	Subscribe(sessionID string) (<-chan *domain.ContextDiff, func())
	SubscribeReloads() (<-chan slotflow.ReloadEvent, func())
	Reload(ctx context.Context) (*validator.Report, error)
}

var _ Engine = (*slotflow.Engine)(nil)

// Server holds the handlers of the API.
type Server struct {
	engine     Engine
	logger     *slog.Logger
	metrics    http.Handler
	corsOrigin string
	maxInput   int
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithCORSOrigin sets the allowed origin; empty disables CORS headers.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		s.corsOrigin = origin
	}
}

// WithMaxInputBytes bounds the size of a chat utterance.
func WithMaxInputBytes(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// NewHandler creates the HTTP handler for engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	s := &Server{
		engine:     engine,
		logger:     logging.NewNop(),
		corsOrigin: "*",
		maxInput:   runner.DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	doc, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	validate, err := validateRequests(doc)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(Spec())
	})
	r.Get("/health", s.health)
	r.Get("/info", s.info)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(validate)
		r.Post("/chat", s.chat)
		r.Post("/reset-context", s.resetContext)
		r.Get("/sessions", s.listSessions)
		r.Get("/sessions/{id}", s.getSession)
		r.Delete("/sessions/{id}", s.deleteSession)
		r.Get("/sessions/{id}/events", s.sessionEvents)
		r.Get("/events", s.reloadEvents)
		r.Get("/intents", s.listIntents)
		r.Post("/train", s.train)
	})
	return r, nil
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type chatResponse struct {
	SessionID string         `json:"session_id"`
	Answer    string         `json:"answer"`
	Terminal  bool           `json:"terminal"`
	Context   map[string]any `json:"context"`
}

// chat handles POST /api/chat. A request without a session id starts a new session.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	text, err := runner.SanitizeInput(body.Text, s.maxInput)
	if err != nil {
		s.logger.Warn("chat input rejected", "error", err, "size", len(body.Text))
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sessionID := strings.TrimSpace(body.SessionID)
	if sessionID == "" {
		sessionID = xid.New().String()
	}

	res, err := s.engine.ProcessTurn(r.Context(), sessionID, text)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrIntentUnresolved):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, domain.ErrClassifierFailure):
			status = http.StatusServiceUnavailable
		}
		s.logger.Error("turn failed", "error", err, "session_id", sessionID)
		writeError(w, status, err)
		return
	}

	resp := chatResponse{
		SessionID: sessionID,
		Answer:    res.Answer,
		Terminal:  res.Terminal(),
	}
	if res.Context != nil {
		resp.Context = res.Context.Snapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}

// resetContext handles POST /api/reset-context.
func (s *Server) resetContext(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	s.reset(w, r, body.SessionID)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := s.engine.ResetContext(r.Context(), sessionID); err != nil {
		s.logger.Error("reset failed", "error", err, "session_id", sessionID)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.Sessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.engine.Context(r.Context(), id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "context": c.Snapshot()})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.reset(w, r, chi.URLParam(r, "id"))
}

func (s *Server) listIntents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Inspect())
}

type trainResponse struct {
	Groups   int      `json:"groups"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// train handles POST /api/train: reload the graph and retrain the classifier.
func (s *Server) train(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Reload(r.Context())
	if report == nil && err != nil {
		s.logger.Error("reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := trainResponse{
		Errors:   issues(report.Errors),
		Warnings: issues(report.Warnings),
	}
	if err != nil {
		s.logger.Warn("graph refused", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	resp.Groups = len(s.engine.Inspect())
	writeJSON(w, http.StatusOK, resp)
}

func issues(in []validator.Issue) []string {
	out := make([]string, 0, len(in))
	for _, i := range in {
		out = append(out, i.String())
	}
	return out
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := LoadSpec(r.Context()); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "slotflow-http",
		"version":     strings.TrimSpace(slotflow.Version),
		"api_version": apiVersion,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
