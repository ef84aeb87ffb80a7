// Package http serves the conversational front-end: the server-rendered
// chat page and the JSON API behind it.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lotusmind/yogachat/internal/domain"
	"github.com/lotusmind/yogachat/internal/metrics"
	authuc "github.com/lotusmind/yogachat/internal/usecase/auth"
	chatuc "github.com/lotusmind/yogachat/internal/usecase/chat"
	healthuc "github.com/lotusmind/yogachat/internal/usecase/health"
	"github.com/lotusmind/yogachat/internal/usecase/quota"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the chat usecases to chi handlers.
type Server struct {
	chat          *chatuc.Service
	auth          *authuc.Service
	health        *healthuc.Service
	contactURL    string
	logger        *zap.Logger
	errorHandlers []errorHandler
	now           func() time.Time
}

// NewServer creates the HTTP server.
func NewServer(
	chat *chatuc.Service,
	auth *authuc.Service,
	health *healthuc.Service,
	contactURL string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		chat:       chat,
		auth:       auth,
		health:     health,
		contactURL: contactURL,
		logger:     logger,
		now:        time.Now,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuestion, http.StatusBadRequest, CodeEmptyQuestion),
		sentinelHandler(domain.ErrQuotaExhausted, http.StatusTooManyRequests, CodeQuotaExhausted),
		sentinelHandler(domain.ErrIndexNotReady, http.StatusServiceUnavailable, CodeNotReady),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, CodeGenerationError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidLogin),
	}
	return s
}

// Routes assembles the chi router with the full middleware stack.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/", s.handlePage)
	r.Post("/api/chat", s.handleChat)
	r.Get("/api/usage", s.handleUsage)
	r.Post("/api/login", s.handleLogin)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// visitorToken returns the anonymous token carried in the shareable address.
func visitorToken(r *http.Request) string {
	return r.URL.Query().Get("v")
}

// handleChat runs one turn. The quota unit is spent before generation, so a
// 502 still costs the visitor a question.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	token := visitorToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, CodeMissingVisitorID, "visitor id (?v=) is required")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	answer, err := s.chat.Ask(r.Context(), token, req.Question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	usage, err := s.usageSnapshot(r.Context(), token)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer, Usage: usage})
}

// handleUsage reports today's quota snapshot for the visitor.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	token := visitorToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, CodeMissingVisitorID, "visitor id (?v=) is required")
		return
	}

	usage, err := s.usageSnapshot(r.Context(), token)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, usage)
}

// handleLogin checks credentials and rebinds the session on success. A
// failed login changes nothing and costs nothing.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	token := visitorToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, CodeMissingVisitorID, "visitor id (?v=) is required")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	s.chat.Authenticate(token, id)

	usage, err := s.usageSnapshot(r.Context(), token)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Username: id.Key, Usage: usage})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.health.Ready(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// usageSnapshot refreshes the session state and builds the usage DTO.
func (s *Server) usageSnapshot(ctx context.Context, token string) (UsageResponse, error) {
	status, state, err := s.chat.Refresh(ctx, token)
	if err != nil {
		return UsageResponse{}, err
	}
	return s.usageResponse(status, state), nil
}

func (s *Server) usageResponse(status quota.Status, state chatuc.State) UsageResponse {
	return UsageResponse{
		Date:      types.Date{Time: s.now()},
		Used:      status.Used,
		Limit:     status.Limit,
		Remaining: status.Remaining,
		Percent:   status.Percent(),
		Blocked:   state == chatuc.StateBlocked,
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// safeDomainMessage returns the sentinel text for known errors; anything
// else is reported as an opaque internal error.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuestion,
		domain.ErrQuotaExhausted,
		domain.ErrIndexNotReady,
		domain.ErrGenerationFailed,
		domain.ErrEmbeddingProviderError,
		domain.ErrInvalidCredentials,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}
