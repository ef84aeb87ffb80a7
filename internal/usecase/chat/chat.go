// Package chat owns the conversation lifecycle: one session per visitor,
// an explicit state machine per session, and the full turn pipeline
// (quota -> retrieval -> re-rank -> generation).
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lotusmind/yogachat/internal/domain"
	"github.com/lotusmind/yogachat/internal/logger"
	"github.com/lotusmind/yogachat/internal/metrics"
	"github.com/lotusmind/yogachat/internal/usecase/quota"
)

// State is the session lifecycle state.
type State string

// Session states. Blocked is terminal for the day only; the usage store's
// date reset re-opens the session on the next calendar day.
const (
	StateAwaitingInput State = "awaiting_input"
	StateProcessing    State = "processing"
	StateBlocked       State = "blocked"
)

// quotaGate is the consumer interface for quota decisions (ISP).
type quotaGate interface {
	Status(ctx context.Context, id domain.Identity) (quota.Status, error)
	Consume(ctx context.Context, id domain.Identity) error
}

// ranker is the consumer interface for candidate re-ranking (ISP).
type ranker interface {
	ExpandQuery(query string) string
	Rank(query string, candidates []domain.Document) []domain.ScoredDocument
}

// composer is the consumer interface for answer composition (ISP).
type composer interface {
	Compose(ctx context.Context, question string, ranked []domain.ScoredDocument) (string, error)
}

// Session is one visitor's conversation. History is append-only; a failed
// turn keeps the user message and appends nothing else.
type Session struct {
	mu       sync.Mutex
	identity domain.Identity
	state    State
	history  []domain.Message
}

// Identity returns the identity the session currently charges quota against.
func (s *Session) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the transcript.
func (s *Session) History() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Service orchestrates chat turns over an in-memory session registry keyed
// by visitor token.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*Session

	retriever domain.Retriever
	gate      quotaGate
	ranker    ranker
	composer  composer
	pool      int
}

// New creates the chat service. pool is the candidate count requested from
// the vector index before re-ranking.
func New(retriever domain.Retriever, gate quotaGate, rk ranker, cp composer, pool int) *Service {
	return &Service{
		sessions:  make(map[string]*Session),
		retriever: retriever,
		gate:      gate,
		ranker:    rk,
		composer:  cp,
		pool:      pool,
	}
}

// Session returns the session for a visitor token, creating it on first use
// with an anonymous identity derived from the token.
func (s *Service) Session(token string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		sess = &Session{
			identity: domain.AnonymousIdentity(token),
			state:    StateAwaitingInput,
		}
		s.sessions[token] = sess
	}
	return sess
}

// Authenticate rebinds the session to an authenticated identity. Quota for
// subsequent turns is charged against the username with the higher ceiling.
func (s *Service) Authenticate(token string, id domain.Identity) {
	sess := s.Session(token)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.identity = id
	// A session blocked on the anonymous ceiling may have room again.
	if sess.state == StateBlocked {
		sess.state = StateAwaitingInput
	}
}

// Refresh re-evaluates the quota gate for rendering: a session whose
// identity spent its allowance shows as blocked, and a blocked session whose
// usage was reset (new day) re-opens. Safe to call on every render.
func (s *Service) Refresh(ctx context.Context, token string) (quota.Status, State, error) {
	sess := s.Session(token)

	status, err := s.gate.Status(ctx, sess.Identity())
	if err != nil {
		return quota.Status{}, sess.State(), fmt.Errorf("refresh session: %w", err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StateProcessing {
		if status.Exhausted() {
			sess.state = StateBlocked
		} else {
			sess.state = StateAwaitingInput
		}
	}
	return status, sess.state, nil
}

// Ask runs one full turn for the visitor. The quota unit is spent before
// the answer is known, so a failed generation still costs a turn; in that
// case the user message stays in the transcript and no assistant message is
// appended.
func (s *Service) Ask(ctx context.Context, token, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", domain.ErrEmptyQuestion
	}

	sess := s.Session(token)
	log := logger.FromContext(ctx)

	sess.mu.Lock()
	if sess.state == StateProcessing {
		sess.mu.Unlock()
		return "", errors.New("turn already in progress")
	}
	id := sess.identity
	sess.mu.Unlock()

	if err := s.gate.Consume(ctx, id); err != nil {
		if errors.Is(err, domain.ErrQuotaExhausted) {
			sess.setState(StateBlocked)
			metrics.ChatTurnsTotal.WithLabelValues("blocked").Inc()
		}
		return "", err
	}

	sess.appendMessage(domain.Message{Role: domain.RoleUser, Content: question})
	sess.setState(StateProcessing)
	defer sess.setState(StateAwaitingInput)

	answer, err := s.answer(ctx, question)
	if err != nil {
		metrics.ChatTurnsTotal.WithLabelValues(turnStatus(err)).Inc()
		log.Warn("turn failed",
			zap.String("identity", id.Key),
			zap.Error(err))
		return "", err
	}

	sess.appendMessage(domain.Message{Role: domain.RoleAssistant, Content: answer})
	metrics.ChatTurnsTotal.WithLabelValues("answered").Inc()
	return answer, nil
}

// answer runs retrieval, re-ranking and composition for one question.
func (s *Service) answer(ctx context.Context, question string) (string, error) {
	expanded := s.ranker.ExpandQuery(question)

	candidates, err := s.retriever.SimilaritySearch(ctx, expanded, s.pool)
	if err != nil {
		return "", fmt.Errorf("retrieve: %w", err)
	}
	metrics.RetrievalCandidates.Observe(float64(len(candidates)))

	ranked := s.ranker.Rank(question, candidates)

	return s.composer.Compose(ctx, question, ranked)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Blocked sticks until Refresh or Authenticate re-opens it.
	if s.state == StateBlocked && state == StateAwaitingInput {
		return
	}
	s.state = state
}

func (s *Session) appendMessage(m domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, m)
}

func turnStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrIndexNotReady):
		return "not_ready"
	case errors.Is(err, domain.ErrGenerationFailed):
		return "generation_error"
	default:
		return "error"
	}
}
