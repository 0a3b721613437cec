package command

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/careerkit/cvchat/internal/auth"
	"github.com/careerkit/cvchat/internal/types"
)

// ErrBusy means a command is already in flight on this session. Commands are
// serialized, never queued; the caller retries when the session is idle.
var ErrBusy = errors.New("a command is already running")

// SessionClient extends IntentClient with the session controls the
// orchestration layer owns.
type SessionClient interface {
	IntentClient
	StartConversation(ctx context.Context, extra map[string]string) (string, error)
	ResetConversation()
}

// State is a snapshot of the session for UI consumption.
type State struct {
	Analyzing      bool    `json:"analyzing"`
	Executing      bool    `json:"executing"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Started        bool    `json:"conversation_started"`
	LastResult     *Result `json:"last_result,omitempty"`
}

// Session owns the per-UI-session state around the processor: busy flags,
// conversation tracking, and the last result. One session runs at most one
// command at a time.
type Session struct {
	client    SessionClient
	processor *Processor
	tokens    auth.TokenSource
	logger    *zap.Logger

	mu             sync.Mutex
	analyzing      bool
	executing      bool
	conversationID string
	started        bool
	lastResult     *Result
}

// NewSession creates a session. tokens is only used to decide whether a
// conversation can be started proactively for signed-in users; it may be nil.
func NewSession(client SessionClient, processor *Processor, tokens auth.TokenSource, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		client:    client,
		processor: processor,
		tokens:    tokens,
		logger:    logger,
	}
}

// ExecuteCommand runs one sentence through the processor. A second call while
// one is in flight fails with ErrBusy.
func (s *Session) ExecuteCommand(ctx context.Context, sentence string, attachments []types.FileAttachment) (Result, error) {
	s.mu.Lock()
	if s.analyzing || s.executing {
		s.mu.Unlock()
		return Result{}, ErrBusy
	}
	s.analyzing = true
	started := s.started
	s.mu.Unlock()

	// Signed-in users get their conversation opened up front so the first
	// sentence already lands in a session.
	if !started && s.tokens != nil {
		if _, err := s.tokens.Token(ctx); err == nil {
			if _, err := s.client.StartConversation(ctx, nil); err != nil {
				s.logger.Warn("proactive conversation start failed", zap.Error(err))
			} else {
				s.mu.Lock()
				s.started = true
				s.conversationID = s.client.ConversationID()
				s.mu.Unlock()
			}
		}
	}

	s.mu.Lock()
	s.executing = true
	s.mu.Unlock()

	res := s.processor.ProcessAndExecute(ctx, sentence, attachments)

	s.mu.Lock()
	if res.Response != nil && res.Response.ConversationID != "" {
		s.conversationID = res.Response.ConversationID
		s.started = true
	}
	s.lastResult = &res
	s.analyzing = false
	s.executing = false
	s.mu.Unlock()

	return res, nil
}

// ResetConversation abandons the current conversation. An in-flight command
// is not cancelled; it completes against the old session.
func (s *Session) ResetConversation() {
	s.client.ResetConversation()
	s.mu.Lock()
	s.conversationID = ""
	s.started = false
	s.mu.Unlock()
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Analyzing:      s.analyzing,
		Executing:      s.executing,
		ConversationID: s.conversationID,
		Started:        s.started,
		LastResult:     s.lastResult,
	}
}
