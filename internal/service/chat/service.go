package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
)

var (
	ErrSessionIDRequired = errors.New("session id is required")
	ErrSessionNotFound   = errors.New("session not found")
)

// Option customises the service.
type Option func(*Service)

// WithTTL sets how long an idle conversation is kept. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service encapsulates conversation state management.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Conversation
	messages map[string][]chat.Message
	ttl      time.Duration
	now      func() time.Time
}

// NewService bootstraps the in-memory transcript store.
func NewService(opts ...Option) *Service {
	s := &Service{
		sessions: make(map[string]chat.Conversation),
		messages: make(map[string][]chat.Message),
		ttl:      chat.SessionTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) expired(c chat.Conversation, now time.Time) bool {
	return s.ttl > 0 && now.Sub(c.LastActivity) > s.ttl
}

// EnsureSession returns the conversation for sessionID, creating it when the
// widget uses the id for the first time. An expired conversation starts over.
func (s *Service) EnsureSession(_ context.Context, sessionID, customerID string) (chat.Conversation, error) {
	if sessionID == "" {
		return chat.Conversation{}, ErrSessionIDRequired
	}

	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.sessions[sessionID]
	if !ok || s.expired(conv, now) {
		conv = chat.Conversation{
			ID:         sessionID,
			CustomerID: customerID,
			CreatedAt:  now,
		}
		s.messages[sessionID] = make([]chat.Message, 0, 16)
	}
	conv.LastActivity = now
	s.sessions[sessionID] = conv
	return conv, nil
}

// SaveMessage appends a message to the session history.
func (s *Service) SaveMessage(_ context.Context, message chat.Message) error {
	if message.SessionID == "" {
		return ErrSessionIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.sessions[message.SessionID]
	if !ok {
		return ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now().UTC()
	}
	conv.LastActivity = message.CreatedAt
	s.sessions[message.SessionID] = conv

	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)
	return nil
}

// GetSession retrieves a live session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.sessions[sessionID]
	if !ok || s.expired(conv, s.now()) {
		return chat.Conversation{}, ErrSessionNotFound
	}
	return conv, nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.sessions[sessionID]
	if !ok || s.expired(conv, s.now()) {
		return nil, ErrSessionNotFound
	}

	messages := s.messages[sessionID]
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// DeleteSession forgets a session and its transcript.
func (s *Service) DeleteSession(_ context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	s.mu.Unlock()
}

// Prune drops every expired session and reports how many were removed.
func (s *Service) Prune(_ context.Context) int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, conv := range s.sessions {
		if s.expired(conv, now) {
			delete(s.sessions, id)
			delete(s.messages, id)
			removed++
		}
	}
	return removed
}
