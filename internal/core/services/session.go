package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// SessionContext is the per-conversation state: the current upload session,
// the filenames ingested into it, and the conversational memory.
type SessionContext struct {
	mu      sync.Mutex
	id      string
	current string
	members []string
	memory  []domain.Exchange
}

// ID returns the conversation ID.
func (c *SessionContext) ID() string {
	return c.id
}

// StartSession begins a fresh upload session, replacing any current one.
// Chunks of the replaced session stay in the index.
func (c *SessionContext) StartSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = uuid.NewString()
	c.members = nil
	return c.current
}

// Current returns the current session ID.
func (c *SessionContext) Current() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.current != ""
}

// RecordMember notes a file ingested into the given session.
// It is ignored when that session is no longer current.
func (c *SessionContext) RecordMember(sessionID, filename string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID == "" || sessionID != c.current {
		return
	}
	c.members = append(c.members, filename)
}

// Members returns the filenames recorded in the current session.
func (c *SessionContext) Members() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.members...)
}

// reset unsets the current session if it is still sessionID.
// An empty sessionID unsets whatever is current.
func (c *SessionContext) reset(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID != "" && sessionID != c.current {
		return
	}
	c.current = ""
	c.members = nil
}

// Append adds an exchange to the conversational memory.
func (c *SessionContext) Append(question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory = append(c.memory, domain.Exchange{
		Question: question,
		Answer:   answer,
		AskedAt:  time.Now(),
	})
}

// History returns the memory in chronological order.
func (c *SessionContext) History() []domain.Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Exchange{}, c.memory...)
}

// ClearHistory empties the memory.
func (c *SessionContext) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory = nil
}

// MemoryLen returns the number of stored messages (two per exchange).
func (c *SessionContext) MemoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return 2 * len(c.memory)
}

// SessionRegistry hands out session contexts keyed by conversation ID.
// Contexts are created on first use and live for the process lifetime.
type SessionRegistry struct {
	mu       sync.Mutex
	contexts map[string]*SessionContext
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{contexts: make(map[string]*SessionContext)}
}

// Get returns the context for a conversation, creating it if needed.
func (r *SessionRegistry) Get(conversationID string) *SessionContext {
	if conversationID == "" {
		conversationID = domain.DefaultConversation
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.contexts[conversationID]
	if !ok {
		sc = &SessionContext{id: conversationID}
		r.contexts[conversationID] = sc
	}
	return sc
}

// Len returns the number of known conversations.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}

// Ensure SessionService implements the interface.
var _ driving.SessionService = (*SessionService)(nil)

// SessionService tracks upload sessions per conversation.
type SessionService struct {
	sessions *SessionRegistry
	index    *IndexService
}

// NewSessionService creates a session service.
// The index may be nil, in which case clearing only forgets the session.
func NewSessionService(sessions *SessionRegistry, index *IndexService) *SessionService {
	return &SessionService{sessions: sessions, index: index}
}

// Start begins a fresh upload session for the conversation.
func (s *SessionService) Start(conversationID string) string {
	id := s.sessions.Get(conversationID).StartSession()
	logger.Debug("Conversation %q started session %s", conversationID, id)
	return id
}

// Current returns the conversation's current session.
func (s *SessionService) Current(conversationID string) (string, bool) {
	return s.sessions.Get(conversationID).Current()
}

// Members returns the filenames ingested into the current session.
func (s *SessionService) Members(conversationID string) []string {
	return s.sessions.Get(conversationID).Members()
}

// ClearCurrent deletes the current session's chunks, then unsets it.
// With no current session it does nothing and returns 0.
func (s *SessionService) ClearCurrent(ctx context.Context, conversationID string) (int, error) {
	sc := s.sessions.Get(conversationID)
	current, ok := sc.Current()
	if !ok {
		return 0, nil
	}

	deleted := 0
	if s.index.Available() {
		n, err := s.index.Delete(ctx, domain.SessionDocuments(current))
		if err != nil {
			return 0, fmt.Errorf("clear session %s: %w", current, err)
		}
		deleted = n
	}

	sc.reset(current)
	logger.Info("Cleared session %s (%d chunks)", current, deleted)
	return deleted, nil
}
