package service

import (
	"context"
	"sync"
	"time"

	"github.com/timmy/folio/internal/domain"
	"github.com/timmy/folio/internal/logger"
)

type sessionEntry struct {
	session  *ChatSession
	lastSeen time.Time
}

// ChatService keeps chat sessions by ID and evicts the ones left idle.
type ChatService struct {
	deps ChatDeps
	cfg  ChatConfig
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func NewChatService(deps ChatDeps, cfg ChatConfig) *ChatService {
	return &ChatService{
		deps:     deps,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

// Create registers a new closed session.
func (s *ChatService) Create() *ChatSession {
	session := NewChatSession(s.deps, s.cfg)

	s.mu.Lock()
	s.sessions[session.ID()] = &sessionEntry{session: session, lastSeen: s.now()}
	s.mu.Unlock()
	return session
}

// Get returns the session and marks it as recently used.
func (s *ChatService) Get(id string) (*ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry.lastSeen = s.now()
	return entry.session, nil
}

// Remove closes the session, cancelling its outstanding request, and forgets it.
func (s *ChatService) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return domain.ErrNotFound
	}
	entry.session.Close(ctx)
	return nil
}

// Prune closes and forgets sessions unused for longer than maxIdle.
// Sessions waiting on a reply are kept until the reply settles.
func (s *ChatService) Prune(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	var evicted []*ChatSession
	for id, entry := range s.sessions {
		if entry.lastSeen.Before(cutoff) && !entry.session.busy() {
			delete(s.sessions, id)
			evicted = append(evicted, entry.session)
		}
	}
	s.mu.Unlock()

	for _, session := range evicted {
		session.Close(ctx)
	}
	return len(evicted)
}

// RunJanitor prunes idle sessions every interval until ctx is done.
func (s *ChatService) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Prune(ctx, maxIdle); n > 0 {
				logger.CtxInfo(ctx, "Evicted idle chat sessions: count=%d, remaining=%d", n, s.Count())
			}
		}
	}
}

// CloseAll closes every session, used on shutdown.
func (s *ChatService) CloseAll(ctx context.Context) {
	s.mu.Lock()
	sessions := make([]*ChatSession, 0, len(s.sessions))
	for _, entry := range s.sessions {
		sessions = append(sessions, entry.session)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close(ctx)
	}
}

func (s *ChatService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
