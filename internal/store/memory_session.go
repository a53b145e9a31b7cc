package store

import (
	"context"
	"sync"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"

	"github.com/google/uuid"
)

// MemorySessionStore is the in-process SessionStore used when Redis is disabled.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]Session
}

var _ SessionStore = (*MemorySessionStore)(nil)

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{ttl: ttl, now: time.Now, sessions: map[string]Session{}}
}

func (s *MemorySessionStore) Create(ctx context.Context, userID int64) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, storageErr("create session", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < createAttempts; i++ {
		token := uuid.NewString()
		if _, taken := s.sessions[token]; taken {
			continue
		}
		sess := Session{Token: token, UserID: userID, ExpiresAt: s.now().Add(s.ttl)}
		s.sessions[token] = sess
		return sess, nil
	}
	return Session{}, domain.E(domain.KindContention, "could not allocate a session token")
}

// lookup returns a live session; expired ones are dropped. Callers hold mu.
func (s *MemorySessionStore) lookup(token string) (Session, bool) {
	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, false
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, token)
		return Session{}, false
	}
	return sess, true
}

func (s *MemorySessionStore) Resolve(ctx context.Context, token string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storageErr("resolve session", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(token)
	if !ok {
		return 0, domain.ErrUnauthorized
	}
	return sess.UserID, nil
}

func (s *MemorySessionStore) Rotate(ctx context.Context, token string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, storageErr("rotate session", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.lookup(token)
	if !ok {
		return Session{}, domain.ErrUnauthorized
	}
	delete(s.sessions, token)
	next := Session{Token: uuid.NewString(), UserID: old.UserID, ExpiresAt: s.now().Add(s.ttl)}
	s.sessions[next.Token] = next
	return next, nil
}

func (s *MemorySessionStore) Destroy(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
