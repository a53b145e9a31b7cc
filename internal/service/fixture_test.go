package service

import (
	"context"
	"sync"
	"testing"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/repository"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	janeID int64 = 1
	philID int64 = 2
)

type publishedEvent struct {
	Type string
	Data any
}

// recordingPublisher 记录已发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Data: data})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	mem       *repository.MemoryStore
	users     *repository.UsersRepo
	pairings  *repository.PairingsRepo
	sessions  store.SessionStore
	publisher *recordingPublisher
	logger    *zap.Logger
}

// newTestEnv 内存存储 + 默认种子用户（jane=1 impaired, phil=2 caretaker）
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := repository.NewMemoryStore()
	require.NoError(t, repository.Seed(context.Background(), mem, HashPassword, repository.DefaultSeedUsers, zap.NewNop()))
	return &testEnv{
		mem:       mem,
		users:     repository.NewUsersRepo(mem),
		pairings:  repository.NewPairingsRepo(mem),
		sessions:  store.NewMemorySessionStore(store.DefaultSessionTTL),
		publisher: &recordingPublisher{},
		logger:    zap.NewNop(),
	}
}

func (e *testEnv) addUser(t *testing.T, email, password string, role domain.Role) int64 {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	id, err := e.users.CreateUser(context.Background(), &domain.User{
		Email: email, PasswordHash: hash, FirstName: "Test", LastName: "User", Role: role,
	})
	require.NoError(t, err)
	return id
}
