package repository

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestAppendMessage_ConcurrentAppendsAreGapFree(t *testing.T) {
	store := NewMemoryStore()
	repo := NewConversationsRepo(store)
	ctx := context.Background()

	conv, created, err := repo.CreateConversation(ctx, 1, 2)
	require.NoError(t, err)
	require.True(t, created)

	const n = 64
	var g errgroup.Group
	for i := 0; i < n; i++ {
		role := domain.RoleImpaired
		if i%2 == 1 {
			role = domain.RoleCaretaker
		}
		g.Go(func() error {
			_, err := repo.AppendMessage(ctx, conv.ID, role, "hello")
			return err
		})
	}
	require.NoError(t, g.Wait())

	msgs, err := repo.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, n)

	seqs := make([]int, 0, n)
	for _, m := range msgs {
		seqs = append(seqs, int(m.SequenceNumber))
	}
	assert.True(t, sort.IntsAreSorted(seqs), "listed in sequence order")
	for i, s := range seqs {
		assert.Equal(t, i+1, s)
	}
}

func TestAppendMessage_SequencesArePerConversation(t *testing.T) {
	store := NewMemoryStore()
	repo := NewConversationsRepo(store)
	ctx := context.Background()

	a, _, err := repo.CreateConversation(ctx, 1, 2)
	require.NoError(t, err)
	b, _, err := repo.CreateConversation(ctx, 3, 4)
	require.NoError(t, err)

	m, err := repo.AppendMessage(ctx, a.ID, domain.RoleImpaired, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.SequenceNumber)
	m, err = repo.AppendMessage(ctx, a.ID, domain.RoleCaretaker, "a2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.SequenceNumber)
	m, err = repo.AppendMessage(ctx, b.ID, domain.RoleCaretaker, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.SequenceNumber)
}

func TestAppendMessage_UnknownConversation(t *testing.T) {
	repo := NewConversationsRepo(NewMemoryStore())

	_, err := repo.AppendMessage(context.Background(), 77, domain.RoleImpaired, "hi")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.AppendMessage(context.Background(), 77, domain.Role("admin"), "hi")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

// conflictOnceStore fails the first message insert with a unique violation
// and retries contention the way PostgresStore does.
type conflictOnceStore struct {
	*MemoryStore
	failed   bool
	attempts int
}

func (s *conflictOnceStore) Atomic(ctx context.Context, key LockKey, fn func(Tables) error) error {
	for {
		s.attempts++
		err := s.MemoryStore.Atomic(ctx, key, func(t Tables) error {
			return fn(conflictOnceTables{Tables: t, s: s})
		})
		if domain.KindOf(err) != domain.KindContention || s.attempts > 3 {
			return err
		}
	}
}

type conflictOnceTables struct {
	Tables
	s *conflictOnceStore
}

func (t conflictOnceTables) Insert(ctx context.Context, table string, values []Predicate) (int64, error) {
	if table == TableConversationMessages && !t.s.failed {
		t.s.failed = true
		return 0, domain.ErrConflict
	}
	return t.Tables.Insert(ctx, table, values)
}

func TestAppendMessage_CollisionIsRetriedAsContention(t *testing.T) {
	store := &conflictOnceStore{MemoryStore: NewMemoryStore()}
	repo := NewConversationsRepo(store)
	ctx := context.Background()

	conv, _, err := repo.CreateConversation(ctx, 1, 2)
	require.NoError(t, err)
	store.attempts = 0

	msg, err := repo.AppendMessage(ctx, conv.ID, domain.RoleImpaired, "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.SequenceNumber)
	assert.Equal(t, 2, store.attempts)
}

func TestConversations_CreateIsIdempotentPerPair(t *testing.T) {
	repo := NewConversationsRepo(NewMemoryStore())
	ctx := context.Background()

	first, created, err := repo.CreateConversation(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := repo.CreateConversation(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	found, err := repo.FindConversation(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestConversations_DeleteRemovesMessages(t *testing.T) {
	store := NewMemoryStore()
	repo := NewConversationsRepo(store)
	ctx := context.Background()

	conv, _, err := repo.CreateConversation(ctx, 1, 2)
	require.NoError(t, err)
	_, err = repo.AppendMessage(ctx, conv.ID, domain.RoleImpaired, "hi")
	require.NoError(t, err)

	ids, err := repo.DeleteConversations(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{conv.ID}, ids)

	_, err = repo.FindConversation(ctx, 1, 2)
	assert.ErrorIs(t, err, ErrNoConversation)
	msgs, err := repo.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = repo.DeleteConversations(ctx, 1, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversations_ScopedToThePair(t *testing.T) {
	repo := NewConversationsRepo(NewMemoryStore())
	ctx := context.Background()

	old, _, err := repo.CreateConversation(ctx, 1, 2)
	require.NoError(t, err)
	_, err = repo.AppendMessage(ctx, old.ID, domain.RoleImpaired, "for 2")
	require.NoError(t, err)

	_, err = repo.FindConversation(ctx, 1, 3)
	assert.ErrorIs(t, err, ErrNoConversation)
	_, err = repo.FindConversation(ctx, 4, 2)
	assert.ErrorIs(t, err, ErrNoConversation)

	current, created, err := repo.CreateConversation(ctx, 1, 3)
	require.NoError(t, err)
	assert.True(t, created)

	found, err := repo.FindConversation(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, current.ID, found.ID)

	_, err = repo.DeleteConversations(ctx, 1, 3)
	require.NoError(t, err)
	found, err = repo.FindConversation(ctx, 1, 2)
	require.NoError(t, err, "other pair's conversation is kept")
	assert.Equal(t, old.ID, found.ID)
}

func TestConversations_DeleteWaitsForAppend(t *testing.T) {
	store := NewMemoryStore()
	repo := NewConversationsRepo(store)
	ctx := context.Background()

	conv, _, err := repo.CreateConversation(ctx, 1, 2)
	require.NoError(t, err)

	// hold the conversation lock the way an in-flight append does
	hold := make(chan struct{})
	release := make(chan struct{})
	appended := make(chan error, 1)
	go func() {
		appended <- store.Atomic(ctx, LockKey{Namespace: LockConversation, ID: conv.ID}, func(t Tables) error {
			close(hold)
			<-release
			_, err := t.Insert(ctx, TableConversationMessages, []Predicate{
				Eq("ccc_id", conv.ID), Eq("msg_ordered_number", 1), Eq("user_type", "impaired"), Eq("msg", "late"),
			})
			return err
		})
	}()
	<-hold

	deleted := make(chan error, 1)
	go func() {
		_, err := repo.DeleteConversations(ctx, 1, 2)
		deleted <- err
	}()
	select {
	case <-deleted:
		t.Fatal("delete ran while an append held the conversation")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-appended)
	require.NoError(t, <-deleted)

	res, err := store.Get(ctx, Lookup{Table: TableConversationMessages, Where: []Predicate{Eq("ccc_id", conv.ID)}})
	require.NoError(t, err)
	assert.False(t, res.Found(), "no message outlives its conversation")

	_, err = repo.AppendMessage(ctx, conv.ID, domain.RoleImpaired, "after delete")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
