package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_InsertGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id1, err := store.Insert(ctx, TableEmergencyContact, []Predicate{
		Eq("impaired_user_id", 1), Eq("contact_name", "Sarah"), Eq("contact_tel", "555"),
	})
	require.NoError(t, err)
	id2, err := store.Insert(ctx, TableEmergencyContact, []Predicate{
		Eq("impaired_user_id", 1), Eq("contact_name", "Tom"), Eq("contact_tel", "556"),
	})
	require.NoError(t, err)
	_, err = store.Insert(ctx, TableEmergencyContact, []Predicate{
		Eq("impaired_user_id", 2), Eq("contact_name", "Other"), Eq("contact_tel", "000"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)

	res, err := store.Get(ctx, Lookup{
		Table:   TableEmergencyContact,
		Where:   []Predicate{Eq("impaired_user_id", int64(1))},
		Columns: []string{"id", "contact_name"},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Sarah", res.Rows[0].String("contact_name"))
	assert.Equal(t, "Tom", res.Rows[1].String("contact_name"))
	_, hasTel := res.Rows[0]["contact_tel"]
	assert.False(t, hasTel)

	single, err := store.Get(ctx, Lookup{
		Table:  TableEmergencyContact,
		Where:  []Predicate{Eq("impaired_user_id", 1)},
		Single: true,
	})
	require.NoError(t, err)
	assert.Len(t, single.Rows, 1)

	none, err := store.Get(ctx, Lookup{Table: TableEmergencyContact, Where: []Predicate{Eq("impaired_user_id", 42)}})
	require.NoError(t, err)
	assert.False(t, none.Found())
	assert.Nil(t, none.Rows)
}

func TestMemoryStore_UniqueKeys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Insert(ctx, TableCurrentTrip, []Predicate{
		Eq("impaired_user_id", 1), Eq("from_location", "A"), Eq("to_location", "B"),
	})
	require.NoError(t, err)
	_, err = store.Insert(ctx, TableCurrentTrip, []Predicate{
		Eq("impaired_user_id", 1), Eq("from_location", "C"), Eq("to_location", "D"),
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = store.Insert(ctx, TableUsers, []Predicate{Eq("email", "a@x"), Eq("user_type", "impaired")})
	require.NoError(t, err)
	id, err := store.Insert(ctx, TableUsers, []Predicate{Eq("email", "b@x"), Eq("user_type", "impaired")})
	require.NoError(t, err)
	err = store.Update(ctx, TableUsers, []Predicate{Eq("id", id)}, []Predicate{Eq("email", "a@x")})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestMemoryStore_UpdateDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Insert(ctx, TableUsers, []Predicate{Eq("email", "a@x"), Eq("firstname", "A")})
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, TableUsers, []Predicate{Eq("id", id)}, []Predicate{Eq("firstname", "B")}))
	res, err := store.Get(ctx, Lookup{Table: TableUsers, Where: []Predicate{Eq("id", id)}, Single: true})
	require.NoError(t, err)
	rec, _ := res.One()
	assert.Equal(t, "B", rec.String("firstname"))

	err = store.Update(ctx, TableUsers, []Predicate{Eq("id", 999)}, []Predicate{Eq("firstname", "C")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.Update(ctx, TableUsers, []Predicate{Eq("id", id)}, nil)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = store.Delete(ctx, TableUsers, nil)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	n, err := store.Delete(ctx, TableUsers, []Predicate{Eq("id", id)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Delete(ctx, TableUsers, []Predicate{Eq("id", id)})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStore_AtomicRollsBack(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Insert(ctx, TableCaretakerInfo, []Predicate{Eq("impaired_user_id", 1), Eq("caretaker_user_id", 2)})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.Atomic(ctx, LockKey{Namespace: LockPairing, ID: 1}, func(tx Tables) error {
		if err := tx.Update(ctx, TableCaretakerInfo,
			[]Predicate{Eq("impaired_user_id", 1)},
			[]Predicate{Eq("caretaker_user_id", 3)}); err != nil {
			return err
		}
		if _, err := tx.Insert(ctx, TableCaretakerInfo, []Predicate{Eq("impaired_user_id", 5), Eq("caretaker_user_id", 6)}); err != nil {
			return err
		}
		if _, err := tx.Delete(ctx, TableCaretakerInfo, []Predicate{Eq("impaired_user_id", 1)}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	res, err := store.Get(ctx, Lookup{Table: TableCaretakerInfo, Where: []Predicate{Eq("impaired_user_id", 1)}})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(2), res.Rows[0].Int64("caretaker_user_id"))

	res, err = store.Get(ctx, Lookup{Table: TableCaretakerInfo, Where: []Predicate{Eq("impaired_user_id", 5)}})
	require.NoError(t, err)
	assert.False(t, res.Found())
}

func TestMemoryStore_HonorsContext(t *testing.T) {
	store := NewMemoryStore()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := store.Get(ctx, Lookup{Table: TableUsers})
	assert.ErrorIs(t, err, domain.ErrTimeout)

	// a held key lock is not waited on past the deadline
	hold := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = store.Atomic(context.Background(), LockKey{Namespace: LockTrip, ID: 1}, func(Tables) error {
			close(hold)
			<-done
			return nil
		})
	}()
	<-hold
	short, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	err = store.Atomic(short, LockKey{Namespace: LockTrip, ID: 1}, func(Tables) error { return nil })
	assert.ErrorIs(t, err, domain.ErrTimeout)
	close(done)
}

func TestMemoryStore_Max(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, found, err := store.Max(ctx, TableConversationMessages, "msg_ordered_number", []Predicate{Eq("ccc_id", 1)})
	require.NoError(t, err)
	assert.False(t, found)

	for _, n := range []int64{1, 3, 2} {
		_, err := store.Insert(ctx, TableConversationMessages, []Predicate{
			Eq("ccc_id", 1), Eq("msg_ordered_number", n), Eq("user_type", "impaired"), Eq("msg", "hi"),
		})
		require.NoError(t, err)
	}
	top, found, err := store.Max(ctx, TableConversationMessages, "msg_ordered_number", []Predicate{Eq("ccc_id", 1)})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(3), top)
}
