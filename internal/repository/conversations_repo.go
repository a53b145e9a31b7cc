package repository

import (
	"context"
	"errors"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
)

// ConversationsRepository current_caretaker_conversation(_messages) 访问接口
type ConversationsRepository interface {
	// FindConversation returns the conversation of the pair.
	FindConversation(ctx context.Context, impairedUserID, caretakerUserID int64) (*domain.Conversation, error)
	// CreateConversation returns the pair's existing conversation if there is
	// one; created reports whether a new row was written.
	CreateConversation(ctx context.Context, impairedUserID, caretakerUserID int64) (conv *domain.Conversation, created bool, err error)
	// DeleteConversations removes the pair's conversations with their messages
	// and returns the removed ids.
	DeleteConversations(ctx context.Context, impairedUserID, caretakerUserID int64) ([]int64, error)

	ListMessages(ctx context.Context, conversationID int64) ([]domain.ConversationMessage, error)
	AppendMessage(ctx context.Context, conversationID int64, author domain.Role, body string) (*domain.ConversationMessage, error)
}

type ConversationsRepo struct {
	store Store
}

func NewConversationsRepo(store Store) *ConversationsRepo {
	return &ConversationsRepo{store: store}
}

var _ ConversationsRepository = (*ConversationsRepo)(nil)

var ErrNoConversation = domain.E(domain.KindNotFound, "conversation between users has not been created")

func pairPredicates(impairedUserID, caretakerUserID int64) []Predicate {
	return []Predicate{Eq("impaired_user_id", impairedUserID), Eq("caretaker_user_id", caretakerUserID)}
}

func (r *ConversationsRepo) FindConversation(ctx context.Context, impairedUserID, caretakerUserID int64) (*domain.Conversation, error) {
	res, err := r.store.Get(ctx, Lookup{
		Table:  TableConversation,
		Where:  pairPredicates(impairedUserID, caretakerUserID),
		Single: true,
	})
	if err != nil {
		return nil, err
	}
	rec, ok := res.One()
	if !ok {
		return nil, ErrNoConversation
	}
	return conversationFromRecord(rec), nil
}

// CreateConversation 在 conversation-pair:<impaired> 锁内 get-or-insert
func (r *ConversationsRepo) CreateConversation(ctx context.Context, impairedUserID, caretakerUserID int64) (*domain.Conversation, bool, error) {
	var (
		conv    *domain.Conversation
		created bool
	)
	err := r.store.Atomic(ctx, LockKey{Namespace: LockConversationPair, ID: impairedUserID}, func(t Tables) error {
		conv, created = nil, false
		pair := pairPredicates(impairedUserID, caretakerUserID)
		res, err := t.Get(ctx, Lookup{Table: TableConversation, Where: pair, Single: true})
		if err != nil {
			return err
		}
		if rec, ok := res.One(); ok {
			conv = conversationFromRecord(rec)
			return nil
		}
		id, err := t.Insert(ctx, TableConversation, pair)
		if err != nil {
			return err
		}
		conv = &domain.Conversation{ID: id, ImpairedUserID: impairedUserID, CaretakerUserID: caretakerUserID}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}

// DeleteConversations removes each conversation under conversation:<id>, the
// lock AppendMessage holds, so no append lands after its conversation is gone.
func (r *ConversationsRepo) DeleteConversations(ctx context.Context, impairedUserID, caretakerUserID int64) ([]int64, error) {
	res, err := r.store.Get(ctx, Lookup{
		Table:   TableConversation,
		Where:   pairPredicates(impairedUserID, caretakerUserID),
		Columns: []string{"id"},
	})
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, rec := range res.Rows {
		id := rec.Int64("id")
		removed, err := r.deleteConversation(ctx, id)
		if err != nil {
			return ids, err
		}
		if removed {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoConversation
	}
	return ids, nil
}

func (r *ConversationsRepo) deleteConversation(ctx context.Context, conversationID int64) (bool, error) {
	var removed bool
	err := r.store.Atomic(ctx, LockKey{Namespace: LockConversation, ID: conversationID}, func(t Tables) error {
		if _, err := t.Delete(ctx, TableConversationMessages, []Predicate{Eq("ccc_id", conversationID)}); err != nil {
			return err
		}
		n, err := t.Delete(ctx, TableConversation, []Predicate{Eq("id", conversationID)})
		removed = n > 0
		return err
	})
	return removed, err
}

// ListMessages 按 msg_ordered_number 升序
func (r *ConversationsRepo) ListMessages(ctx context.Context, conversationID int64) ([]domain.ConversationMessage, error) {
	res, err := r.store.Get(ctx, Lookup{
		Table:   TableConversationMessages,
		Where:   []Predicate{Eq("ccc_id", conversationID)},
		OrderBy: "msg_ordered_number",
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.ConversationMessage, 0, len(res.Rows))
	for _, rec := range res.Rows {
		out = append(out, messageFromRecord(rec))
	}
	return out, nil
}

// AppendMessage allocates the next sequence number of the conversation and
// inserts the message as one unit serialized on conversation:<id>. The
// (ccc_id, msg_ordered_number) unique key backs the lock up; a collision on
// it is reported as contention so Atomic retries with a fresh max.
func (r *ConversationsRepo) AppendMessage(ctx context.Context, conversationID int64, author domain.Role, body string) (*domain.ConversationMessage, error) {
	if !author.Valid() {
		return nil, domain.E(domain.KindValidation, "user_type must be impaired or caretaker")
	}

	var msg *domain.ConversationMessage
	err := r.store.Atomic(ctx, LockKey{Namespace: LockConversation, ID: conversationID}, func(t Tables) error {
		msg = nil
		res, err := t.Get(ctx, Lookup{
			Table:   TableConversation,
			Where:   []Predicate{Eq("id", conversationID)},
			Columns: []string{"id"},
			Single:  true,
		})
		if err != nil {
			return err
		}
		if !res.Found() {
			return ErrNoConversation
		}

		last, _, err := t.Max(ctx, TableConversationMessages, "msg_ordered_number",
			[]Predicate{Eq("ccc_id", conversationID)})
		if err != nil {
			return err
		}
		next := last + 1

		id, err := t.Insert(ctx, TableConversationMessages, []Predicate{
			Eq("ccc_id", conversationID),
			Eq("msg_ordered_number", next),
			Eq("user_type", string(author)),
			Eq("msg", body),
		})
		if errors.Is(err, domain.ErrConflict) {
			return domain.Wrap(domain.KindContention, domain.ErrContention.Message, err)
		}
		if err != nil {
			return err
		}
		msg = &domain.ConversationMessage{
			ID:             id,
			ConversationID: conversationID,
			SequenceNumber: next,
			AuthorRole:     author,
			Body:           body,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func conversationFromRecord(rec Record) *domain.Conversation {
	return &domain.Conversation{
		ID:              rec.Int64("id"),
		ImpairedUserID:  rec.Int64("impaired_user_id"),
		CaretakerUserID: rec.Int64("caretaker_user_id"),
	}
}

func messageFromRecord(rec Record) domain.ConversationMessage {
	return domain.ConversationMessage{
		ID:             rec.Int64("id"),
		ConversationID: rec.Int64("ccc_id"),
		SequenceNumber: rec.Int64("msg_ordered_number"),
		AuthorRole:     domain.Role(rec.String("user_type")),
		Body:           rec.String("msg"),
	}
}
