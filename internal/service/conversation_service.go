package service

import (
	"context"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/events"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/repository"

	"go.uber.org/zap"
)

// Participant is one side of a paired conversation.
type Participant struct {
	UserID        int64
	Role          domain.Role
	CounterpartID int64
}

// pair returns the impaired and caretaker ids of the conversation.
func (p Participant) pair() (impairedID, caretakerID int64) {
	if p.Role == domain.RoleCaretaker {
		return p.CounterpartID, p.UserID
	}
	return p.UserID, p.CounterpartID
}

// ConversationService impaired 与 caretaker 之间的会话
type ConversationService interface {
	// CreateConversation returns the pair's conversation, creating it on
	// first use; created reports whether it was new.
	CreateConversation(ctx context.Context, p Participant) (conv *domain.Conversation, created bool, err error)
	DeleteConversation(ctx context.Context, p Participant) error
	ListMessages(ctx context.Context, p Participant) ([]domain.ConversationMessage, error)
	AppendMessage(ctx context.Context, p Participant, req AppendMessageRequest) (*domain.ConversationMessage, error)
}

type conversationService struct {
	conversationsRepo repository.ConversationsRepository
	publisher         events.Publisher
	logger            *zap.Logger
}

func NewConversationService(conversationsRepo repository.ConversationsRepository, publisher events.Publisher, logger *zap.Logger) ConversationService {
	return &conversationService{
		conversationsRepo: conversationsRepo,
		publisher:         publisher,
		logger:            logger,
	}
}

func (s *conversationService) CreateConversation(ctx context.Context, p Participant) (*domain.Conversation, bool, error) {
	impairedID, caretakerID := p.pair()
	conv, created, err := s.conversationsRepo.CreateConversation(ctx, impairedID, caretakerID)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("Conversation created",
			zap.Int64("conversation_id", conv.ID),
			zap.Int64("impaired_user_id", impairedID),
			zap.Int64("caretaker_user_id", caretakerID),
		)
		_ = s.publisher.Publish(ctx, events.ConversationCreated, conv)
	}
	return conv, created, nil
}

func (s *conversationService) DeleteConversation(ctx context.Context, p Participant) error {
	impairedID, caretakerID := p.pair()
	ids, err := s.conversationsRepo.DeleteConversations(ctx, impairedID, caretakerID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		_ = s.publisher.Publish(ctx, events.ConversationDeleted, map[string]any{
			"conversation_id": id,
			"deleted_by":      p.UserID,
		})
	}
	return nil
}

func (s *conversationService) ListMessages(ctx context.Context, p Participant) ([]domain.ConversationMessage, error) {
	impairedID, caretakerID := p.pair()
	conv, err := s.conversationsRepo.FindConversation(ctx, impairedID, caretakerID)
	if err != nil {
		return nil, err
	}
	return s.conversationsRepo.ListMessages(ctx, conv.ID)
}

func (s *conversationService) AppendMessage(ctx context.Context, p Participant, req AppendMessageRequest) (*domain.ConversationMessage, error) {
	if err := validateRequest(req, "must contain a json with msg to add a conversation message", map[string]string{
		"Msg.max": "msg is too long",
	}); err != nil {
		return nil, err
	}
	impairedID, caretakerID := p.pair()
	conv, err := s.conversationsRepo.FindConversation(ctx, impairedID, caretakerID)
	if err != nil {
		return nil, err
	}
	msg, err := s.conversationsRepo.AppendMessage(ctx, conv.ID, p.Role, req.Msg)
	if err != nil {
		if domain.KindOf(err) == domain.KindContention {
			s.logger.Warn("Message append gave up after retries",
				zap.Int64("conversation_id", conv.ID),
				zap.Error(err),
			)
		}
		return nil, err
	}
	_ = s.publisher.Publish(ctx, events.MessageAppended, map[string]any{
		"conversation_id":    conv.ID,
		"msg_ordered_number": msg.SequenceNumber,
		"user_type":          string(msg.AuthorRole),
	})
	return msg, nil
}
