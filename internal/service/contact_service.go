package service

import (
	"context"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/repository"

	"go.uber.org/zap"
)

// ContactService impaired 用户的紧急联系人
type ContactService interface {
	ListContacts(ctx context.Context, impairedID int64) ([]domain.EmergencyContact, error)
	GetContact(ctx context.Context, impairedID, contactID int64) (*domain.EmergencyContact, error)
	AddContact(ctx context.Context, impairedID int64, req AddContactRequest) (*domain.EmergencyContact, error)
	DeleteContact(ctx context.Context, impairedID, contactID int64) error
}

type contactService struct {
	contactsRepo repository.ContactsRepository
	logger       *zap.Logger
}

func NewContactService(contactsRepo repository.ContactsRepository, logger *zap.Logger) ContactService {
	return &contactService{contactsRepo: contactsRepo, logger: logger}
}

func (s *contactService) ListContacts(ctx context.Context, impairedID int64) ([]domain.EmergencyContact, error) {
	return s.contactsRepo.ListContacts(ctx, impairedID)
}

func (s *contactService) GetContact(ctx context.Context, impairedID, contactID int64) (*domain.EmergencyContact, error) {
	return s.contactsRepo.GetContact(ctx, impairedID, contactID)
}

func (s *contactService) AddContact(ctx context.Context, impairedID int64, req AddContactRequest) (*domain.EmergencyContact, error) {
	if err := validateRequest(req, "must contain a json with contact_name and contact_tel to add a emergency contact", map[string]string{
		"ContactName.max": "contact_name is too long",
		"ContactTel.max":  "contact_tel is too long",
	}); err != nil {
		return nil, err
	}
	contact := &domain.EmergencyContact{
		ImpairedUserID: impairedID,
		Name:           req.ContactName,
		Phone:          req.ContactTel,
	}
	id, err := s.contactsRepo.CreateContact(ctx, contact)
	if err != nil {
		return nil, err
	}
	contact.ID = id
	s.logger.Debug("Emergency contact added",
		zap.Int64("impaired_user_id", impairedID),
		zap.Int64("contact_id", id),
	)
	return contact, nil
}

func (s *contactService) DeleteContact(ctx context.Context, impairedID, contactID int64) error {
	return s.contactsRepo.DeleteContact(ctx, impairedID, contactID)
}
