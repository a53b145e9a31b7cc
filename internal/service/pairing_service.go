package service

import (
	"context"
	"errors"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/events"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/repository"

	"go.uber.org/zap"
)

const msgAssignCaretakerFailed = "error adding caretaker to account"

// PairingService 角色与 caretaker 配对
type PairingService interface {
	ResolveRole(ctx context.Context, userID int64) (domain.Role, error)
	// ResolvePairedCounterpart returns the user paired with userID, ErrNotPaired if none.
	ResolvePairedCounterpart(ctx context.Context, userID int64, role domain.Role) (int64, error)
	// UpsertPairing makes caretakerID the caretaker of impairedID, replacing any previous one.
	UpsertPairing(ctx context.Context, impairedID, caretakerID int64) error
	// AssignCaretaker pairs impairedID with the caretaker owning the given credentials.
	AssignCaretaker(ctx context.Context, impairedID int64, req AssignCaretakerRequest) error
	RemovePairing(ctx context.Context, impairedID int64) error
	GetCaretaker(ctx context.Context, impairedID int64) (*domain.User, error)
	GetImpaired(ctx context.Context, caretakerID int64) (*domain.User, error)
}

// PairingChangedEvent pairing.changed 事件负载；PreviousCaretakerID 为 0 表示新建
type PairingChangedEvent struct {
	ImpairedUserID      int64 `json:"impaired_user_id"`
	CaretakerUserID     int64 `json:"caretaker_user_id"`
	PreviousCaretakerID int64 `json:"previous_caretaker_user_id"`
}

type pairingService struct {
	usersRepo    repository.UsersRepository
	pairingsRepo repository.PairingsRepository
	publisher    events.Publisher
	logger       *zap.Logger
}

func NewPairingService(usersRepo repository.UsersRepository, pairingsRepo repository.PairingsRepository, publisher events.Publisher, logger *zap.Logger) PairingService {
	return &pairingService{
		usersRepo:    usersRepo,
		pairingsRepo: pairingsRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

func (s *pairingService) ResolveRole(ctx context.Context, userID int64) (domain.Role, error) {
	user, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func (s *pairingService) ResolvePairedCounterpart(ctx context.Context, userID int64, role domain.Role) (int64, error) {
	var (
		pairing *domain.CaretakerPairing
		err     error
	)
	switch role {
	case domain.RoleImpaired:
		pairing, err = s.pairingsRepo.GetByImpaired(ctx, userID)
	case domain.RoleCaretaker:
		pairing, err = s.pairingsRepo.GetByCaretaker(ctx, userID)
	default:
		return 0, domain.E(domain.KindValidation, "unknown user type")
	}
	if err != nil {
		return 0, err
	}
	return pairing.Counterpart(role), nil
}

func (s *pairingService) UpsertPairing(ctx context.Context, impairedID, caretakerID int64) error {
	previous, err := s.pairingsRepo.Upsert(ctx, impairedID, caretakerID)
	if err != nil {
		return err
	}
	if previous != 0 && previous != caretakerID {
		s.logger.Info("Caretaker replaced",
			zap.Int64("impaired_user_id", impairedID),
			zap.Int64("previous_caretaker_user_id", previous),
			zap.Int64("caretaker_user_id", caretakerID),
		)
	}
	_ = s.publisher.Publish(ctx, events.PairingChanged, PairingChangedEvent{
		ImpairedUserID:      impairedID,
		CaretakerUserID:     caretakerID,
		PreviousCaretakerID: previous,
	})
	return nil
}

func (s *pairingService) AssignCaretaker(ctx context.Context, impairedID int64, req AssignCaretakerRequest) error {
	if err := validateRequest(req, msgAssignCaretakerFailed, nil); err != nil {
		return err
	}
	caretaker, reason, err := checkCredentials(ctx, s.usersRepo, req.Email, req.Password)
	if domain.KindOf(err) == domain.KindInvalidCredentials {
		s.logger.Warn("Assign caretaker failed",
			zap.Int64("impaired_user_id", impairedID),
			zap.String("reason", reason),
		)
		return domain.Wrap(domain.KindValidation, msgAssignCaretakerFailed, err)
	}
	if err != nil {
		return err
	}
	if caretaker.Role != domain.RoleCaretaker {
		s.logger.Warn("Assign caretaker failed",
			zap.Int64("impaired_user_id", impairedID),
			zap.String("reason", "not_a_caretaker"),
		)
		return domain.E(domain.KindValidation, msgAssignCaretakerFailed)
	}
	return s.UpsertPairing(ctx, impairedID, caretaker.ID)
}

func (s *pairingService) RemovePairing(ctx context.Context, impairedID int64) error {
	pairing, err := s.pairingsRepo.GetByImpaired(ctx, impairedID)
	if err != nil {
		return err
	}
	if err := s.pairingsRepo.Delete(ctx, impairedID); err != nil {
		return err
	}
	_ = s.publisher.Publish(ctx, events.PairingChanged, PairingChangedEvent{
		ImpairedUserID:      impairedID,
		PreviousCaretakerID: pairing.CaretakerUserID,
	})
	return nil
}

func (s *pairingService) GetCaretaker(ctx context.Context, impairedID int64) (*domain.User, error) {
	return s.counterpartProfile(ctx, impairedID, domain.RoleImpaired)
}

func (s *pairingService) GetImpaired(ctx context.Context, caretakerID int64) (*domain.User, error) {
	return s.counterpartProfile(ctx, caretakerID, domain.RoleCaretaker)
}

func (s *pairingService) counterpartProfile(ctx context.Context, userID int64, role domain.Role) (*domain.User, error) {
	counterpart, err := s.ResolvePairedCounterpart(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	user, err := s.usersRepo.GetUser(ctx, counterpart)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Wrap(domain.KindNotPaired, domain.ErrNotPaired.Message, err)
	}
	return user, err
}

// subjectUser returns the impaired user whose tracking data the caller reads:
// the caller itself, or the impaired user a caretaker is paired with. what
// names the data for the not-paired message.
func subjectUser(ctx context.Context, pairings repository.PairingsRepository, userID int64, role domain.Role, what string) (int64, error) {
	switch role {
	case domain.RoleImpaired:
		return userID, nil
	case domain.RoleCaretaker:
		pairing, err := pairings.GetByCaretaker(ctx, userID)
		if domain.KindOf(err) == domain.KindNotPaired {
			return 0, domain.Wrap(domain.KindForbidden, "caretaker does not have a impaired user to look at their "+what, err)
		}
		if err != nil {
			return 0, err
		}
		return pairing.ImpairedUserID, nil
	}
	return 0, domain.E(domain.KindValidation, "unknown user type")
}
