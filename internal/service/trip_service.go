package service

import (
	"context"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/events"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/repository"

	"go.uber.org/zap"
)

var (
	errCaretakerHasNoStatus = domain.E(domain.KindValidation, "caretaker does not have a status since they dont go on trips")
	errStatusNotVisible     = domain.E(domain.KindForbidden, "cannot access status of user if they exist")
)

// TripService 当前行程、历史行程与出行状态
type TripService interface {
	// GetCurrentTrip returns the trip of the caller, or of the caller's
	// impaired user when the caller is a caretaker.
	GetCurrentTrip(ctx context.Context, userID int64, role domain.Role) (*domain.CurrentTrip, error)
	// StartTrip fails with Conflict while another trip is in progress.
	StartTrip(ctx context.Context, impairedID int64, req StartTripRequest) (*domain.CurrentTrip, error)
	EndTrip(ctx context.Context, impairedID int64) error

	ListPastTrips(ctx context.Context, userID int64, role domain.Role) ([]domain.PastTrip, error)
	GetPastTrip(ctx context.Context, userID int64, role domain.Role, tripID int64) (*domain.PastTrip, error)
	AddPastTrip(ctx context.Context, impairedID int64, req AddPastTripRequest) (*domain.PastTrip, error)

	// Status reports whether the impaired user is on a trip.
	Status(ctx context.Context, impairedID int64) (domain.TripStatus, error)
	// StatusOf reports targetID's status to callerID, who must be the target
	// or the target's caretaker. callerID 0 is an anonymous caller.
	StatusOf(ctx context.Context, callerID, targetID int64) (domain.TripStatus, error)
}

type tripService struct {
	tripsRepo    repository.TripsRepository
	usersRepo    repository.UsersRepository
	pairingsRepo repository.PairingsRepository
	publisher    events.Publisher
	logger       *zap.Logger
}

func NewTripService(
	tripsRepo repository.TripsRepository,
	usersRepo repository.UsersRepository,
	pairingsRepo repository.PairingsRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) TripService {
	return &tripService{
		tripsRepo:    tripsRepo,
		usersRepo:    usersRepo,
		pairingsRepo: pairingsRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

func (s *tripService) GetCurrentTrip(ctx context.Context, userID int64, role domain.Role) (*domain.CurrentTrip, error) {
	impairedID, err := subjectUser(ctx, s.pairingsRepo, userID, role, "current trip")
	if err != nil {
		return nil, err
	}
	return s.tripsRepo.GetCurrentTrip(ctx, impairedID)
}

func (s *tripService) StartTrip(ctx context.Context, impairedID int64, req StartTripRequest) (*domain.CurrentTrip, error) {
	if err := validateRequest(req, "must contain a json with from_location and to_location to add a current trip", nil); err != nil {
		return nil, err
	}
	trip := &domain.CurrentTrip{
		ImpairedUserID: impairedID,
		From:           req.FromLocation,
		To:             req.ToLocation,
	}
	if err := s.tripsRepo.CreateCurrentTrip(ctx, trip); err != nil {
		return nil, err
	}
	s.logger.Info("Trip started", zap.Int64("impaired_user_id", impairedID))
	_ = s.publisher.Publish(ctx, events.TripStarted, map[string]any{
		"impaired_user_id": impairedID,
		"from_location":    trip.From,
		"to_location":      trip.To,
	})
	return trip, nil
}

func (s *tripService) EndTrip(ctx context.Context, impairedID int64) error {
	if err := s.tripsRepo.DeleteCurrentTrip(ctx, impairedID); err != nil {
		return err
	}
	s.logger.Info("Trip ended", zap.Int64("impaired_user_id", impairedID))
	_ = s.publisher.Publish(ctx, events.TripEnded, map[string]any{
		"impaired_user_id": impairedID,
	})
	return nil
}

func (s *tripService) ListPastTrips(ctx context.Context, userID int64, role domain.Role) ([]domain.PastTrip, error) {
	impairedID, err := subjectUser(ctx, s.pairingsRepo, userID, role, "past trips")
	if err != nil {
		return nil, err
	}
	return s.tripsRepo.ListPastTrips(ctx, impairedID)
}

func (s *tripService) GetPastTrip(ctx context.Context, userID int64, role domain.Role, tripID int64) (*domain.PastTrip, error) {
	impairedID, err := subjectUser(ctx, s.pairingsRepo, userID, role, "past trip")
	if err != nil {
		return nil, err
	}
	return s.tripsRepo.GetPastTrip(ctx, impairedID, tripID)
}

func (s *tripService) AddPastTrip(ctx context.Context, impairedID int64, req AddPastTripRequest) (*domain.PastTrip, error) {
	if err := validateRequest(req, "must contain a json with destination_location to add a past trip", nil); err != nil {
		return nil, err
	}
	trip := &domain.PastTrip{ImpairedUserID: impairedID, Destination: req.DestinationLocation}
	id, err := s.tripsRepo.CreatePastTrip(ctx, trip)
	if err != nil {
		return nil, err
	}
	_ = s.publisher.Publish(ctx, events.PastTripAdded, map[string]any{
		"impaired_user_id":     impairedID,
		"past_trip_id":         id,
		"destination_location": trip.Destination,
	})
	return trip, nil
}

func (s *tripService) Status(ctx context.Context, impairedID int64) (domain.TripStatus, error) {
	_, err := s.tripsRepo.GetCurrentTrip(ctx, impairedID)
	switch domain.KindOf(err) {
	case domain.KindUnknown:
		if err != nil {
			return "", err
		}
		return domain.TripStatusActive, nil
	case domain.KindNotFound:
		return domain.TripStatusInactive, nil
	}
	return "", err
}

func (s *tripService) StatusOf(ctx context.Context, callerID, targetID int64) (domain.TripStatus, error) {
	if callerID == 0 {
		return "", errStatusNotVisible
	}
	caller, err := s.usersRepo.GetUser(ctx, callerID)
	if domain.KindOf(err) == domain.KindNotFound {
		return "", errStatusNotVisible
	}
	if err != nil {
		return "", err
	}

	if callerID == targetID {
		if caller.Role == domain.RoleCaretaker {
			return "", errCaretakerHasNoStatus
		}
		return s.Status(ctx, targetID)
	}
	if caller.Role == domain.RoleCaretaker {
		pairing, err := s.pairingsRepo.GetByCaretaker(ctx, callerID)
		if domain.KindOf(err) == domain.KindNotPaired {
			return "", errStatusNotVisible
		}
		if err != nil {
			return "", err
		}
		if pairing.ImpairedUserID == targetID {
			return s.Status(ctx, targetID)
		}
	}
	return "", errStatusNotVisible
}
