package repository

import (
	"context"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
)

// TripsRepository current_trip / past_trips 访问接口
type TripsRepository interface {
	GetCurrentTrip(ctx context.Context, impairedUserID int64) (*domain.CurrentTrip, error)
	// CreateCurrentTrip fails with Conflict when a trip is already in progress.
	CreateCurrentTrip(ctx context.Context, trip *domain.CurrentTrip) error
	DeleteCurrentTrip(ctx context.Context, impairedUserID int64) error

	ListPastTrips(ctx context.Context, impairedUserID int64) ([]domain.PastTrip, error)
	GetPastTrip(ctx context.Context, impairedUserID, tripID int64) (*domain.PastTrip, error)
	CreatePastTrip(ctx context.Context, trip *domain.PastTrip) (int64, error)
}

type TripsRepo struct {
	store Store
	now   func() time.Time
}

func NewTripsRepo(store Store) *TripsRepo {
	return &TripsRepo{store: store, now: time.Now}
}

var _ TripsRepository = (*TripsRepo)(nil)

var (
	ErrTripInProgress = domain.E(domain.KindConflict,
		"the user is on a trip that is already in progress first complete the trip by removing it")
	errNotOnTrip        = domain.E(domain.KindNotFound, "user is not on a trip")
	errPastTripNotFound = domain.E(domain.KindNotFound, "past trip doesn't exist")
)

func (r *TripsRepo) GetCurrentTrip(ctx context.Context, impairedUserID int64) (*domain.CurrentTrip, error) {
	return getCurrentTrip(ctx, r.store, impairedUserID)
}

func getCurrentTrip(ctx context.Context, t Tables, impairedUserID int64) (*domain.CurrentTrip, error) {
	res, err := t.Get(ctx, Lookup{
		Table:  TableCurrentTrip,
		Where:  []Predicate{Eq("impaired_user_id", impairedUserID)},
		Single: true,
	})
	if err != nil {
		return nil, err
	}
	rec, ok := res.One()
	if !ok {
		return nil, errNotOnTrip
	}
	return &domain.CurrentTrip{
		ImpairedUserID: rec.Int64("impaired_user_id"),
		From:           rec.String("from_location"),
		To:             rec.String("to_location"),
	}, nil
}

// CreateCurrentTrip 在 trip:<impaired> 锁内检查并插入
func (r *TripsRepo) CreateCurrentTrip(ctx context.Context, trip *domain.CurrentTrip) error {
	return r.store.Atomic(ctx, LockKey{Namespace: LockTrip, ID: trip.ImpairedUserID}, func(t Tables) error {
		_, err := getCurrentTrip(ctx, t, trip.ImpairedUserID)
		if err == nil {
			return ErrTripInProgress
		}
		if domain.KindOf(err) != domain.KindNotFound {
			return err
		}
		_, err = t.Insert(ctx, TableCurrentTrip, []Predicate{
			Eq("impaired_user_id", trip.ImpairedUserID),
			Eq("from_location", trip.From),
			Eq("to_location", trip.To),
		})
		if domain.KindOf(err) == domain.KindConflict {
			return ErrTripInProgress
		}
		return err
	})
}

// DeleteCurrentTrip ends the trip. Nothing is archived to past_trips.
func (r *TripsRepo) DeleteCurrentTrip(ctx context.Context, impairedUserID int64) error {
	var n int64
	err := r.store.Atomic(ctx, LockKey{Namespace: LockTrip, ID: impairedUserID}, func(t Tables) error {
		var err error
		n, err = t.Delete(ctx, TableCurrentTrip, []Predicate{Eq("impaired_user_id", impairedUserID)})
		return err
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return errNotOnTrip
	}
	return nil
}

func (r *TripsRepo) ListPastTrips(ctx context.Context, impairedUserID int64) ([]domain.PastTrip, error) {
	res, err := r.store.Get(ctx, Lookup{
		Table: TablePastTrips,
		Where: []Predicate{Eq("impaired_user_id", impairedUserID)},
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.PastTrip, 0, len(res.Rows))
	for _, rec := range res.Rows {
		out = append(out, pastTripFromRecord(rec))
	}
	return out, nil
}

func (r *TripsRepo) GetPastTrip(ctx context.Context, impairedUserID, tripID int64) (*domain.PastTrip, error) {
	res, err := r.store.Get(ctx, Lookup{
		Table:  TablePastTrips,
		Where:  []Predicate{Eq("impaired_user_id", impairedUserID), Eq("id", tripID)},
		Single: true,
	})
	if err != nil {
		return nil, err
	}
	rec, ok := res.One()
	if !ok {
		return nil, errPastTripNotFound
	}
	p := pastTripFromRecord(rec)
	return &p, nil
}

// CreatePastTrip stamps CompletedAt with the current time when it is zero.
func (r *TripsRepo) CreatePastTrip(ctx context.Context, trip *domain.PastTrip) (int64, error) {
	if trip.CompletedAt.IsZero() {
		trip.CompletedAt = r.now().UTC()
	}
	id, err := r.store.Insert(ctx, TablePastTrips, []Predicate{
		Eq("impaired_user_id", trip.ImpairedUserID),
		Eq("destination_location", trip.Destination),
		Eq("complete_date", trip.CompletedAt),
	})
	if err != nil {
		return 0, err
	}
	trip.ID = id
	return id, nil
}

func pastTripFromRecord(rec Record) domain.PastTrip {
	return domain.PastTrip{
		ID:             rec.Int64("id"),
		ImpairedUserID: rec.Int64("impaired_user_id"),
		Destination:    rec.String("destination_location"),
		CompletedAt:    rec.Time("complete_date"),
	}
}
