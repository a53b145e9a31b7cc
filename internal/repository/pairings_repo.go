package repository

import (
	"context"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
)

// PairingsRepository caretaker_info 访问接口
type PairingsRepository interface {
	GetByImpaired(ctx context.Context, impairedUserID int64) (*domain.CaretakerPairing, error)
	GetByCaretaker(ctx context.Context, caretakerUserID int64) (*domain.CaretakerPairing, error)
	// Upsert sets the caretaker of impairedUserID and returns the caretaker it
	// replaced, 0 when there was none.
	Upsert(ctx context.Context, impairedUserID, caretakerUserID int64) (int64, error)
	Delete(ctx context.Context, impairedUserID int64) error
}

type PairingsRepo struct {
	store Store
}

func NewPairingsRepo(store Store) *PairingsRepo {
	return &PairingsRepo{store: store}
}

var _ PairingsRepository = (*PairingsRepo)(nil)

func (r *PairingsRepo) GetByImpaired(ctx context.Context, impairedUserID int64) (*domain.CaretakerPairing, error) {
	return getPairing(ctx, r.store, Eq("impaired_user_id", impairedUserID))
}

// GetByCaretaker assumes a caretaker appears at most once. If the data ever
// holds several rows the lowest impaired_user_id wins.
func (r *PairingsRepo) GetByCaretaker(ctx context.Context, caretakerUserID int64) (*domain.CaretakerPairing, error) {
	return getPairing(ctx, r.store, Eq("caretaker_user_id", caretakerUserID))
}

func getPairing(ctx context.Context, t Tables, where Predicate) (*domain.CaretakerPairing, error) {
	res, err := t.Get(ctx, Lookup{
		Table:   TableCaretakerInfo,
		Where:   []Predicate{where},
		Single:  true,
		OrderBy: "impaired_user_id",
	})
	if err != nil {
		return nil, err
	}
	rec, ok := res.One()
	if !ok {
		return nil, domain.ErrNotPaired
	}
	return &domain.CaretakerPairing{
		ImpairedUserID:  rec.Int64("impaired_user_id"),
		CaretakerUserID: rec.Int64("caretaker_user_id"),
	}, nil
}

// Upsert 在 pairing:<impaired> 锁内 get-then-insert/update
func (r *PairingsRepo) Upsert(ctx context.Context, impairedUserID, caretakerUserID int64) (int64, error) {
	var previous int64
	err := r.store.Atomic(ctx, LockKey{Namespace: LockPairing, ID: impairedUserID}, func(t Tables) error {
		previous = 0
		current, err := getPairing(ctx, t, Eq("impaired_user_id", impairedUserID))
		switch {
		case err == nil:
			previous = current.CaretakerUserID
			if previous == caretakerUserID {
				return nil
			}
			return t.Update(ctx, TableCaretakerInfo,
				[]Predicate{Eq("impaired_user_id", impairedUserID)},
				[]Predicate{Eq("caretaker_user_id", caretakerUserID)},
			)
		case domain.KindOf(err) == domain.KindNotPaired:
			_, err := t.Insert(ctx, TableCaretakerInfo, []Predicate{
				Eq("impaired_user_id", impairedUserID),
				Eq("caretaker_user_id", caretakerUserID),
			})
			return err
		default:
			return err
		}
	})
	if err != nil {
		return 0, err
	}
	return previous, nil
}

// Delete removes the pairing; ErrNotPaired when there is none.
func (r *PairingsRepo) Delete(ctx context.Context, impairedUserID int64) error {
	var n int64
	err := r.store.Atomic(ctx, LockKey{Namespace: LockPairing, ID: impairedUserID}, func(t Tables) error {
		var err error
		n, err = t.Delete(ctx, TableCaretakerInfo, []Predicate{Eq("impaired_user_id", impairedUserID)})
		return err
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotPaired
	}
	return nil
}
