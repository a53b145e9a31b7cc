package repository

import (
	"context"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
)

// ActivitiesRepository activity 访问接口
type ActivitiesRepository interface {
	ListActivities(ctx context.Context, impairedUserID int64) ([]domain.Activity, error)
	GetActivity(ctx context.Context, impairedUserID, activityID int64) (*domain.Activity, error)
	CreateActivity(ctx context.Context, a *domain.Activity) (int64, error)
}

type ActivitiesRepo struct {
	store Store
	now   func() time.Time
}

func NewActivitiesRepo(store Store) *ActivitiesRepo {
	return &ActivitiesRepo{store: store, now: time.Now}
}

var _ ActivitiesRepository = (*ActivitiesRepo)(nil)

func (r *ActivitiesRepo) ListActivities(ctx context.Context, impairedUserID int64) ([]domain.Activity, error) {
	res, err := r.store.Get(ctx, Lookup{
		Table: TableActivity,
		Where: []Predicate{Eq("impaired_user_id", impairedUserID)},
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Activity, 0, len(res.Rows))
	for _, rec := range res.Rows {
		out = append(out, activityFromRecord(rec))
	}
	return out, nil
}

func (r *ActivitiesRepo) GetActivity(ctx context.Context, impairedUserID, activityID int64) (*domain.Activity, error) {
	res, err := r.store.Get(ctx, Lookup{
		Table:  TableActivity,
		Where:  []Predicate{Eq("impaired_user_id", impairedUserID), Eq("id", activityID)},
		Single: true,
	})
	if err != nil {
		return nil, err
	}
	rec, ok := res.One()
	if !ok {
		return nil, domain.E(domain.KindNotFound, "activity doesn't exist")
	}
	a := activityFromRecord(rec)
	return &a, nil
}

// CreateActivity 校验 notice_status；OccurredAt 为零值时取当前时间
func (r *ActivitiesRepo) CreateActivity(ctx context.Context, a *domain.Activity) (int64, error) {
	if !a.Status.Valid() {
		return 0, domain.E(domain.KindValidation, "notice_status must contain the value Good, Okay, or Bad")
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = r.now().UTC()
	}
	id, err := r.store.Insert(ctx, TableActivity, []Predicate{
		Eq("impaired_user_id", a.ImpairedUserID),
		Eq("notice_status", string(a.Status)),
		Eq("small_description", a.Description),
		Eq("notice_date", a.OccurredAt),
	})
	if err != nil {
		return 0, err
	}
	a.ID = id
	return id, nil
}

func activityFromRecord(rec Record) domain.Activity {
	return domain.Activity{
		ID:             rec.Int64("id"),
		ImpairedUserID: rec.Int64("impaired_user_id"),
		Status:         domain.ActivityStatus(rec.String("notice_status")),
		Description:    rec.String("small_description"),
		OccurredAt:     rec.Time("notice_date"),
	}
}
