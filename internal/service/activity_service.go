package service

import (
	"context"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/events"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/repository"

	"go.uber.org/zap"
)

// ActivityService impaired 用户的活动记录
type ActivityService interface {
	ListActivities(ctx context.Context, userID int64, role domain.Role) ([]domain.Activity, error)
	GetActivity(ctx context.Context, userID int64, role domain.Role, activityID int64) (*domain.Activity, error)
	AddActivity(ctx context.Context, impairedID int64, req AddActivityRequest) (*domain.Activity, error)
}

type activityService struct {
	activitiesRepo repository.ActivitiesRepository
	pairingsRepo   repository.PairingsRepository
	publisher      events.Publisher
	logger         *zap.Logger
}

func NewActivityService(activitiesRepo repository.ActivitiesRepository, pairingsRepo repository.PairingsRepository, publisher events.Publisher, logger *zap.Logger) ActivityService {
	return &activityService{
		activitiesRepo: activitiesRepo,
		pairingsRepo:   pairingsRepo,
		publisher:      publisher,
		logger:         logger,
	}
}

func (s *activityService) ListActivities(ctx context.Context, userID int64, role domain.Role) ([]domain.Activity, error) {
	impairedID, err := subjectUser(ctx, s.pairingsRepo, userID, role, "activities")
	if err != nil {
		return nil, err
	}
	return s.activitiesRepo.ListActivities(ctx, impairedID)
}

func (s *activityService) GetActivity(ctx context.Context, userID int64, role domain.Role, activityID int64) (*domain.Activity, error) {
	impairedID, err := subjectUser(ctx, s.pairingsRepo, userID, role, "activity")
	if err != nil {
		return nil, err
	}
	return s.activitiesRepo.GetActivity(ctx, impairedID, activityID)
}

func (s *activityService) AddActivity(ctx context.Context, impairedID int64, req AddActivityRequest) (*domain.Activity, error) {
	if err := validateRequest(req, "must contain a json with notice_status and small_description to add a activity", map[string]string{
		"NoticeStatus.oneof": "notice_status must contain the value Good, Okay, or Bad",
	}); err != nil {
		return nil, err
	}
	activity := &domain.Activity{
		ImpairedUserID: impairedID,
		Status:         domain.ActivityStatus(req.NoticeStatus),
		Description:    req.SmallDescription,
	}
	if _, err := s.activitiesRepo.CreateActivity(ctx, activity); err != nil {
		return nil, err
	}
	_ = s.publisher.Publish(ctx, events.ActivityAdded, map[string]any{
		"impaired_user_id": impairedID,
		"activity_id":      activity.ID,
		"notice_status":    string(activity.Status),
	})
	return activity, nil
}
