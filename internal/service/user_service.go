package service

import (
	"context"
	"fmt"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/repository"

	"go.uber.org/zap"
)

const msgNoProfileData = "did not give any data to update user to the server"

// UserService 当前会话用户资料
type UserService interface {
	GetProfile(ctx context.Context, userID int64) (*domain.User, error)
	// UpdateProfile applies the non-nil fields; the password is stored hashed.
	UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) error
}

type userService struct {
	usersRepo repository.UsersRepository
	logger    *zap.Logger
}

func NewUserService(usersRepo repository.UsersRepository, logger *zap.Logger) UserService {
	return &userService{usersRepo: usersRepo, logger: logger}
}

func (s *userService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.usersRepo.GetUser(ctx, userID)
	if domain.KindOf(err) == domain.KindNotFound {
		return nil, domain.Wrap(domain.KindUnauthorized, domain.ErrUnauthorized.Message, err)
	}
	return user, err
}

func (s *userService) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) error {
	patch := domain.UserPatch{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if patch.Empty() && req.Password == nil {
		return domain.E(domain.KindValidation, msgNoProfileData)
	}
	if err := validateRequest(req, "invalid profile data", map[string]string{
		"Email.email": "email is not a valid email address",
	}); err != nil {
		return err
	}
	if req.Password != nil {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}
	if err := s.usersRepo.UpdateUser(ctx, userID, patch); err != nil {
		return err
	}
	s.logger.Info("User profile updated",
		zap.Int64("user_id", userID),
		zap.Bool("password_changed", req.Password != nil),
	)
	return nil
}
