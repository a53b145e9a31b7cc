package service

import (
	"context"
	"errors"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/repository"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 登录 / 登出 / 刷新会话
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	// Logout destroys the session; an unknown token is not an error.
	Logout(ctx context.Context, token string) error
	// Refresh rotates the session token.
	Refresh(ctx context.Context, token string) (*store.Session, error)
}

// LoginResponse 登录响应
type LoginResponse struct {
	Session store.Session `json:"session"`
	User    *domain.User  `json:"user"`
}

type authService struct {
	usersRepo repository.UsersRepository
	sessions  store.SessionStore
	logger    *zap.Logger
}

func NewAuthService(usersRepo repository.UsersRepository, sessions store.SessionStore, logger *zap.Logger) AuthService {
	return &authService{
		usersRepo: usersRepo,
		sessions:  sessions,
		logger:    logger,
	}
}

// HashPassword bcrypt 哈希
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// dummyHash keeps unknown-email logins as slow as wrong-password ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("theia-dummy-password"), bcrypt.DefaultCost)

// checkCredentials returns the user whose email and password both match.
// Every mismatch is ErrInvalidCredentials; reason says which for logs.
func checkCredentials(ctx context.Context, users repository.UsersRepository, email, password string) (*domain.User, string, error) {
	user, err := users.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, "unknown_email", domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "lookup_failed", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "password_mismatch", domain.ErrInvalidCredentials
	}
	return user, "", nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := validateRequest(req, domain.ErrInvalidCredentials.Message, nil); err != nil {
		s.logger.Warn("User login failed: missing credentials",
			zap.String("ip_address", req.IPAddress),
			zap.String("user_agent", req.UserAgent),
			zap.String("reason", "missing_credentials"),
		)
		return nil, domain.Wrap(domain.KindInvalidCredentials, domain.ErrInvalidCredentials.Message, err)
	}

	user, reason, err := checkCredentials(ctx, s.usersRepo, req.Email, req.Password)
	if err != nil {
		if domain.KindOf(err) == domain.KindInvalidCredentials {
			s.logger.Warn("User login failed: invalid credentials",
				zap.String("ip_address", req.IPAddress),
				zap.String("user_agent", req.UserAgent),
				zap.String("reason", reason),
			)
		}
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if req.PreviousToken != "" && req.PreviousToken != sess.Token {
		if err := s.sessions.Destroy(ctx, req.PreviousToken); err != nil {
			s.logger.Warn("Failed to destroy previous session on login",
				zap.Int64("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("User logged in",
		zap.Int64("user_id", user.ID),
		zap.String("user_type", string(user.Role)),
		zap.String("ip_address", req.IPAddress),
	)
	return &LoginResponse{Session: sess, User: user}, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

func (s *authService) Refresh(ctx context.Context, token string) (*store.Session, error) {
	sess, err := s.sessions.Rotate(ctx, token)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
