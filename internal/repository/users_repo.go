package repository

import (
	"context"
	"errors"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
)

// UsersRepository 用户Repository接口
type UsersRepository interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (int64, error)
	UpdateUser(ctx context.Context, userID int64, patch domain.UserPatch) error
}

// UsersRepo UsersRepository 在 Store 上的实现
type UsersRepo struct {
	store Store
}

func NewUsersRepo(store Store) *UsersRepo {
	return &UsersRepo{store: store}
}

var _ UsersRepository = (*UsersRepo)(nil)

var errEmailTaken = domain.E(domain.KindConflict, "email is already in use")

// GetUser 获取用户；不存在返回 ErrNotFound
func (r *UsersRepo) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return r.getOne(ctx, Eq("id", userID))
}

// GetUserByEmail 按 email 查找（大小写不敏感）
func (r *UsersRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, Eq("email", email))
}

func (r *UsersRepo) getOne(ctx context.Context, where ...Predicate) (*domain.User, error) {
	res, err := r.store.Get(ctx, Lookup{Table: TableUsers, Where: where, Single: true})
	if err != nil {
		return nil, err
	}
	rec, ok := res.One()
	if !ok {
		return nil, domain.E(domain.KindNotFound, "user does not exist")
	}
	return userFromRecord(rec), nil
}

// CreateUser 创建用户，email 重复返回 Conflict
func (r *UsersRepo) CreateUser(ctx context.Context, user *domain.User) (int64, error) {
	if user == nil {
		return 0, domain.E(domain.KindValidation, "user is required")
	}
	if !user.Role.Valid() {
		return 0, domain.E(domain.KindValidation, "user_type must be impaired or caretaker")
	}
	id, err := r.store.Insert(ctx, TableUsers, []Predicate{
		Eq("email", domain.NormalizeEmail(user.Email)),
		Eq("password_hash", user.PasswordHash),
		Eq("firstname", user.FirstName),
		Eq("lastname", user.LastName),
		Eq("user_type", string(user.Role)),
	})
	if errors.Is(err, domain.ErrConflict) {
		return 0, domain.Wrap(domain.KindConflict, errEmailTaken.Message, err)
	}
	if err != nil {
		return 0, err
	}
	user.ID = id
	return id, nil
}

// UpdateUser 只更新 patch 中非 nil 的字段
func (r *UsersRepo) UpdateUser(ctx context.Context, userID int64, patch domain.UserPatch) error {
	var values []Predicate
	if patch.Email != nil {
		values = append(values, Eq("email", domain.NormalizeEmail(*patch.Email)))
	}
	if patch.PasswordHash != nil {
		values = append(values, Eq("password_hash", *patch.PasswordHash))
	}
	if patch.FirstName != nil {
		values = append(values, Eq("firstname", *patch.FirstName))
	}
	if patch.LastName != nil {
		values = append(values, Eq("lastname", *patch.LastName))
	}

	err := r.store.Update(ctx, TableUsers, []Predicate{Eq("id", userID)}, values)
	switch {
	case errors.Is(err, domain.ErrConflict):
		return domain.Wrap(domain.KindConflict, errEmailTaken.Message, err)
	case errors.Is(err, domain.ErrNotFound):
		return domain.E(domain.KindNotFound, "user does not exist")
	}
	return err
}

func userFromRecord(rec Record) *domain.User {
	return &domain.User{
		ID:           rec.Int64("id"),
		Email:        rec.String("email"),
		PasswordHash: rec.String("password_hash"),
		FirstName:    rec.String("firstname"),
		LastName:     rec.String("lastname"),
		Role:         domain.Role(rec.String("user_type")),
	}
}
