package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"

	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// SeedUser is a demo account created at startup.
type SeedUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
	Contacts  []domain.EmergencyContact
}

// DefaultSeedUsers are the demo accounts the mobile client ships with.
var DefaultSeedUsers = []SeedUser{
	{
		Email: "janedoe@fake.com", Password: "password",
		FirstName: "Jane", LastName: "Doe", Role: domain.RoleImpaired,
		Contacts: []domain.EmergencyContact{{Name: "Sarah Johnson", Phone: "555-123-4567"}},
	},
	{
		Email: "philjonas@fake.com", Password: "password",
		FirstName: "Phil", LastName: "Jonas", Role: domain.RoleCaretaker,
	},
}

// Seed inserts the given users unless an account with the same email
// exists. Contacts are only added for users created by this call.
func Seed(ctx context.Context, store Store, hash func(string) (string, error), seeds []SeedUser, logger *zap.Logger) error {
	users := NewUsersRepo(store)
	contacts := NewContactsRepo(store)

	for _, s := range seeds {
		_, err := users.GetUserByEmail(ctx, s.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("seed lookup %s: %w", s.Email, err)
		}

		h, err := hash(s.Password)
		if err != nil {
			return fmt.Errorf("seed hash %s: %w", s.Email, err)
		}
		id, err := users.CreateUser(ctx, &domain.User{
			Email:        s.Email,
			PasswordHash: h,
			FirstName:    s.FirstName,
			LastName:     s.LastName,
			Role:         s.Role,
		})
		if err != nil {
			return fmt.Errorf("seed user %s: %w", s.Email, err)
		}
		for _, c := range s.Contacts {
			c.ImpairedUserID = id
			if _, err := contacts.CreateContact(ctx, &c); err != nil {
				return fmt.Errorf("seed contact for %s: %w", s.Email, err)
			}
		}
		logger.Info("Seeded user",
			zap.Int64("user_id", id),
			zap.String("email", s.Email),
			zap.String("user_type", string(s.Role)),
		)
	}
	return nil
}
