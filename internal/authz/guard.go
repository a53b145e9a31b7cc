// Package authz holds the guards that gate every protected operation.
// Guards are composed once per route and run in order before the handler;
// the first failure stops the chain and nothing after it runs.
package authz

import (
	"context"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
)

// Caller is the request identity guards work on. Guards fill in UserID, Role
// and CounterpartID as they resolve them so later guards and the handler
// reuse the values.
type Caller struct {
	Token         string
	Preflight     bool
	UserID        int64
	Role          domain.Role
	CounterpartID int64
}

// Guard returns nil to let the request continue.
type Guard func(ctx context.Context, c *Caller) error

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

type RoleResolver interface {
	ResolveRole(ctx context.Context, userID int64) (domain.Role, error)
}

type CounterpartResolver interface {
	ResolvePairedCounterpart(ctx context.Context, userID int64, role domain.Role) (int64, error)
}

// Chain runs guards in order and stops at the first failure.
func Chain(guards ...Guard) Guard {
	return func(ctx context.Context, c *Caller) error {
		for _, g := range guards {
			if err := g(ctx, c); err != nil {
				return err
			}
		}
		return nil
	}
}

// RequireAuthenticated binds the caller's session to a user id. CORS
// preflight requests pass without credentials.
func RequireAuthenticated(sessions SessionResolver) Guard {
	return func(ctx context.Context, c *Caller) error {
		if c.Preflight {
			return nil
		}
		if c.Token == "" {
			return domain.ErrUnauthorized
		}
		userID, err := sessions.Resolve(ctx, c.Token)
		if err != nil {
			return err
		}
		c.UserID = userID
		return nil
	}
}

// RequireRole admits only callers of the given role.
func RequireRole(roles RoleResolver, role domain.Role) Guard {
	return func(ctx context.Context, c *Caller) error {
		if c.Preflight {
			return nil
		}
		actual, err := callerRole(ctx, roles, c)
		if err != nil {
			return err
		}
		if actual != role {
			return domain.E(domain.KindForbidden, "user must be a "+string(role)+" user to access this information")
		}
		return nil
	}
}

// LoadRole resolves the caller's role without restricting it, for
// operations that behave differently per role.
func LoadRole(roles RoleResolver) Guard {
	return func(ctx context.Context, c *Caller) error {
		if c.Preflight {
			return nil
		}
		_, err := callerRole(ctx, roles, c)
		return err
	}
}

// RequirePaired admits only callers that currently have a counterpart.
func RequirePaired(roles RoleResolver, pairs CounterpartResolver) Guard {
	return func(ctx context.Context, c *Caller) error {
		if c.Preflight {
			return nil
		}
		role, err := callerRole(ctx, roles, c)
		if err != nil {
			return err
		}
		counterpart, err := pairs.ResolvePairedCounterpart(ctx, c.UserID, role)
		if domain.KindOf(err) == domain.KindNotPaired {
			return domain.Wrap(domain.KindForbidden, domain.ErrNotPaired.Message, err)
		}
		if err != nil {
			return err
		}
		c.CounterpartID = counterpart
		return nil
	}
}

func callerRole(ctx context.Context, roles RoleResolver, c *Caller) (domain.Role, error) {
	if c.UserID == 0 {
		return "", domain.ErrUnauthorized
	}
	if c.Role != "" {
		return c.Role, nil
	}
	role, err := roles.ResolveRole(ctx, c.UserID)
	if domain.KindOf(err) == domain.KindNotFound {
		// the session outlived its user
		return "", domain.Wrap(domain.KindUnauthorized, domain.ErrUnauthorized.Message, err)
	}
	if err != nil {
		return "", err
	}
	c.Role = role
	return role, nil
}
