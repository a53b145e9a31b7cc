package httpapi

import (
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/authz"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
)

// Guards 路由注册时组合的 guard 链（Authenticated -> Paired -> Role）
type Guards struct {
	sessions authz.SessionResolver
	roles    authz.RoleResolver
	pairs    authz.CounterpartResolver
}

func NewGuards(sessions authz.SessionResolver, roles authz.RoleResolver, pairs authz.CounterpartResolver) *Guards {
	return &Guards{sessions: sessions, roles: roles, pairs: pairs}
}

// Auth admits any logged-in caller and resolves its role.
func (g *Guards) Auth() authz.Guard {
	return authz.Chain(authz.RequireAuthenticated(g.sessions), authz.LoadRole(g.roles))
}

func (g *Guards) Role(role domain.Role) authz.Guard {
	return authz.Chain(authz.RequireAuthenticated(g.sessions), authz.RequireRole(g.roles, role))
}

func (g *Guards) Paired() authz.Guard {
	return authz.Chain(authz.RequireAuthenticated(g.sessions), authz.RequirePaired(g.roles, g.pairs))
}

func (g *Guards) PairedRole(role domain.Role) authz.Guard {
	return authz.Chain(
		authz.RequireAuthenticated(g.sessions),
		authz.RequirePaired(g.roles, g.pairs),
		authz.RequireRole(g.roles, role),
	)
}
