package rbac

import (
	"slices"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// Service resolves permissions for principals.
type Service struct {
	grants map[shared.Role][]string
}

// NewService constructs a Service with the built-in role grants.
func NewService() *Service {
	return &Service{grants: rolePermissions}
}

// EffectivePermissions lists the permissions a role holds.
func (s *Service) EffectivePermissions(role shared.Role) []string {
	return slices.Clone(s.grants[role])
}

// Can reports whether p holds perm.
func (s *Service) Can(p shared.Principal, perm string) bool {
	return slices.Contains(s.grants[p.Role], perm)
}
