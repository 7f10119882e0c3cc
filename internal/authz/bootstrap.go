package authz

import "fmt"

// Builtin roles carried by admin tokens
const (
	RoleAdmin    = "admin"
	RoleAuditor  = "readonly_auditor"
	RoleSupport  = "support"
	RoleFinance  = "finance"
	RoleSettings = "shop_settings"
)

// RoleSeed builtin role definition
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds role matrix for the back-office routes
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleAdmin,
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
			},
		},
		{
			Role: RoleAuditor,
			Policies: []Policy{
				{Object: "/admin/orders", Action: "GET"},
				{Object: "/admin/orders/:id", Action: "GET"},
				{Object: "/admin/pending-payments", Action: "GET"},
				{Object: "/admin/settings/shipping", Action: "GET"},
			},
		},
		{
			Role:     RoleSupport,
			Inherits: []string{RoleAuditor},
			Policies: []Policy{
				{Object: "/admin/orders/:id/status", Action: "PATCH"},
				{Object: "/admin/orders/:id/comment", Action: "PATCH"},
			},
		},
		{
			Role:     RoleFinance,
			Inherits: []string{RoleAuditor},
			Policies: []Policy{
				{Object: "/admin/orders/:id/payment/confirm", Action: "POST"},
				{Object: "/admin/orders/:id/payment/reject", Action: "POST"},
				{Object: "/admin/pending-payments/:id/resolve", Action: "POST"},
			},
		},
		{
			Role:     RoleSettings,
			Inherits: []string{RoleAuditor},
			Policies: []Policy{
				{Object: "/admin/settings/shipping", Action: "PUT"},
			},
		},
	}
}

func isBuiltinRole(normalized string) bool {
	for _, seed := range BuiltinRoleSeeds() {
		if role, err := NormalizeRole(seed.Role); err == nil && role == normalized {
			return true
		}
	}
	return false
}

// BootstrapBuiltinRoles writes the builtin roles and their rules. Rows
// that already exist are left alone.
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}
		exists, err := s.enforcer.HasNamedGroupingPolicy("g", role, roleAnchor)
		if err != nil {
			return fmt.Errorf("check builtin role failed: %w", err)
		}
		if !exists {
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor); err != nil {
				return fmt.Errorf("create builtin role failed: %w", err)
			}
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
