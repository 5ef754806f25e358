package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 推荐计划后台的角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     "referral_reviewer",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/leads/:id/approve", Action: "POST"},
				{Object: "/admin/leads/:id/reject", Action: "POST"},
			},
		},
		{
			Role:     "referral_manager",
			Inherits: []string{"referral_reviewer"},
			Policies: []Policy{
				{Object: "/admin/partners/:id", Action: "*"},
				{Object: "/admin/partners/:id/status", Action: "PATCH"},
				{Object: "/admin/partners/:id/notify", Action: "POST"},
				{Object: "/admin/partners/reconcile", Action: "POST"},
				{Object: "/admin/leads/:id", Action: "DELETE"},
				{Object: "/admin/tiers", Action: "PUT"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色的继承关系与策略，已存在的规则跳过
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	for _, seed := range BuiltinRoleSeeds() {
		role := RoleName(seed.Role)
		for _, parent := range seed.Inherits {
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, RoleName(parent)); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), NormalizeAction(policy.Action)); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
