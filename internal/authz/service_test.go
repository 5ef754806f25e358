package authz

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}
	return svc
}

func mustEnforce(t *testing.T, svc *Service, adminID uint, obj, act string) bool {
	t.Helper()
	allow, err := svc.EnforceAdmin(adminID, obj, act)
	if err != nil {
		t.Fatalf("enforce %s %s failed: %v", act, obj, err)
	}
	return allow
}

func TestReviewerCanAdjudicateButNotEditPartners(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if _, err := svc.SetAdminRoles(1, []string{"referral_reviewer"}); err != nil {
		t.Fatalf("set roles failed: %v", err)
	}

	if !mustEnforce(t, svc, 1, "/api/v1/admin/leads/42/approve", "post") {
		t.Fatalf("reviewer should approve leads")
	}
	if !mustEnforce(t, svc, 1, "/api/v1/admin/partners", "GET") {
		t.Fatalf("reviewer should inherit read access")
	}
	if mustEnforce(t, svc, 1, "/api/v1/admin/partners/7", "PUT") {
		t.Fatalf("reviewer must not edit partners")
	}
	if mustEnforce(t, svc, 1, "/api/v1/admin/tiers", "PUT") {
		t.Fatalf("reviewer must not edit tiers")
	}
}

func TestManagerInheritsReviewer(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if _, err := svc.SetAdminRoles(2, []string{"Referral Manager"}); err != nil {
		t.Fatalf("set roles failed: %v", err)
	}
	for _, tc := range []struct{ obj, act string }{
		{"/api/v1/admin/leads/3/reject", "POST"},
		{"/api/v1/admin/partners/3", "DELETE"},
		{"/api/v1/admin/partners/reconcile", "POST"},
		{"/api/v1/admin/tiers", "PUT"},
	} {
		if !mustEnforce(t, svc, 2, tc.obj, tc.act) {
			t.Fatalf("manager should be allowed %s %s", tc.act, tc.obj)
		}
	}
	if mustEnforce(t, svc, 2, "/api/v1/admin/authz/admins/1/roles", "PUT") {
		t.Fatalf("role assignment is reserved for super admins")
	}

	policies, err := svc.GetAdminPolicies(2)
	if err != nil {
		t.Fatalf("get policies failed: %v", err)
	}
	if len(policies) < 9 {
		t.Fatalf("expected inherited policies, got %d", len(policies))
	}
}

func TestSetAdminRolesOverridesAndValidates(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if _, err := svc.SetAdminRoles(3, []string{"referral_manager"}); err != nil {
		t.Fatalf("set roles failed: %v", err)
	}
	roles, err := svc.SetAdminRoles(3, []string{"readonly_auditor", "readonly_auditor"})
	if err != nil {
		t.Fatalf("override roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "readonly_auditor" {
		t.Fatalf("unexpected roles after override: %v", roles)
	}
	if mustEnforce(t, svc, 3, "/api/v1/admin/leads/1/approve", "POST") {
		t.Fatalf("old role should be revoked")
	}
	if _, err := svc.SetAdminRoles(3, []string{"root"}); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected unknown role, got %v", err)
	}
	if got := svc.ListRoles(); len(got) != 3 {
		t.Fatalf("expected 3 builtin roles, got %v", got)
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := map[string]string{
		"/api/v1/admin/leads": "/admin/leads",
		"admin/tiers":         "/admin/tiers",
		"/api/v1":             "/",
		"":                    "/",
	}
	for in, want := range cases {
		if got := NormalizeObject(in); got != want {
			t.Fatalf("NormalizeObject(%q)=%q, want %q", in, got, want)
		}
	}
}
