package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/models"
	"github.com/vtx-referral/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthServiceTest(t *testing.T) (*AuthService, *models.Admin) {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	hash, err := HashPassword("Secret123")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	admin := &models.Admin{Username: "reviewer", PasswordHash: hash}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	cfg := &config.Config{
		JWT: config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1},
		Security: config.SecurityConfig{
			PasswordPolicy: config.PasswordPolicy{MinLength: 8, RequireUpper: true, RequireNumber: true},
		},
	}
	return NewAuthService(cfg, repository.NewAdminRepository(db)), admin
}

func TestLoginIssuesParsableToken(t *testing.T) {
	svc, admin := setupAuthServiceTest(t)

	if _, _, _, err := svc.Login(context.Background(), "reviewer", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, _, err := svc.Login(context.Background(), "ghost", "Secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown admin, got %v", err)
	}

	logged, token, expiresAt, err := svc.Login(context.Background(), "reviewer", "Secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.LastLoginAt == nil || !expiresAt.After(time.Now()) {
		t.Fatalf("unexpected login state: %+v expires=%v", logged, expiresAt)
	}
	claims, err := svc.ParseJWT(token)
	if err != nil {
		t.Fatalf("parse jwt failed: %v", err)
	}
	if claims.AdminID != admin.ID || claims.Username != "reviewer" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := svc.ParseJWT(token + "x"); err == nil {
		t.Fatalf("tampered token should fail")
	}
}

func TestChangePasswordEnforcesPolicy(t *testing.T) {
	svc, admin := setupAuthServiceTest(t)

	if err := svc.ChangePassword(context.Background(), admin.ID, "nope", "Better123"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected invalid old password, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), admin.ID, "Secret123", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), admin.ID, "Secret123", "alllowercase1"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password for missing upper, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), admin.ID, "Secret123", "Better123"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, _, _, err := svc.Login(context.Background(), "reviewer", "Better123"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}

	state, err := svc.ResolveAdminAuthState(context.Background(), admin.ID)
	if err != nil {
		t.Fatalf("resolve auth state failed: %v", err)
	}
	if state.TokenVersion != admin.TokenVersion+1 || state.TokenInvalidBefore == 0 {
		t.Fatalf("password change should rotate token version: %+v", state)
	}
	if state.Accepts(admin.TokenVersion, time.Now()) {
		t.Fatalf("token with previous version should be revoked")
	}
}

func TestValidatePasswordKeys(t *testing.T) {
	policy := config.PasswordPolicy{MinLength: 8, RequireUpper: true, RequireLower: true, RequireNumber: true}
	cases := []struct {
		password string
		key      string
	}{
		{"Ab1", "error.password_min_length"},
		{"abcdefg1", "error.password_require_upper"},
		{"ABCDEFG1", "error.password_require_lower"},
		{"Abcdefgh", "error.password_require_number"},
		{"A1" + strings.Repeat("b", 80), "error.password_max_length"},
		{"Abcdefg1", ""},
	}
	for _, tc := range cases {
		err := validatePassword(policy, tc.password)
		if tc.key == "" {
			if err != nil {
				t.Fatalf("password %q should pass, got %v", tc.password, err)
			}
			continue
		}
		var keyed passwordPolicyError
		if !errors.As(err, &keyed) || keyed.Key() != tc.key {
			t.Fatalf("password %q want key %s got %v", tc.password, tc.key, err)
		}
		if !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("policy errors should match ErrWeakPassword")
		}
	}
}
