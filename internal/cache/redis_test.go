package cache

import (
	"context"
	"testing"
	"time"

	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/models"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init disabled redis failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("cache should be disabled")
	}
	ctx := context.Background()
	var dest map[string]int
	hit, err := GetJSON(ctx, "ledger:summary", &dest)
	if err != nil || hit {
		t.Fatalf("disabled GetJSON want miss, got hit=%v err=%v", hit, err)
	}
	if err := SetJSON(ctx, "ledger:summary", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatalf("disabled SetJSON failed: %v", err)
	}
	if err := DelPrefix(ctx, "ledger:"); err != nil {
		t.Fatalf("disabled DelPrefix failed: %v", err)
	}
	locked, err := TryLock(ctx, "guard:x", "token", time.Second)
	if err != nil || locked {
		t.Fatalf("disabled TryLock want false, got %v err=%v", locked, err)
	}
}

func TestBuildKeyUsesPrefix(t *testing.T) {
	old := redisPrefix
	t.Cleanup(func() { redisPrefix = old })
	redisPrefix = "vtx"

	if got := buildKey(" ledger:summary "); got != "vtx:ledger:summary" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := buildKey(""); got != "vtx" {
		t.Fatalf("unexpected empty key: %s", got)
	}
}

func TestBuildAdminAuthState(t *testing.T) {
	invalidBefore := time.Unix(1700000000, 0)
	state := BuildAdminAuthState(&models.Admin{
		ID:                 3,
		Username:           "auditor",
		TokenVersion:       4,
		TokenInvalidBefore: &invalidBefore,
	})
	if state.AdminID != 3 || state.TokenVersion != 4 || state.TokenInvalidBefore != 1700000000 {
		t.Fatalf("unexpected auth state: %+v", state)
	}
	if BuildAdminAuthState(nil) != nil {
		t.Fatalf("nil admin should produce nil state")
	}
}

func TestAdminAuthStateAccepts(t *testing.T) {
	state := &AdminAuthState{AdminID: 1, TokenVersion: 2, TokenInvalidBefore: 1700000000}

	if !state.Accepts(2, time.Unix(1700000000, 0)) {
		t.Fatalf("token issued at invalid-before should be accepted")
	}
	if state.Accepts(2, time.Unix(1699999999, 0)) {
		t.Fatalf("token issued before invalid-before should be rejected")
	}
	if state.Accepts(1, time.Unix(1700000100, 0)) {
		t.Fatalf("stale token version should be rejected")
	}
	if state.Accepts(2, time.Time{}) {
		t.Fatalf("token without iat should be rejected once invalid-before is set")
	}
	fresh := &AdminAuthState{AdminID: 1}
	if !fresh.Accepts(0, time.Time{}) {
		t.Fatalf("state without invalid-before should accept matching version")
	}
	var missing *AdminAuthState
	if missing.Accepts(0, time.Now()) {
		t.Fatalf("nil state should reject")
	}
}

func TestAdminAuthStateKey(t *testing.T) {
	if got := adminAuthStateKey(42); got != "auth:admin:42" {
		t.Fatalf("unexpected key: %s", got)
	}
}
