package auth

import (
	"fmt"
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	tm := NewTokenManager("test-secret", "rosterd")

	token, err := tm.GenerateToken("tenant-1", "user-1", "d@academy.com", "DIRECTOR", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.TenantID != "tenant-1" || claims.UserID != "user-1" || claims.Role != "DIRECTOR" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// token signed with a different secret must not validate
	other := NewTokenManager("other-secret", "rosterd")
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatalf("expected validation failure with wrong secret")
	}
}

func TestGenerateRequiresIdentity(t *testing.T) {
	tm := NewTokenManager("test-secret", "rosterd")
	if _, err := tm.GenerateToken("t", "", "e", "STUDENT", time.Hour); err == nil {
		t.Fatalf("expected error for missing user id")
	}
	if _, err := tm.GenerateToken("t", "u", "e", "", time.Hour); err == nil {
		t.Fatalf("expected error for missing role")
	}
	// admins carry no tenant
	if _, err := tm.GenerateToken("", "u", "e", "ADMIN", time.Hour); err != nil {
		t.Fatalf("admin token without tenant should be valid: %v", err)
	}
}

func TestParseLegacyToken(t *testing.T) {
	now := time.Now().UnixMilli()

	claims, err := ParseLegacyToken(fmt.Sprintf("u-1|d@academy.com|DIRECTOR|t-1|%d", now))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.UserID != "u-1" || claims.TenantID != "t-1" || claims.Role != "DIRECTOR" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// oldest variant has no academy segment
	claims, err = ParseLegacyToken(fmt.Sprintf("u-2|a@b.com|ADMIN|%d", now))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.TenantID != "" {
		t.Fatalf("expected empty tenant, got %q", claims.TenantID)
	}

	stale := time.Now().Add(-25 * time.Hour).UnixMilli()
	if _, err := ParseLegacyToken(fmt.Sprintf("u-1|e|STUDENT|t-1|%d", stale)); err == nil {
		t.Fatalf("expected expired token error")
	}
	if _, err := ParseLegacyToken("garbage"); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestParseAnyToken(t *testing.T) {
	tm := NewTokenManager("test-secret", "rosterd")

	jwtToken, err := tm.GenerateToken("t-1", "u-1", "e@x.com", "TEACHER", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := tm.ParseAnyToken(jwtToken); err != nil {
		t.Fatalf("jwt should parse: %v", err)
	}

	legacy := fmt.Sprintf("u-9|s@x.com|STUDENT|t-3|%d", time.Now().UnixMilli())
	claims, err := tm.ParseAnyToken(legacy)
	if err != nil {
		t.Fatalf("legacy should parse: %v", err)
	}
	if claims.UserID != "u-9" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
