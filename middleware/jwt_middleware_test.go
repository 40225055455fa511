package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

func TestGenerateAndParseJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	access, refresh, err := GenerateJWT("user123", "user@example.com", "member")
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("expected both access and refresh tokens")
	}
	if access == refresh {
		t.Error("access and refresh tokens should differ in expiry")
	}

	claims := &JwtCustomClaims{}
	_, err = jwt.ParseWithClaims(access, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("failed to parse generated token: %v", err)
	}
	if claims.UserID != "user123" {
		t.Errorf("expected userId user123, got %s", claims.UserID)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("expected email preserved, got %s", claims.Email)
	}
	if claims.UserType != "member" {
		t.Errorf("expected userType member, got %s", claims.UserType)
	}
	if claims.ExpiresAt <= time.Now().Unix() {
		t.Error("access token should expire in the future")
	}
}

func TestGenerateJWTRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, _, err := GenerateJWT("user123", "user@example.com", "member"); err == nil {
		t.Error("expected error when JWT_SECRET is unset")
	}
}

func TestTokenBlacklist(t *testing.T) {
	token := "blacklist-test-token"
	if IsTokenBlacklisted(token) {
		t.Fatal("token should not be blacklisted before BlacklistToken")
	}

	BlacklistToken(token, time.Now().Add(time.Hour))
	if !IsTokenBlacklisted(token) {
		t.Error("token should be blacklisted after BlacklistToken")
	}
}

func TestJwtCustomClaimsValid(t *testing.T) {
	now := time.Now()

	live := JwtCustomClaims{StandardClaims: jwt.StandardClaims{ExpiresAt: now.Add(time.Hour).Unix()}}
	if err := live.Valid(); err != nil {
		t.Errorf("unexpired claims should be valid: %v", err)
	}

	expired := JwtCustomClaims{StandardClaims: jwt.StandardClaims{ExpiresAt: now.Add(-time.Hour).Unix()}}
	if err := expired.Valid(); err == nil {
		t.Error("expired claims should be invalid")
	}

	notYet := JwtCustomClaims{StandardClaims: jwt.StandardClaims{
		ExpiresAt: now.Add(time.Hour).Unix(),
		NotBefore: now.Add(time.Minute).Unix(),
	}}
	if err := notYet.Valid(); err == nil {
		t.Error("claims used before NotBefore should be invalid")
	}
}
