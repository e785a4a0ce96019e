package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/umoja-bank/umoja/internal/config"
	"github.com/umoja-bank/umoja/internal/identity"
)

func newAuthFixture(t *testing.T) (*Service, identity.Repository, identity.User) {
	t.Helper()
	cfg := config.Config{
		JWTSecret:      "access-secret",
		RefreshSecret:  "refresh-secret",
		AccessTokenTTL: 15 * time.Minute,
		RefreshTTL:     7 * 24 * time.Hour,
	}
	repo := identity.NewMemoryRepository()
	user := identity.User{
		ID:       uuid.NewString(),
		Username: "ada",
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewService(cfg, repo), repo, user
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	svc, _, user := newAuthFixture(t)

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("both tokens must be issued")
	}
	if pair.ExpiresIn <= 0 {
		t.Fatalf("expires_in = %d", pair.ExpiresIn)
	}

	claims, err := ParseAndVerifyHS256(pair.AccessToken, []byte("access-secret"))
	if err != nil {
		t.Fatalf("verify access token: %v", err)
	}
	if sub, _ := claims["sub"].(string); sub != user.ID {
		t.Fatalf("sub = %s, want %s", sub, user.ID)
	}

	// Access token must not verify against the refresh secret.
	if _, err := ParseAndVerifyHS256(pair.AccessToken, []byte("refresh-secret")); err == nil {
		t.Fatal("access token verified with wrong secret")
	}
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	svc, _, user := newAuthFixture(t)

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, expiresIn, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if expiresIn <= 0 {
		t.Fatalf("expires_in = %d", expiresIn)
	}
	if _, err := ParseAndVerifyHS256(access, []byte("access-secret")); err != nil {
		t.Fatalf("verify refreshed access token: %v", err)
	}
}

func TestLogoutInvalidatesRefreshTokens(t *testing.T) {
	svc, _, user := newAuthFixture(t)

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); err == nil {
		t.Fatal("refresh must fail after logout")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	token, err := SignHS256(map[string]any{"sub": "abc"}, []byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	last := token[len(token)-1]
	flipped := byte('A')
	if last == 'A' {
		flipped = 'B'
	}
	tampered := token[:len(token)-1] + string(flipped)
	if _, err := ParseAndVerifyHS256(tampered, []byte("secret")); err == nil {
		t.Fatal("tampered token must not verify")
	}
	if _, err := ParseAndVerifyHS256("not.a.token", []byte("secret")); err == nil {
		t.Fatal("garbage token must not verify")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := SignHS256(map[string]any{
		"sub": "abc",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}, []byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, []byte("secret")); err == nil {
		t.Fatal("expired token must not verify")
	}
}
