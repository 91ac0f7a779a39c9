package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/carebook/carebook/internal/config"
	"github.com/carebook/carebook/internal/domain"
	"github.com/google/uuid"
)

func newManager(accessTTL time.Duration) *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-0123456789abcdef0123456789",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "carebook-test",
	})
}

func testClaims() *domain.Claims {
	return &domain.Claims{
		UserID: uuid.New(),
		Email:  "pat@example.com",
		Role:   domain.RolePatient,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := newManager(15 * time.Minute)
	in := testClaims()

	pair, err := m.GenerateTokenPair(in)
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	out, err := m.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if out.UserID != in.UserID || out.Email != in.Email || out.Role != in.Role {
		t.Errorf("claims mismatch: %+v vs %+v", out, in)
	}
}

func TestTokenTypeDiscrimination(t *testing.T) {
	m := newManager(15 * time.Minute)

	pair, err := m.GenerateTokenPair(testClaims())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	if _, err := m.ValidateAccessToken(pair.RefreshToken); !errors.Is(err, ErrTokenTypeMismatch) {
		t.Errorf("refresh token accepted as access token: %v", err)
	}
	if _, err := m.ValidateRefreshToken(pair.AccessToken); !errors.Is(err, ErrTokenTypeMismatch) {
		t.Errorf("access token accepted as refresh token: %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	m := newManager(-1 * time.Minute)

	pair, err := m.GenerateTokenPair(testClaims())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	if _, err := m.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestWrongSecret(t *testing.T) {
	m := newManager(15 * time.Minute)
	pair, err := m.GenerateTokenPair(testClaims())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	other := NewJWTManager(config.JWTConfig{
		Secret:          "a-completely-different-secret-value",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "carebook-test",
	})
	if _, err := other.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}
