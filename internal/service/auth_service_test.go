package service

import (
	"context"
	"errors"
	"testing"

	"github.com/carebook/carebook/internal/domain"
	"go.uber.org/zap"
)

func registerUserCmd() *RegisterUserCommand {
	return &RegisterUserCommand{
		Name:     "Pat Doe",
		Email:    "Pat@Example.Com",
		Password: "hunter22",
	}
}

func TestUserRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc := NewAuthService(newMemUserRepo(), testJWTManager(), NoopGeocoder{}, zap.NewNop())

		u, err := svc.Register(ctx, registerUserCmd())
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if u.Role != domain.RolePatient {
			t.Errorf("role = %s, want patient", u.Role)
		}
		if u.Email != "pat@example.com" {
			t.Errorf("email not normalized: %q", u.Email)
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		svc := NewAuthService(newMemUserRepo(), testJWTManager(), NoopGeocoder{}, zap.NewNop())

		if _, err := svc.Register(ctx, registerUserCmd()); err != nil {
			t.Fatalf("first register: %v", err)
		}
		if _, err := svc.Register(ctx, registerUserCmd()); !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("ShortPassword", func(t *testing.T) {
		svc := NewAuthService(newMemUserRepo(), testJWTManager(), NoopGeocoder{}, zap.NewNop())

		cmd := registerUserCmd()
		cmd.Password = "abc"
		var validErr *ValidationError
		if _, err := svc.Register(ctx, cmd); !errors.As(err, &validErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestUserLogin(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*AuthService, *memUserRepo) {
		t.Helper()
		repo := newMemUserRepo()
		svc := NewAuthService(repo, testJWTManager(), NoopGeocoder{}, zap.NewNop())
		if _, err := svc.Register(ctx, registerUserCmd()); err != nil {
			t.Fatalf("Register: %v", err)
		}
		return svc, repo
	}

	t.Run("Success", func(t *testing.T) {
		svc, _ := setup(t)

		pair, err := svc.Login(ctx, "pat@example.com", "hunter22", "10.0.0.1")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if pair.TokenType != "Bearer" {
			t.Errorf("token type = %q", pair.TokenType)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		svc, _ := setup(t)

		if _, err := svc.Login(ctx, "pat@example.com", "wrong", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("LocksAfterRepeatedFailures", func(t *testing.T) {
		svc, _ := setup(t)

		for i := 0; i < 5; i++ {
			_, _ = svc.Login(ctx, "pat@example.com", "wrong", "")
		}
		if _, err := svc.Login(ctx, "pat@example.com", "hunter22", ""); !errors.Is(err, ErrAccountLocked) {
			t.Fatalf("expected ErrAccountLocked, got %v", err)
		}
	})

	t.Run("RefreshRoundTrip", func(t *testing.T) {
		svc, _ := setup(t)

		pair, err := svc.Login(ctx, "pat@example.com", "hunter22", "")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}

		fresh, err := svc.RefreshToken(ctx, pair.RefreshToken)
		if err != nil {
			t.Fatalf("RefreshToken: %v", err)
		}
		if fresh.AccessToken == "" {
			t.Error("expected new access token")
		}
	})

	t.Run("RefreshRejectsAccessToken", func(t *testing.T) {
		svc, _ := setup(t)

		pair, err := svc.Login(ctx, "pat@example.com", "hunter22", "")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if _, err := svc.RefreshToken(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	repo := newMemUserRepo()
	svc := NewAuthService(repo, testJWTManager(), NoopGeocoder{}, zap.NewNop())

	u, err := svc.Register(ctx, registerUserCmd())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "wrong", "newpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "hunter22", "newpassword"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := svc.Login(ctx, "pat@example.com", "newpassword", ""); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
