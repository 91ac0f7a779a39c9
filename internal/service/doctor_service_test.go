package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carebook/carebook/internal/config"
	"github.com/carebook/carebook/internal/domain"
	"github.com/carebook/carebook/internal/domain/doctor"
	"github.com/carebook/carebook/pkg/auth"
	"go.uber.org/zap"
)

func testJWTManager() *auth.JWTManager {
	return auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-0123456789abcdef0123456789",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "carebook-test",
	})
}

func registerDoctorCmd() *doctor.RegisterDoctorCommand {
	return &doctor.RegisterDoctorCommand{
		Name:               "Dr. Asha Rao",
		Email:              "Asha@Clinic.Example",
		Password:           "s3curePass",
		Specialization:     "Cardiology",
		ExperienceYears:    12,
		Fees:               120,
		AvailableDays:      []doctor.Weekday{"Monday", "Wednesday"},
		AvailableTimeSlots: []string{"09:00-09:30"},
	}
}

func TestDoctorRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := newMemDoctorRepo()
		svc := NewDoctorService(repo, NoopGeocoder{}, testJWTManager(), newTestAuditService(), zap.NewNop())

		d, err := svc.Register(ctx, registerDoctorCmd(), "")
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if d.Email != "asha@clinic.example" {
			t.Errorf("email not normalized: %q", d.Email)
		}
		if d.PasswordHash == "" || d.PasswordHash == "s3curePass" {
			t.Error("password must be stored hashed")
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo := newMemDoctorRepo()
		svc := NewDoctorService(repo, NoopGeocoder{}, testJWTManager(), newTestAuditService(), zap.NewNop())

		if _, err := svc.Register(ctx, registerDoctorCmd(), ""); err != nil {
			t.Fatalf("first register: %v", err)
		}
		if _, err := svc.Register(ctx, registerDoctorCmd(), ""); !errors.Is(err, doctor.ErrDoctorAlreadyExists) {
			t.Fatalf("expected ErrDoctorAlreadyExists, got %v", err)
		}
	})

	t.Run("InvalidWeekday", func(t *testing.T) {
		svc := NewDoctorService(newMemDoctorRepo(), NoopGeocoder{}, testJWTManager(), newTestAuditService(), zap.NewNop())

		cmd := registerDoctorCmd()
		cmd.AvailableDays = []doctor.Weekday{"Funday"}
		var validErr *ValidationError
		if _, err := svc.Register(ctx, cmd, ""); !errors.As(err, &validErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("MissingSlots", func(t *testing.T) {
		svc := NewDoctorService(newMemDoctorRepo(), NoopGeocoder{}, testJWTManager(), newTestAuditService(), zap.NewNop())

		cmd := registerDoctorCmd()
		cmd.AvailableTimeSlots = nil
		var validErr *ValidationError
		if _, err := svc.Register(ctx, cmd, ""); !errors.As(err, &validErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestDoctorAuthenticate(t *testing.T) {
	ctx := context.Background()
	repo := newMemDoctorRepo()
	svc := NewDoctorService(repo, NoopGeocoder{}, testJWTManager(), newTestAuditService(), zap.NewNop())

	if _, err := svc.Register(ctx, registerDoctorCmd(), ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	t.Run("Success", func(t *testing.T) {
		pair, d, err := svc.Authenticate(ctx, "asha@clinic.example", "s3curePass", "")
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if pair.AccessToken == "" {
			t.Error("expected access token")
		}

		claims, err := testJWTManager().ValidateAccessToken(pair.AccessToken)
		if err != nil {
			t.Fatalf("validating issued token: %v", err)
		}
		if claims.Role != domain.RoleDoctor {
			t.Errorf("role = %s", claims.Role)
		}
		if claims.DoctorID == nil || *claims.DoctorID != d.ID {
			t.Error("claims must carry the doctor directory id")
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		if _, _, err := svc.Authenticate(ctx, "asha@clinic.example", "nope", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		if _, _, err := svc.Authenticate(ctx, "ghost@clinic.example", "s3curePass", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}
