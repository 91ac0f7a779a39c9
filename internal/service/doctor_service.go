package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/carebook/carebook/internal/domain"
	"github.com/carebook/carebook/internal/domain/doctor"
	"github.com/carebook/carebook/pkg/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Geocoder resolves a postal address to coordinates. It is invoked
// explicitly on the directory's write path, never as an implicit trigger on
// an entity.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

// NoopGeocoder satisfies Geocoder without resolving anything; the default
// when no geocoding backend is configured.
type NoopGeocoder struct{}

func (NoopGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	return 0, 0, fmt.Errorf("geocoding not configured")
}

type DoctorService struct {
	repo       doctor.Repository
	geocoder   Geocoder
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	log        *zap.Logger
}

func NewDoctorService(repo doctor.Repository, geocoder Geocoder, jwtManager *auth.JWTManager, auditSvc *AuditService, log *zap.Logger) *DoctorService {
	return &DoctorService{
		repo:       repo,
		geocoder:   geocoder,
		jwtManager: jwtManager,
		auditSvc:   auditSvc,
		log:        log,
	}
}

func (s *DoctorService) Register(ctx context.Context, cmd *doctor.RegisterDoctorCommand, ip string) (*doctor.Doctor, error) {
	if err := validateRegisterDoctor(cmd); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking email uniqueness: %w", err)
	}
	if exists {
		return nil, doctor.ErrDoctorAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	d := &doctor.Doctor{
		Name:               strings.TrimSpace(cmd.Name),
		Email:              email,
		PasswordHash:       string(hash),
		Phone:              strings.TrimSpace(cmd.Phone),
		Specialization:     strings.TrimSpace(cmd.Specialization),
		ExperienceYears:    cmd.ExperienceYears,
		Fees:               cmd.Fees,
		AvailableDays:      cmd.AvailableDays,
		AvailableTimeSlots: cmd.AvailableTimeSlots,
		Address:            cmd.Address,
	}

	// Geocoding failure never blocks registration; the record is saved
	// without coordinates.
	if d.Address != "" {
		if lat, lng, err := s.geocoder.Geocode(ctx, d.Address); err == nil {
			d.Latitude = &lat
			d.Longitude = &lng
		} else {
			s.log.Warn("geocoding failed, saving doctor without coordinates",
				zap.String("email", email), zap.Error(err))
		}
	}

	if err := s.repo.Create(ctx, d); err != nil {
		s.log.Error("failed to create doctor", zap.Error(err))
		return nil, fmt.Errorf("creating doctor: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       d.ID,
		UserRole:     string(domain.RoleDoctor),
		Action:       "create",
		ResourceType: "doctor",
		ResourceID:   d.ID.String(),
		IPAddress:    ip,
	})

	return d, nil
}

// Authenticate verifies doctor credentials and issues a token pair whose
// claims carry the doctor role and directory id.
func (s *DoctorService) Authenticate(ctx context.Context, email, password, ip string) (*domain.TokenPair, *doctor.Doctor, error) {
	d, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Dummy hash comparison to keep response time independent of
		// whether the email exists.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(d.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("failed doctor login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
		)
		return nil, nil, ErrInvalidCredentials
	}

	claims := &domain.Claims{
		UserID:   d.ID,
		Email:    d.Email,
		Role:     domain.RoleDoctor,
		DoctorID: &d.ID,
	}

	pair, err := s.jwtManager.GenerateTokenPair(claims)
	if err != nil {
		return nil, nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       d.ID,
		UserRole:     string(domain.RoleDoctor),
		Action:       "login",
		ResourceType: "doctor",
		ResourceID:   d.ID.String(),
		IPAddress:    ip,
	})

	return pair, d, nil
}

func (s *DoctorService) Get(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DoctorService) List(ctx context.Context, q *doctor.ListDoctorsQuery) (*doctor.PagedDoctors, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	return s.repo.List(ctx, q)
}

func validateRegisterDoctor(cmd *doctor.RegisterDoctorCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(cmd.Email) == "" {
		errs = append(errs, "email is required")
	}
	if len(cmd.Password) < 6 {
		errs = append(errs, "password must be at least 6 characters")
	}
	if strings.TrimSpace(cmd.Specialization) == "" {
		errs = append(errs, "specialization is required")
	}
	if cmd.ExperienceYears < 0 {
		errs = append(errs, "experience_years cannot be negative")
	}
	if cmd.Fees < 0 {
		errs = append(errs, "fees cannot be negative")
	}
	if len(cmd.AvailableDays) == 0 {
		errs = append(errs, "available_days is required")
	}
	for _, day := range cmd.AvailableDays {
		if !day.IsValid() {
			errs = append(errs, fmt.Sprintf("available_days: %q is not a weekday", day))
		}
	}
	if len(cmd.AvailableTimeSlots) == 0 {
		errs = append(errs, "available_time_slots is required")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
