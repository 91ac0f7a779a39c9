package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/carebook/carebook/internal/domain"
	"github.com/carebook/carebook/internal/domain/appointment"
	"github.com/carebook/carebook/internal/domain/doctor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memAppointmentRepo is an in-memory appointment store. It enforces the same
// uniqueness rule as the database index: per doctor, day, and slot, at most
// one non-cancelled appointment.
type memAppointmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*appointment.Appointment
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{items: make(map[uuid.UUID]*appointment.Appointment)}
}

func (r *memAppointmentRepo) conflicts(a *appointment.Appointment) bool {
	for _, other := range r.items {
		if other.ID == a.ID {
			continue
		}
		if other.DoctorID == a.DoctorID &&
			other.Date.Equal(a.Date) &&
			other.TimeSlot == a.TimeSlot &&
			other.Status != appointment.StatusCancelled &&
			a.Status != appointment.StatusCancelled {
			return true
		}
	}
	return false
}

func (r *memAppointmentRepo) Create(ctx context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	if r.conflicts(a) {
		return appointment.ErrSlotTaken
	}
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *memAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAppointmentRepo) Save(ctx context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[a.ID]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	if r.conflicts(a) {
		return appointment.ErrSlotTaken
	}
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *memAppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memAppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*appointment.Appointment
	for _, a := range r.items {
		if a.PatientID == patientID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (r *memAppointmentRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*appointment.Appointment
	for _, a := range r.items {
		if a.DoctorID == doctorID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (r *memAppointmentRepo) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*appointment.Appointment, 0, len(r.items))
	for _, a := range r.items {
		cp := *a
		all = append(all, &cp)
	}
	sortAppointments(all)

	total := int64(len(all))
	start := (q.Page - 1) * q.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + q.Limit
	if end > len(all) {
		end = len(all)
	}

	return &appointment.PagedAppointments{
		Appointments: all[start:end],
		Total:        total,
		Page:         q.Page,
		Limit:        q.Limit,
		TotalPages:   int(math.Ceil(float64(total) / float64(q.Limit))),
	}, nil
}

func (r *memAppointmentRepo) SlotTaken(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time, timeSlot string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.items {
		if a.DoctorID == doctorID &&
			!a.Date.Before(dayStart) && a.Date.Before(dayEnd) &&
			a.TimeSlot == timeSlot &&
			a.Status != appointment.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func sortAppointments(appts []*appointment.Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if !appts[i].Date.Equal(appts[j].Date) {
			return appts[i].Date.After(appts[j].Date)
		}
		return appts[i].CreatedAt.After(appts[j].CreatedAt)
	})
}

type memDoctorRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*doctor.Doctor
}

func newMemDoctorRepo() *memDoctorRepo {
	return &memDoctorRepo{items: make(map[uuid.UUID]*doctor.Doctor)}
}

func (r *memDoctorRepo) Create(ctx context.Context, d *doctor.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, other := range r.items {
		if other.Email == d.Email {
			return doctor.ErrDoctorAlreadyExists
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	cp := *d
	r.items[d.ID] = &cp
	return nil
}

func (r *memDoctorRepo) GetByID(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.items[id]
	if !ok {
		return nil, doctor.ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memDoctorRepo) GetByEmail(ctx context.Context, email string) (*doctor.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.items {
		if d.Email == email {
			cp := *d
			return &cp, nil
		}
	}
	return nil, doctor.ErrDoctorNotFound
}

func (r *memDoctorRepo) List(ctx context.Context, q *doctor.ListDoctorsQuery) (*doctor.PagedDoctors, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*doctor.Doctor
	for _, d := range r.items {
		if q.Specialization != "" && d.Specialization != q.Specialization {
			continue
		}
		cp := *d
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	total := int64(len(all))
	start := (q.Page - 1) * q.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + q.Limit
	if end > len(all) {
		end = len(all)
	}

	return &doctor.PagedDoctors{
		Doctors:    all[start:end],
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(q.Limit))),
	}, nil
}

func (r *memDoctorRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

type memUserRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{items: make(map[uuid.UUID]*domain.User)}
}

func (r *memUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, other := range r.items {
		if other.Email == u.Email {
			return ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	r.items[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.items {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrInvalidCredentials
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return ErrInvalidCredentials
	}
	if success {
		u.FailedLoginCount = 0
		u.LockedUntil = nil
		now := time.Now()
		u.LastLoginAt = &now
		return nil
	}
	u.FailedLoginCount++
	if u.FailedLoginCount >= 5 {
		until := time.Now().Add(15 * time.Minute)
		u.LockedUntil = &until
	}
	return nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return ErrInvalidCredentials
	}
	u.PasswordHash = hash
	return nil
}

// downAppointmentRepo simulates a store outage: every call fails with a
// wrapped ErrStoreUnavailable, the way the postgres layer reports
// untranslated failures.
type downAppointmentRepo struct{}

func storeDown(op string) error {
	return fmt.Errorf("%s: %w: connection refused", op, domain.ErrStoreUnavailable)
}

func (downAppointmentRepo) Create(ctx context.Context, a *appointment.Appointment) error {
	return storeDown("inserting appointment")
}

func (downAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return nil, storeDown("loading appointment")
}

func (downAppointmentRepo) Save(ctx context.Context, a *appointment.Appointment) error {
	return storeDown("saving appointment")
}

func (downAppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return storeDown("deleting appointment")
}

func (downAppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	return nil, storeDown("listing appointments by patient")
}

func (downAppointmentRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*appointment.Appointment, error) {
	return nil, storeDown("listing appointments by doctor")
}

func (downAppointmentRepo) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	return nil, storeDown("listing appointments")
}

func (downAppointmentRepo) SlotTaken(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time, timeSlot string) (bool, error) {
	return false, storeDown("checking slot")
}

// memAuditRepo records entries synchronously for assertions.
type memAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (r *memAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func newTestAuditService() *AuditService {
	return NewAuditService(&memAuditRepo{}, zap.NewNop())
}
