package postgres

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/carebook/carebook/internal/domain/appointment"
	"github.com/carebook/carebook/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

var _ appointment.Repository = (*AppointmentRepository)(nil)

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err, database.SlotUniqueIndex) {
			return appointment.ErrSlotTaken
		}
		return unavailable("inserting appointment", err)
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, unavailable("loading appointment", err)
	}
	return &a, nil
}

func (r *AppointmentRepository) Save(ctx context.Context, a *appointment.Appointment) error {
	if err := r.db.WithContext(ctx).Save(a).Error; err != nil {
		if isUniqueViolation(err, database.SlotUniqueIndex) {
			return appointment.ErrSlotTaken
		}
		return unavailable("saving appointment", err)
	}
	return nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&appointment.Appointment{}, "id = ?", id)
	if res.Error != nil {
		return unavailable("deleting appointment", res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	var appts []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("date DESC, created_at DESC").
		Find(&appts).Error
	if err != nil {
		return nil, unavailable("listing appointments by patient", err)
	}
	return appts, nil
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*appointment.Appointment, error) {
	var appts []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("date DESC, created_at DESC").
		Find(&appts).Error
	if err != nil {
		return nil, unavailable("listing appointments by doctor", err)
	}
	return appts, nil
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&appointment.Appointment{}).Count(&total).Error; err != nil {
		return nil, unavailable("counting appointments", err)
	}

	var appts []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Order("date DESC, created_at DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&appts).Error
	if err != nil {
		return nil, unavailable("listing appointments", err)
	}

	return &appointment.PagedAppointments{
		Appointments: appts,
		Total:        total,
		Page:         q.Page,
		Limit:        q.Limit,
		TotalPages:   totalPages(total, q.Limit),
	}, nil
}

func (r *AppointmentRepository) SlotTaken(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time, timeSlot string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("doctor_id = ? AND date >= ? AND date < ? AND time_slot = ? AND status <> ?",
			doctorID, dayStart, dayEnd, timeSlot, appointment.StatusCancelled).
		Count(&count).Error
	if err != nil {
		return false, unavailable("checking slot", err)
	}
	return count > 0, nil
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
