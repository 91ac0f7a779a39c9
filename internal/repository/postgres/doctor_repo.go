package postgres

import (
	"context"
	"errors"

	"github.com/carebook/carebook/internal/domain/doctor"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorRepository struct {
	db *gorm.DB
}

func NewDoctorRepository(db *gorm.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

var _ doctor.Repository = (*DoctorRepository)(nil)

func (r *DoctorRepository) Create(ctx context.Context, d *doctor.Doctor) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		if isUniqueViolation(err, "") {
			return doctor.ErrDoctorAlreadyExists
		}
		return unavailable("inserting doctor", err)
	}
	return nil
}

func (r *DoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	var d doctor.Doctor
	err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, doctor.ErrDoctorNotFound
		}
		return nil, unavailable("loading doctor", err)
	}
	return &d, nil
}

func (r *DoctorRepository) GetByEmail(ctx context.Context, email string) (*doctor.Doctor, error) {
	var d doctor.Doctor
	err := r.db.WithContext(ctx).First(&d, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, doctor.ErrDoctorNotFound
		}
		return nil, unavailable("loading doctor by email", err)
	}
	return &d, nil
}

func (r *DoctorRepository) List(ctx context.Context, q *doctor.ListDoctorsQuery) (*doctor.PagedDoctors, error) {
	tx := r.db.WithContext(ctx).Model(&doctor.Doctor{})
	if q.Specialization != "" {
		tx = tx.Where("specialization = ?", q.Specialization)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, unavailable("counting doctors", err)
	}

	var doctors []*doctor.Doctor
	err := tx.
		Order("name ASC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&doctors).Error
	if err != nil {
		return nil, unavailable("listing doctors", err)
	}

	return &doctor.PagedDoctors{
		Doctors:    doctors,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: totalPages(total, q.Limit),
	}, nil
}

func (r *DoctorRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&doctor.Doctor{}).
		Where("email = ?", email).
		Count(&count).Error
	if err != nil {
		return false, unavailable("checking doctor email", err)
	}
	return count > 0, nil
}
