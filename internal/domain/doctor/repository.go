package doctor

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new doctor. Returns ErrDoctorAlreadyExists on
	// duplicate email.
	Create(ctx context.Context, d *Doctor) error

	// GetByID retrieves a doctor by primary key. Returns ErrDoctorNotFound
	// if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetByEmail(ctx context.Context, email string) (*Doctor, error)

	// List returns a paginated list, optionally filtered by specialization.
	List(ctx context.Context, q *ListDoctorsQuery) (*PagedDoctors, error)

	// ExistsByEmail checks for uniqueness without fetching the full record.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
