package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new appointment. Returns ErrSlotTaken when the
	// store-level uniqueness constraint on (doctor, day, slot) rejects the
	// row — the conflict pre-check alone does not close the race between
	// two concurrent bookings.
	Create(ctx context.Context, a *Appointment) error

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Save writes back a fully loaded appointment after a field-scoped
	// update. Same ErrSlotTaken contract as Create when the slot moved.
	Save(ctx context.Context, a *Appointment) error

	// Delete removes the row permanently. Hard delete, no tombstone.
	Delete(ctx context.Context, id uuid.UUID) error

	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error)
	List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error)

	// SlotTaken reports whether a non-cancelled appointment already occupies
	// the given slot within [dayStart, dayEnd).
	SlotTaken(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time, timeSlot string) (bool, error)
}
