package appointment

import (
	"time"

	"github.com/google/uuid"
)

// State transitions possibilities:
//
//	pending → confirmed → completed
//	pending → cancelled
//	confirmed → cancelled
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// PrescriptionItem is a single entry on an appointment's prescription list.
// Only the assigned doctor may append these.
type PrescriptionItem struct {
	Medicine string `json:"medicine"`
	Dosage   string `json:"dosage"`
	Duration string `json:"duration"`
}

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patientId"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index" json:"doctorId"`

	// Date is day-granular; the time of day is carried by TimeSlot.
	// Normalized to midnight UTC before persistence.
	Date     time.Time         `gorm:"column:date;type:date;not null;index" json:"date"`
	TimeSlot string            `gorm:"column:time_slot;type:varchar(30);not null" json:"timeSlot"`
	Status   AppointmentStatus `gorm:"column:status;type:varchar(30);not null;default:'pending';index" json:"status"`

	Reason   string `gorm:"column:reason;type:text;not null" json:"reason"`
	Symptoms string `gorm:"column:symptoms;type:text;not null" json:"symptoms"`
	Notes    string `gorm:"column:notes;type:text" json:"notes,omitempty"`

	// Optional directions link for the patient; validated as an absolute
	// http(s) URL when present.
	DirectionsLink string `gorm:"column:directions_link;type:text" json:"directionsLink,omitempty"`

	Prescriptions []PrescriptionItem `gorm:"column:prescriptions;serializer:json" json:"prescriptions,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"-"`
}

func (Appointment) TableName() string {
	return "booking.appointments"
}

func (a *Appointment) CanTransitionTo(newStatus AppointmentStatus) bool {
	allowed := map[AppointmentStatus][]AppointmentStatus{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled},
		StatusCancelled: {},
		StatusCompleted: {},
	}

	for _, s := range allowed[a.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// Day returns the closed-open interval [startOfDay, startOfNextDay) covering
// t's calendar day in UTC. The conflict check queries this full interval, so
// there is no gap at the day boundary.
func Day(t time.Time) (start, end time.Time) {
	u := t.UTC()
	start = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

type CreateAppointmentCommand struct {
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	Date           time.Time
	TimeSlot       string
	Reason         string
	Symptoms       string
	Notes          string
	DirectionsLink string
	CreatedBy      uuid.UUID
}

// UpdateAppointmentCommand carries a partial update. A nil field keeps the
// existing value; there is no way to clear a field to empty through this
// mechanism (known limitation, preserved deliberately).
type UpdateAppointmentCommand struct {
	Date     *time.Time
	TimeSlot *string
	Reason   *string
	Symptoms *string
	Notes    *string
	Status   *AppointmentStatus

	// AppendPrescriptions is an ordered batch appended to the existing list.
	AppendPrescriptions []PrescriptionItem
}

type ListAppointmentsQuery struct {
	Page  int
	Limit int
}

type PagedAppointments struct {
	Appointments []*Appointment
	Total        int64
	Page         int
	Limit        int
	TotalPages   int
}
