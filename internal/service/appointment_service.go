package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/carebook/carebook/internal/domain"
	"github.com/carebook/carebook/internal/domain/appointment"
	"github.com/carebook/carebook/internal/domain/doctor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserDirectory is the slice of the user store the booking core needs:
// identity resolution for ownership checks and display enrichment.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type AppointmentService struct {
	repo       appointment.Repository
	doctorRepo doctor.Repository
	users      UserDirectory
	auditSvc   *AuditService
	log        *zap.Logger

	// requireDirectionsLink makes the optional directions link mandatory.
	// Deployment-dependent, never load-bearing for the booking core.
	requireDirectionsLink bool
}

func NewAppointmentService(
	repo appointment.Repository,
	doctorRepo doctor.Repository,
	users UserDirectory,
	auditSvc *AuditService,
	log *zap.Logger,
	requireDirectionsLink bool,
) *AppointmentService {
	return &AppointmentService{
		repo:                  repo,
		doctorRepo:            doctorRepo,
		users:                 users,
		auditSvc:              auditSvc,
		log:                   log,
		requireDirectionsLink: requireDirectionsLink,
	}
}

// Book turns a validated request into a persisted pending appointment, or a
// rejection. The slot check here is a pre-filter; the store's uniqueness
// constraint is what actually closes the race between concurrent bookings.
func (s *AppointmentService) Book(ctx context.Context, cmd *appointment.CreateAppointmentCommand, actor domain.Actor, ip string) (*appointment.Appointment, error) {
	if err := s.validateBooking(cmd); err != nil {
		return nil, err
	}

	// Patients book for themselves; admins may book on a patient's behalf.
	// Doctors do not create bookings at all.
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RolePatient:
		if cmd.PatientID != actor.UserID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}

	doc, err := s.doctorRepo.GetByID(ctx, cmd.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doc.PublishesSlot(cmd.TimeSlot) {
		// Slot tokens are free-form by contract; an unpublished one is worth
		// noticing but not rejecting.
		s.log.Warn("booking a slot the doctor does not publish",
			zap.String("doctor_id", doc.ID.String()),
			zap.String("time_slot", cmd.TimeSlot),
		)
	}

	dayStart, dayEnd := appointment.Day(cmd.Date)
	taken, err := s.repo.SlotTaken(ctx, cmd.DoctorID, dayStart, dayEnd, cmd.TimeSlot)
	if err != nil {
		return nil, fmt.Errorf("checking slot availability: %w", err)
	}
	if taken {
		return nil, appointment.ErrSlotTaken
	}

	a := &appointment.Appointment{
		PatientID:      cmd.PatientID,
		DoctorID:       cmd.DoctorID,
		Date:           dayStart,
		TimeSlot:       cmd.TimeSlot,
		Status:         appointment.StatusPending,
		Reason:         cmd.Reason,
		Symptoms:       cmd.Symptoms,
		Notes:          cmd.Notes,
		DirectionsLink: cmd.DirectionsLink,
		CreatedBy:      actor.UserID,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		// A concurrent writer may win the slot between the pre-check and the
		// insert; the constraint violation surfaces as the same conflict.
		if errors.Is(err, appointment.ErrSlotTaken) {
			return nil, err
		}
		s.log.Error("failed to create appointment", zap.Error(err))
		return nil, fmt.Errorf("creating appointment: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       actor.UserID,
		UserRole:     string(actor.Role),
		Action:       "create",
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		IPAddress:    ip,
	})

	return a, nil
}

func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID, actor domain.Actor, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !appointment.CanRead(relationOf(actor, a)) {
		return nil, ErrForbidden
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: actor.UserID, UserRole: string(actor.Role),
		Action: "read", ResourceType: "appointment", ResourceID: id.String(), IPAddress: ip,
	})

	return a, nil
}

// Update applies a field-scoped partial update. Every requested field is
// checked against the mutation policy for the caller's relation to the
// appointment before anything is written.
func (s *AppointmentService) Update(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateAppointmentCommand, actor domain.Actor, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rel := relationOf(actor, a)
	if rel == appointment.RelationNone {
		return nil, ErrForbidden
	}

	requested := requestedFields(cmd)
	for _, f := range requested {
		switch appointment.PermissionFor(rel, f) {
		case appointment.Allowed:
		case appointment.CancelOnly:
			if *cmd.Status != appointment.StatusCancelled {
				return nil, ErrForbidden
			}
		default:
			return nil, ErrForbidden
		}
	}

	if cmd.Status != nil {
		if !cmd.Status.IsValid() {
			return nil, appointment.ErrInvalidStatus
		}
		if !a.CanTransitionTo(*cmd.Status) {
			return nil, appointment.ErrInvalidStatusTransition
		}
		a.Status = *cmd.Status
	}
	if cmd.Reason != nil {
		a.Reason = *cmd.Reason
	}
	if cmd.Symptoms != nil {
		a.Symptoms = *cmd.Symptoms
	}
	if cmd.Notes != nil {
		a.Notes = *cmd.Notes
	}

	// A date or slot move lands on a new triple, so it gets the same
	// conflict treatment as a fresh booking.
	newDay := a.Date
	if cmd.Date != nil {
		newDay, _ = appointment.Day(*cmd.Date)
	}
	newSlot := a.TimeSlot
	if cmd.TimeSlot != nil {
		newSlot = *cmd.TimeSlot
	}
	if !newDay.Equal(a.Date) || newSlot != a.TimeSlot {
		dayStart, dayEnd := appointment.Day(newDay)
		taken, err := s.repo.SlotTaken(ctx, a.DoctorID, dayStart, dayEnd, newSlot)
		if err != nil {
			return nil, fmt.Errorf("checking slot availability: %w", err)
		}
		if taken {
			return nil, appointment.ErrSlotTaken
		}
		a.Date = newDay
		a.TimeSlot = newSlot
	}

	if len(cmd.AppendPrescriptions) > 0 {
		a.Prescriptions = append(a.Prescriptions, cmd.AppendPrescriptions...)
	}

	if err := s.repo.Save(ctx, a); err != nil {
		if errors.Is(err, appointment.ErrSlotTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("updating appointment: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: actor.UserID, UserRole: string(actor.Role),
		Action: "update", ResourceType: "appointment", ResourceID: id.String(), IPAddress: ip,
		Changes: fmt.Sprintf(`{"fields":"%s"}`, joinFields(requested)),
	})

	return a, nil
}

// Delete removes the appointment permanently. Same ownership rule as read.
func (s *AppointmentService) Delete(ctx context.Context, id uuid.UUID, actor domain.Actor, ip string) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !appointment.CanRead(relationOf(actor, a)) {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting appointment: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: actor.UserID, UserRole: string(actor.Role),
		Action: "delete", ResourceType: "appointment", ResourceID: id.String(), IPAddress: ip,
	})

	return nil
}

func (s *AppointmentService) ListByPatient(ctx context.Context, patientID uuid.UUID, actor domain.Actor) ([]*AppointmentView, error) {
	if !actor.IsAdmin() && actor.UserID != patientID {
		return nil, ErrForbidden
	}

	appts, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, appts), nil
}

func (s *AppointmentService) ListByDoctor(ctx context.Context, doctorID uuid.UUID, actor domain.Actor) ([]*AppointmentView, error) {
	if !actor.IsAdmin() && !actor.IsDoctor(doctorID) {
		return nil, ErrForbidden
	}

	appts, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, appts), nil
}

func (s *AppointmentService) ListAll(ctx context.Context, q *appointment.ListAppointmentsQuery, actor domain.Actor) (*PagedAppointmentViews, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}

	paged, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}

	return &PagedAppointmentViews{
		Items:      s.enrich(ctx, paged.Appointments),
		Total:      paged.Total,
		Page:       paged.Page,
		Limit:      paged.Limit,
		TotalPages: paged.TotalPages,
	}, nil
}

// DoctorSummary and PatientSummary are display attributes joined from the
// directories for listing responses.
type DoctorSummary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	Phone          string    `json:"phone,omitempty"`
}

type PatientSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
}

type AppointmentView struct {
	*appointment.Appointment
	Doctor  *DoctorSummary  `json:"doctor,omitempty"`
	Patient *PatientSummary `json:"patient,omitempty"`
}

type PagedAppointmentViews struct {
	Items      []*AppointmentView `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"totalPages"`
}

// enrich joins doctor/patient display attributes onto each appointment.
// Lookups are best-effort: a failure leaves the summary nil and never fails
// the listing.
func (s *AppointmentService) enrich(ctx context.Context, appts []*appointment.Appointment) []*AppointmentView {
	doctors := make(map[uuid.UUID]*DoctorSummary)
	patients := make(map[uuid.UUID]*PatientSummary)

	views := make([]*AppointmentView, 0, len(appts))
	for _, a := range appts {
		v := &AppointmentView{Appointment: a}

		if ds, ok := doctors[a.DoctorID]; ok {
			v.Doctor = ds
		} else if d, err := s.doctorRepo.GetByID(ctx, a.DoctorID); err == nil {
			v.Doctor = &DoctorSummary{ID: d.ID, Name: d.Name, Specialization: d.Specialization, Phone: d.Phone}
			doctors[a.DoctorID] = v.Doctor
		} else {
			s.log.Warn("doctor enrichment lookup failed",
				zap.String("doctor_id", a.DoctorID.String()), zap.Error(err))
			doctors[a.DoctorID] = nil
		}

		if ps, ok := patients[a.PatientID]; ok {
			v.Patient = ps
		} else if u, err := s.users.GetByID(ctx, a.PatientID); err == nil {
			v.Patient = &PatientSummary{ID: u.ID, Name: u.Name, Phone: u.Phone}
			patients[a.PatientID] = v.Patient
		} else {
			s.log.Warn("patient enrichment lookup failed",
				zap.String("patient_id", a.PatientID.String()), zap.Error(err))
			patients[a.PatientID] = nil
		}

		views = append(views, v)
	}
	return views
}

func (s *AppointmentService) validateBooking(cmd *appointment.CreateAppointmentCommand) error {
	var errs []string

	if cmd.PatientID == uuid.Nil {
		errs = append(errs, "patient_id is required")
	}
	if cmd.DoctorID == uuid.Nil {
		errs = append(errs, "doctor_id is required")
	}
	if cmd.Date.IsZero() {
		errs = append(errs, "date is required")
	}
	if strings.TrimSpace(cmd.TimeSlot) == "" {
		errs = append(errs, "time_slot is required")
	}
	if strings.TrimSpace(cmd.Reason) == "" {
		errs = append(errs, "reason is required")
	}
	if strings.TrimSpace(cmd.Symptoms) == "" {
		errs = append(errs, "symptoms is required")
	}

	if cmd.DirectionsLink == "" {
		if s.requireDirectionsLink {
			errs = append(errs, "directions_link is required")
		}
	} else if !isAbsoluteHTTPURL(cmd.DirectionsLink) {
		errs = append(errs, "directions_link must be an absolute http(s) URL")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func relationOf(actor domain.Actor, a *appointment.Appointment) appointment.Relation {
	switch {
	case actor.IsAdmin():
		return appointment.RelationAdmin
	case actor.IsDoctor(a.DoctorID):
		return appointment.RelationAssignedDoctor
	case actor.Role == domain.RolePatient && actor.UserID == a.PatientID:
		return appointment.RelationOwner
	}
	return appointment.RelationNone
}

func requestedFields(cmd *appointment.UpdateAppointmentCommand) []appointment.Field {
	var fields []appointment.Field
	if cmd.Date != nil {
		fields = append(fields, appointment.FieldDate)
	}
	if cmd.TimeSlot != nil {
		fields = append(fields, appointment.FieldTimeSlot)
	}
	if cmd.Reason != nil {
		fields = append(fields, appointment.FieldReason)
	}
	if cmd.Symptoms != nil {
		fields = append(fields, appointment.FieldSymptoms)
	}
	if cmd.Notes != nil {
		fields = append(fields, appointment.FieldNotes)
	}
	if cmd.Status != nil {
		fields = append(fields, appointment.FieldStatus)
	}
	if len(cmd.AppendPrescriptions) > 0 {
		fields = append(fields, appointment.FieldPrescriptions)
	}
	return fields
}

func joinFields(fields []appointment.Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
