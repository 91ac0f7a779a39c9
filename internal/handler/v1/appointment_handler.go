package v1

import (
	"errors"
	"net/http"

	"github.com/carebook/carebook/internal/domain"
	"github.com/carebook/carebook/internal/domain/appointment"
	"github.com/carebook/carebook/internal/service"
	"github.com/carebook/carebook/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AppointmentHandler struct {
	svc       *service.AppointmentService
	collector *metrics.Collector
}

func NewAppointmentHandler(svc *service.AppointmentService, collector *metrics.Collector) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, collector: collector}
}

type createAppointmentRequest struct {
	// Optional for patients (defaults to the caller); required for admins.
	PatientID string `json:"patientId"`

	DoctorID       string `json:"doctorId"`
	Date           string `json:"date"`
	TimeSlot       string `json:"timeSlot"`
	Reason         string `json:"reason"`
	Symptoms       string `json:"symptoms"`
	Notes          string `json:"notes"`
	DirectionsLink string `json:"directionsLink"`
}

type updateAppointmentRequest struct {
	Date     *string `json:"date"`
	TimeSlot *string `json:"timeSlot"`
	Reason   *string `json:"reason"`
	Symptoms *string `json:"symptoms"`
	Notes    *string `json:"notes"`
	Status   *string `json:"status"`

	Prescriptions []appointment.PrescriptionItem `json:"prescriptions"`
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &appointment.CreateAppointmentCommand{
		TimeSlot:       req.TimeSlot,
		Reason:         req.Reason,
		Symptoms:       req.Symptoms,
		Notes:          req.Notes,
		DirectionsLink: req.DirectionsLink,
		CreatedBy:      actor.UserID,
	}

	if req.PatientID == "" {
		// Only patients may omit the field; it then means "for myself".
		// Anyone booking on a patient's behalf has to name the patient.
		if actor.Role != domain.RolePatient {
			respondError(c, http.StatusBadRequest, "patientId is required")
			return
		}
		cmd.PatientID = actor.UserID
	} else {
		id, err := uuid.Parse(req.PatientID)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid patientId: must be a valid UUID")
			return
		}
		cmd.PatientID = id
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid doctorId: must be a valid UUID")
		return
	}
	cmd.DoctorID = doctorID

	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid date: expected YYYY-MM-DD or RFC 3339")
			return
		}
		cmd.Date = date
	}

	a, err := h.svc.Book(c.Request.Context(), cmd, actor, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, appointment.ErrSlotTaken):
			h.collector.BookingConflicts.Inc()
			h.collector.BookingsTotal.WithLabelValues("conflict").Inc()
		default:
			h.collector.BookingsTotal.WithLabelValues("rejected").Inc()
		}
		respondServiceError(c, err)
		return
	}

	h.collector.BookingsTotal.WithLabelValues("created").Inc()
	respondCreated(c, a)
}

func (h *AppointmentHandler) GetByID(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.svc.Get(c.Request.Context(), id, actor, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, a)
}

func (h *AppointmentHandler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req updateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &appointment.UpdateAppointmentCommand{
		AppendPrescriptions: req.Prescriptions,
	}

	// Empty strings mean "leave unchanged", matching the replace-if-present
	// partial update contract.
	if s := stringField(req.TimeSlot); s != nil {
		cmd.TimeSlot = s
	}
	if s := stringField(req.Reason); s != nil {
		cmd.Reason = s
	}
	if s := stringField(req.Symptoms); s != nil {
		cmd.Symptoms = s
	}
	if s := stringField(req.Notes); s != nil {
		cmd.Notes = s
	}
	if s := stringField(req.Status); s != nil {
		status := appointment.AppointmentStatus(*s)
		cmd.Status = &status
	}
	if s := stringField(req.Date); s != nil {
		date, err := parseDate(*s)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid date: expected YYYY-MM-DD or RFC 3339")
			return
		}
		cmd.Date = &date
	}

	a, err := h.svc.Update(c.Request.Context(), id, cmd, actor, c.ClientIP())
	if err != nil {
		if errors.Is(err, appointment.ErrSlotTaken) {
			h.collector.BookingConflicts.Inc()
		}
		respondServiceError(c, err)
		return
	}

	if cmd.Status != nil {
		h.collector.AppointmentsByStatus.WithLabelValues(string(*cmd.Status)).Inc()
	}

	respondOK(c, a)
}

func (h *AppointmentHandler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, actor, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse[any]{Message: "appointment deleted"})
}

func (h *AppointmentHandler) ListByPatient(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	patientID, ok := parseUUID(c, "patientId")
	if !ok {
		return
	}

	views, err := h.svc.ListByPatient(c.Request.Context(), patientID, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, views)
}

func (h *AppointmentHandler) ListByDoctor(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	doctorID, ok := parseUUID(c, "doctorId")
	if !ok {
		return
	}

	views, err := h.svc.ListByDoctor(c.Request.Context(), doctorID, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, views)
}

func (h *AppointmentHandler) ListAll(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	q := &appointment.ListAppointmentsQuery{
		Page:  parseQueryInt(c, "page", 1),
		Limit: parseQueryInt(c, "limit", 10),
	}

	paged, err := h.svc.ListAll(c.Request.Context(), q, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, paged)
}

func stringField(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}
