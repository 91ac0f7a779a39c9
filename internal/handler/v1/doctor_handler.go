package v1

import (
	"github.com/carebook/carebook/internal/domain/doctor"
	"github.com/carebook/carebook/internal/service"
	"github.com/carebook/carebook/pkg/metrics"
	"github.com/gin-gonic/gin"
)

type DoctorHandler struct {
	svc       *service.DoctorService
	collector *metrics.Collector
}

func NewDoctorHandler(svc *service.DoctorService, collector *metrics.Collector) *DoctorHandler {
	return &DoctorHandler{svc: svc, collector: collector}
}

type registerDoctorRequest struct {
	Name               string           `json:"name"`
	Email              string           `json:"email"`
	Password           string           `json:"password"`
	Phone              string           `json:"phone"`
	Specialization     string           `json:"specialization"`
	ExperienceYears    int              `json:"experienceYears"`
	Fees               float64          `json:"fees"`
	AvailableDays      []doctor.Weekday `json:"availableDays"`
	AvailableTimeSlots []string         `json:"availableTimeSlots"`
	Address            string           `json:"address"`
}

func (h *DoctorHandler) Register(c *gin.Context) {
	var req registerDoctorRequest
	if !bindJSON(c, &req) {
		return
	}

	d, err := h.svc.Register(c.Request.Context(), &doctor.RegisterDoctorCommand{
		Name:               req.Name,
		Email:              req.Email,
		Password:           req.Password,
		Phone:              req.Phone,
		Specialization:     req.Specialization,
		ExperienceYears:    req.ExperienceYears,
		Fees:               req.Fees,
		AvailableDays:      req.AvailableDays,
		AvailableTimeSlots: req.AvailableTimeSlots,
		Address:            req.Address,
	}, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.collector.DoctorsRegistered.Inc()
	respondCreated(c, d)
}

func (h *DoctorHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, d, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{"tokens": pair, "doctor": d})
}

func (h *DoctorHandler) GetByID(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	d, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, d)
}

func (h *DoctorHandler) List(c *gin.Context) {
	q := &doctor.ListDoctorsQuery{
		Specialization: c.Query("specialization"),
		Page:           parseQueryInt(c, "page", 1),
		Limit:          parseQueryInt(c, "limit", 10),
	}

	paged, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{
		"doctors":    paged.Doctors,
		"total":      paged.Total,
		"page":       paged.Page,
		"limit":      paged.Limit,
		"totalPages": paged.TotalPages,
	})
}
