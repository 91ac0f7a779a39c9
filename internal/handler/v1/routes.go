package v1

import (
	"net/http"

	"github.com/carebook/carebook/internal/middleware"
	"github.com/carebook/carebook/pkg/auth"
	"github.com/carebook/carebook/pkg/metrics"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth        *AuthHandler
	Doctor      *DoctorHandler
	Appointment *AppointmentHandler
}

// SetupRoutes wires the versioned API. Directory reads are public; every
// booking route requires authentication, with per-resource ownership decided
// in the service layer.
func SetupRoutes(router *gin.Engine, h Handlers, jwtManager *auth.JWTManager, collector *metrics.Collector) {
	router.Use(middleware.Metrics(collector))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := router.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/change-password", middleware.AuthMiddleware(jwtManager), h.Auth.ChangePassword)
	}

	doctors := api.Group("/doctors")
	{
		doctors.POST("/register", h.Doctor.Register)
		doctors.POST("/login", h.Doctor.Login)
		doctors.GET("", h.Doctor.List)
		doctors.GET("/:id", h.Doctor.GetByID)
	}

	appointments := api.Group("/appointments")
	appointments.Use(middleware.AuthMiddleware(jwtManager))
	{
		appointments.POST("", h.Appointment.Create)
		appointments.GET("", h.Appointment.ListAll)
		appointments.GET("/:id", h.Appointment.GetByID)
		appointments.PATCH("/:id", h.Appointment.Update)
		appointments.DELETE("/:id", h.Appointment.Delete)
		appointments.GET("/patient/:patientId", h.Appointment.ListByPatient)
		appointments.GET("/doctor/:doctorId", h.Appointment.ListByDoctor)
	}
}
