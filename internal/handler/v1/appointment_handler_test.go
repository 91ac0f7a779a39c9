package v1

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/carebook/carebook/internal/domain"
	"github.com/carebook/carebook/internal/service"
	"github.com/carebook/carebook/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var testCollector = metrics.NewCollector("carebook_handler_test")

func newTestContext(t *testing.T, method, body string, claims *domain.Claims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/api/v1/appointments", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set("claims", claims)
	}
	return c, w
}

func TestCreateRequiresPatientID(t *testing.T) {
	// The service is never reached: the handler rejects the request first.
	h := NewAppointmentHandler(
		service.NewAppointmentService(nil, nil, nil, nil, zap.NewNop(), false),
		testCollector,
	)

	body := fmt.Sprintf(
		`{"doctorId":%q,"date":"2026-09-14","timeSlot":"09:00-09:30","reason":"checkup","symptoms":"cough"}`,
		uuid.New(),
	)

	t.Run("AdminMustNameThePatient", func(t *testing.T) {
		c, w := newTestContext(t, http.MethodPost, body, &domain.Claims{
			UserID: uuid.New(),
			Role:   domain.RoleAdmin,
		})

		h.Create(c)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "patientId is required") {
			t.Errorf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("DoctorMustNameThePatient", func(t *testing.T) {
		id := uuid.New()
		c, w := newTestContext(t, http.MethodPost, body, &domain.Claims{
			UserID:   id,
			Role:     domain.RoleDoctor,
			DoctorID: &id,
		})

		h.Create(c)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
		}
	})
}

func TestRespondServiceErrorStoreUnavailable(t *testing.T) {
	c, w := newTestContext(t, http.MethodGet, "", nil)

	respondServiceError(c, fmt.Errorf("loading appointment: %w: connection refused", domain.ErrStoreUnavailable))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "5" {
		t.Errorf("Retry-After = %q, want \"5\"", got)
	}
}
