package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"qtportal/pkg/contracts"
)

// HealthHandler serves liveness and version information.
type HealthHandler struct{}

// NewHealthHandler creates a health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string                `json:"status"`
	Version   string                `json:"version"`
	Build     contracts.VersionInfo `json:"build"`
	Timestamp time.Time             `json:"timestamp"`
}

// Routes returns the /api/healthz router.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	return r
}

// Check handles GET /api/healthz.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "ok",
		Version:   contracts.Version,
		Build:     contracts.GetVersionInfo(),
		Timestamp: time.Now(),
	})
}
