package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"qtportal/internal/entitlement"
	apierrors "qtportal/internal/errors"
	"qtportal/internal/infrastructure"
	"qtportal/internal/middleware"
)

// StatsHandler serves the owner's licensing stats.
type StatsHandler struct {
	store  *entitlement.Store
	logger *slog.Logger
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(store *entitlement.Store, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		store:  store,
		logger: logger.With(slog.String("handler", "stats")),
	}
}

// Routes returns the /api/stats router.
func (h *StatsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	return r
}

// Get handles GET /api/stats. Stats are recomputed on every call.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, _ := middleware.SessionFromContext(ctx)

	stats, err := h.store.StatsFor(ctx, session.AccountID)
	if err != nil {
		apierrors.RenderError(w, r, err, infrastructure.GetTraceID(ctx))
		return
	}
	render.JSON(w, r, stats)
}
