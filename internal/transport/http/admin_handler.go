package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"qtportal/internal/directory"
	apierrors "qtportal/internal/errors"
	"qtportal/internal/infrastructure"
)

// AdminHandler handles the account approval workflow. All routes require an
// admin session.
type AdminHandler struct {
	directory *directory.Directory
	logger    *slog.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(d *directory.Directory, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		directory: d,
		logger:    logger.With(slog.String("handler", "admin")),
	}
}

// Routes returns the /api/admin router.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/users", h.ListAll)
	r.Get("/users/pending", h.ListPending)
	r.Post("/users/{accountID}/approve", h.Approve)
	r.Delete("/users/{accountID}", h.Reject)
	return r
}

// ListAll handles GET /api/admin/users, returning every non-admin account.
func (h *AdminHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accounts, err := h.directory.ListAll(ctx)
	if err != nil {
		apierrors.RenderError(w, r, err, infrastructure.GetTraceID(ctx))
		return
	}
	render.JSON(w, r, accounts)
}

// ListPending handles GET /api/admin/users/pending.
func (h *AdminHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accounts, err := h.directory.ListPending(ctx)
	if err != nil {
		apierrors.RenderError(w, r, err, infrastructure.GetTraceID(ctx))
		return
	}
	render.JSON(w, r, accounts)
}

// Approve handles POST /api/admin/users/{accountID}/approve.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := chi.URLParam(r, "accountID")

	if err := h.directory.Approve(ctx, accountID); err != nil {
		apierrors.RenderError(w, r, err, infrastructure.GetTraceID(ctx))
		return
	}
	render.JSON(w, r, map[string]any{"approved": true, "account_id": accountID})
}

// Reject handles DELETE /api/admin/users/{accountID}. Rejection deletes the
// account record irreversibly.
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := chi.URLParam(r, "accountID")

	if err := h.directory.Reject(ctx, accountID); err != nil {
		apierrors.RenderError(w, r, err, infrastructure.GetTraceID(ctx))
		return
	}
	render.NoContent(w, r)
}
