package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"qtportal/internal/directory"
	apierrors "qtportal/internal/errors"
	"qtportal/internal/infrastructure"
	"qtportal/internal/middleware"
	"qtportal/pkg/contracts/domain"
)

// ProfileHandler handles the mentor's own profile updates.
type ProfileHandler struct {
	directory *directory.Directory
	logger    *slog.Logger
}

// NewProfileHandler creates a profile handler.
func NewProfileHandler(d *directory.Directory, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		directory: d,
		logger:    logger.With(slog.String("handler", "profile")),
	}
}

// UpdateProfileRequest carries the permitted profile fields. Omitted fields
// are left untouched.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
}

// Bind implements the render.Binder interface.
func (req *UpdateProfileRequest) Bind(r *http.Request) error {
	return nil
}

// Routes returns the /api/profile router.
func (h *ProfileHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Put("/", h.Update)
	return r
}

// Update handles PUT /api/profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)
	session, _ := middleware.SessionFromContext(ctx)

	req := &UpdateProfileRequest{}
	if err := render.Bind(r, req); err != nil {
		apierrors.RenderError(w, r, apierrors.Validation("", err.Error()), traceID)
		return
	}

	account, err := h.directory.UpdateProfile(ctx, session.AccountID, domain.AccountPatch{
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Email:       req.Email,
		Avatar:      req.Avatar,
	})
	if err != nil {
		apierrors.RenderError(w, r, err, traceID)
		return
	}
	render.JSON(w, r, account)
}
