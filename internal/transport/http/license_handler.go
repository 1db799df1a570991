package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"qtportal/internal/entitlement"
	apierrors "qtportal/internal/errors"
	"qtportal/internal/infrastructure"
	"qtportal/internal/keycodec"
	"qtportal/internal/middleware"
	"qtportal/pkg/contracts/domain"
)

// LicenseHandler handles license key issuance and lifecycle endpoints.
type LicenseHandler struct {
	store  *entitlement.Store
	logger *slog.Logger
}

// NewLicenseHandler creates a license handler.
func NewLicenseHandler(store *entitlement.Store, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		store:  store,
		logger: logger.With(slog.String("handler", "licenses")),
	}
}

// IssueKeyRequest is the issuance payload.
type IssueKeyRequest struct {
	HolderName string `json:"holder_name" validate:"required"`
	ProductID  string `json:"product_id" validate:"required"`
	PlanCode   string `json:"plan_code" validate:"required"`
}

// Bind implements the render.Binder interface.
func (req *IssueKeyRequest) Bind(r *http.Request) error {
	if err := validate.Struct(req); err != nil {
		return errors.New("holder_name, product_id and plan_code are required")
	}
	return nil
}

// LicenseKeyResponse wraps a key with its display status and plan name.
type LicenseKeyResponse struct {
	domain.LicenseKey
	EffectiveStatus domain.KeyStatus `json:"effective_status"`
	PlanName        string           `json:"plan_name"`
}

func newLicenseKeyResponse(k domain.LicenseKey, now time.Time) LicenseKeyResponse {
	return LicenseKeyResponse{
		LicenseKey:      k,
		EffectiveStatus: k.EffectiveStatus(now),
		PlanName:        keycodec.PlanDisplayName(k.PlanCode),
	}
}

// Routes returns the /api/licenses router.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Issue)
	r.Post("/{keyID}/deactivate", h.Deactivate)
	r.Delete("/{keyID}", h.Delete)
	return r
}

// List handles GET /api/licenses.
func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, _ := middleware.SessionFromContext(ctx)

	keys, err := h.store.ListKeys(ctx, session.AccountID)
	if err != nil {
		apierrors.RenderError(w, r, err, infrastructure.GetTraceID(ctx))
		return
	}

	now := time.Now()
	out := make([]LicenseKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, newLicenseKeyResponse(k, now))
	}
	render.JSON(w, r, out)
}

// Issue handles POST /api/licenses.
func (h *LicenseHandler) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)
	session, _ := middleware.SessionFromContext(ctx)

	req := &IssueKeyRequest{}
	if err := render.Bind(r, req); err != nil {
		apierrors.RenderError(w, r, apierrors.Validation("", err.Error()), traceID)
		return
	}

	key, err := h.store.IssueKey(ctx, session.AccountID, req.HolderName, req.ProductID, req.PlanCode)
	if err != nil {
		apierrors.RenderError(w, r, err, traceID)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newLicenseKeyResponse(key, time.Now()))
}

// Deactivate handles POST /api/licenses/{keyID}/deactivate. Only active keys
// can be deactivated, and the transition is one-way.
func (h *LicenseHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, _ := middleware.SessionFromContext(ctx)
	keyID := chi.URLParam(r, "keyID")

	key, err := h.store.DeactivateKey(ctx, session.AccountID, keyID)
	if err != nil {
		apierrors.RenderError(w, r, err, infrastructure.GetTraceID(ctx))
		return
	}
	render.JSON(w, r, newLicenseKeyResponse(key, time.Now()))
}

// Delete handles DELETE /api/licenses/{keyID}. Removal works regardless of
// status.
func (h *LicenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, _ := middleware.SessionFromContext(ctx)
	keyID := chi.URLParam(r, "keyID")

	if err := h.store.DeleteKey(ctx, session.AccountID, keyID); err != nil {
		apierrors.RenderError(w, r, err, infrastructure.GetTraceID(ctx))
		return
	}
	render.NoContent(w, r)
}
