package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"qtportal/internal/entitlement"
	apierrors "qtportal/internal/errors"
	"qtportal/internal/infrastructure"
	"qtportal/internal/middleware"
)

// ProductHandler handles the owner's product catalog endpoints.
type ProductHandler struct {
	store  *entitlement.Store
	logger *slog.Logger
}

// NewProductHandler creates a product handler.
func NewProductHandler(store *entitlement.Store, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		store:  store,
		logger: logger.With(slog.String("handler", "products")),
	}
}

// AddProductRequest is the product creation payload.
type AddProductRequest struct {
	Name string `json:"name" validate:"required"`
}

// Bind implements the render.Binder interface.
func (req *AddProductRequest) Bind(r *http.Request) error {
	if err := validate.Struct(req); err != nil {
		return errors.New("name is required")
	}
	return nil
}

// Routes returns the /api/products router.
func (h *ProductHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Add)
	r.Delete("/{productID}", h.Delete)
	return r
}

// List handles GET /api/products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, _ := middleware.SessionFromContext(ctx)

	products, err := h.store.ListProducts(ctx, session.AccountID)
	if err != nil {
		apierrors.RenderError(w, r, err, infrastructure.GetTraceID(ctx))
		return
	}
	render.JSON(w, r, products)
}

// Add handles POST /api/products.
func (h *ProductHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)
	session, _ := middleware.SessionFromContext(ctx)

	req := &AddProductRequest{}
	if err := render.Bind(r, req); err != nil {
		apierrors.RenderError(w, r, apierrors.Validation("name", err.Error()), traceID)
		return
	}

	product, err := h.store.AddProduct(ctx, session.AccountID, req.Name)
	if err != nil {
		apierrors.RenderError(w, r, err, traceID)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, product)
}

// Delete handles DELETE /api/products/{productID}. Products still referenced
// by license keys cannot be deleted.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, _ := middleware.SessionFromContext(ctx)
	productID := chi.URLParam(r, "productID")

	if err := h.store.DeleteProduct(ctx, session.AccountID, productID); err != nil {
		apierrors.RenderError(w, r, err, infrastructure.GetTraceID(ctx))
		return
	}
	render.NoContent(w, r)
}
