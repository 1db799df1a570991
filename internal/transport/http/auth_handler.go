package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"qtportal/internal/auth"
	"qtportal/internal/directory"
	apierrors "qtportal/internal/errors"
	"qtportal/internal/infrastructure"
	"qtportal/internal/middleware"
	"qtportal/pkg/contracts/domain"
)

// validate is the shared request validator.
var validate = validator.New()

// AuthHandler handles registration, login, and the current-account endpoints.
type AuthHandler struct {
	directory *directory.Directory
	tokens    *auth.TokenService
	logger    *slog.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(d *directory.Directory, tokens *auth.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		directory: d,
		tokens:    tokens,
		logger:    logger.With(slog.String("handler", "auth")),
	}
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"required"`
	LegalName   string `json:"legal_name" validate:"required"`
	Phone       string `json:"phone,omitempty"`
}

// Bind implements the render.Binder interface.
func (req *RegisterRequest) Bind(r *http.Request) error {
	if err := validate.Struct(req); err != nil {
		return errors.New("email, password, display_name and legal_name are required")
	}
	return nil
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Bind implements the render.Binder interface.
func (req *LoginRequest) Bind(r *http.Request) error {
	if err := validate.Struct(req); err != nil {
		return errors.New("email and password are required")
	}
	return nil
}

// LoginResponse carries the session token and the sanitized account.
type LoginResponse struct {
	Token     string         `json:"token"`
	Account   domain.Account `json:"account"`
	ExpiresIn string         `json:"expires_in,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Routes returns the /api/auth router. The me endpoint requires a session.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))
		r.Get("/me", h.Me)
	})
	return r
}

// Register handles POST /api/auth/register. New accounts await approval and
// cannot log in yet.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	req := &RegisterRequest{}
	if err := render.Bind(r, req); err != nil {
		apierrors.RenderError(w, r, apierrors.Validation("", err.Error()), traceID)
		return
	}

	account, err := h.directory.Register(ctx, directory.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		LegalName:   req.LegalName,
		Phone:       req.Phone,
	})
	if err != nil {
		apierrors.RenderError(w, r, err, traceID)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, account)
}

// Login handles POST /api/auth/login. A correct credential on an unapproved
// account yields PENDING_APPROVAL, which clients must present differently
// from INVALID_CREDENTIALS.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	req := &LoginRequest{}
	if err := render.Bind(r, req); err != nil {
		apierrors.RenderError(w, r, apierrors.Validation("", err.Error()), traceID)
		return
	}

	account, err := h.directory.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		apierrors.RenderError(w, r, err, traceID)
		return
	}

	token, err := h.tokens.Issue(account)
	if err != nil {
		apierrors.RenderError(w, r, err, traceID)
		return
	}

	render.JSON(w, r, LoginResponse{
		Token:     token,
		Account:   account,
		Timestamp: time.Now(),
	})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	session, _ := middleware.SessionFromContext(ctx)
	account, err := h.directory.Get(ctx, session.AccountID)
	if err != nil {
		apierrors.RenderError(w, r, err, traceID)
		return
	}
	render.JSON(w, r, account)
}
