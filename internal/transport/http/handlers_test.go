package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"qtportal/internal/auth"
	"qtportal/internal/directory"
	"qtportal/internal/entitlement"
	"qtportal/internal/middleware"
	"qtportal/internal/store"
	"qtportal/pkg/contracts/domain"
)

// testEnv wires the handlers over a memory gateway, mirroring the production
// router without the observability stack.
type testEnv struct {
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := store.NewMemoryGateway()

	d := directory.New(gateway, logger, directory.Options{
		PasswordMinLength: 6,
		BcryptCost:        bcrypt.MinCost,
	})
	ent := entitlement.New(gateway, logger, entitlement.Options{MaxLicenses: 5})
	tokens := auth.NewTokenService("handler-test-secret", time.Hour)

	require.NoError(t, d.Bootstrap(context.Background(), directory.BootstrapAdmin{
		Email:    "admin@portal.example",
		Password: "admin-secret",
	}))

	authHandler := NewAuthHandler(d, tokens, logger)
	profileHandler := NewProfileHandler(d, logger)
	adminHandler := NewAdminHandler(d, logger)
	productHandler := NewProductHandler(ent, logger)
	licenseHandler := NewLicenseHandler(ent, logger)
	statsHandler := NewStatsHandler(ent, logger)
	healthHandler := NewHealthHandler()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api", func(r chi.Router) {
		r.Mount("/healthz", healthHandler.Routes())
		r.Mount("/auth", authHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(tokens, logger))
			r.Mount("/profile", profileHandler.Routes())
			r.Mount("/products", productHandler.Routes())
			r.Mount("/licenses", licenseHandler.Routes())
			r.Mount("/stats", statsHandler.Routes())

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logger))
				r.Mount("/admin", adminHandler.Routes())
			})
		})
	})

	return &testEnv{router: r}
}

// do performs a request against the test router. A non-empty token is sent as
// a Bearer credential.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// errorCode extracts the stable error code from an error response body.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body.ErrorCode
}

// register creates an account through the API and returns it.
func (e *testEnv) register(t *testing.T, email string) domain.Account {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email:       email,
		Password:    "secret1",
		DisplayName: "Mentor",
		LegalName:   "Test Mentor",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return decode[domain.Account](t, rec)
}

// login authenticates through the API and returns the session token.
func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email:    email,
		Password: password,
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	return decode[LoginResponse](t, rec).Token
}

// approvedMentor registers and approves an account, returning its token.
func (e *testEnv) approvedMentor(t *testing.T, email string) string {
	t.Helper()
	account := e.register(t, email)
	adminToken := e.login(t, "admin@portal.example", "admin-secret")
	rec := e.do(t, http.MethodPost, "/api/admin/users/"+account.ID+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	return e.login(t, email, "secret1")
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Version)
	assert.Equal(t, body.Version, body.Build.Version)
	assert.NotEmpty(t, body.Build.GoVersion)
	assert.NotEmpty(t, body.Build.APIVersion)
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	account := env.register(t, "mentor@example.com")
	assert.NotEmpty(t, account.ID)
	assert.False(t, account.Approved)

	t.Run("response never carries the credential", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
			Email:       "second@example.com",
			Password:    "secret1",
			DisplayName: "Mentor",
			LegalName:   "Test Mentor",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NotContains(t, rec.Body.String(), "password")
		assert.NotContains(t, rec.Body.String(), "$2a$")
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
			Email: "mentor2@example.com",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
			Email:       "MENTOR@example.com",
			Password:    "secret1",
			DisplayName: "Mentor",
			LegalName:   "Test Mentor",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "CONFLICT", errorCode(t, rec))
	})
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	account := env.register(t, "mentor@example.com")

	t.Run("pending account is told so", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
			Email:    "mentor@example.com",
			Password: "secret1",
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "PENDING_APPROVAL", errorCode(t, rec))
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
			Email:    "mentor@example.com",
			Password: "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rec))
	})

	t.Run("approval unlocks login and me", func(t *testing.T) {
		adminToken := env.login(t, "admin@portal.example", "admin-secret")
		rec := env.do(t, http.MethodPost, "/api/admin/users/"+account.ID+"/approve", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		token := env.login(t, "mentor@example.com", "secret1")

		rec = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		me := decode[domain.Account](t, rec)
		assert.Equal(t, account.ID, me.ID)
	})
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/products", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/products", "not-a-jwt", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	mentorToken := env.approvedMentor(t, "mentor@example.com")

	rec := env.do(t, http.MethodGet, "/api/admin/users", mentorToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	adminToken := env.login(t, "admin@portal.example", "admin-secret")
	rec = env.do(t, http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	accounts := decode[[]domain.Account](t, rec)
	require.Len(t, accounts, 1, "admin itself is excluded")
	assert.Equal(t, "mentor@example.com", accounts[0].Email)
}

func TestAdminRejectEndpoint(t *testing.T) {
	env := newTestEnv(t)
	account := env.register(t, "reject-me@example.com")
	adminToken := env.login(t, "admin@portal.example", "admin-secret")

	rec := env.do(t, http.MethodDelete, "/api/admin/users/"+account.ID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/admin/users/"+account.ID, adminToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	pending := env.do(t, http.MethodGet, "/api/admin/users/pending", adminToken, nil)
	require.Equal(t, http.StatusOK, pending.Code)
	assert.Empty(t, decode[[]domain.Account](t, pending))
}

func TestProfileEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.approvedMentor(t, "mentor@example.com")

	name := "Renamed Mentor"
	rec := env.do(t, http.MethodPut, "/api/profile", token, UpdateProfileRequest{
		DisplayName: &name,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed Mentor", decode[domain.Account](t, rec).DisplayName)

	bad := "not-an-email"
	rec = env.do(t, http.MethodPut, "/api/profile", token, UpdateProfileRequest{Email: &bad})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))
}

func TestProductAndLicenseFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.approvedMentor(t, "mentor@example.com")

	rec := env.do(t, http.MethodPost, "/api/products", token, AddProductRequest{Name: "Gold EA"})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decode[domain.SoftwareProduct](t, rec)

	rec = env.do(t, http.MethodPost, "/api/licenses", token, IssueKeyRequest{
		HolderName: "Ali Trader",
		ProductID:  product.ID,
		PlanCode:   domain.Plan30Days,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	key := decode[LicenseKeyResponse](t, rec)
	assert.Len(t, strings.Split(key.Code, "-"), 5)
	assert.Equal(t, domain.KeyStatusActive, key.EffectiveStatus)
	assert.Equal(t, "30 Days", key.PlanName)

	t.Run("product delete blocked while referenced", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/products/"+product.ID, token, nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "IN_USE", errorCode(t, rec))
	})

	t.Run("stats reflect current records", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/stats", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		stats := decode[domain.Stats](t, rec)
		assert.Equal(t, 1, stats.TotalLicenses)
		assert.Equal(t, 1, stats.ActiveSubscriptions)
		assert.Equal(t, 1, stats.TotalEAs)
		assert.Equal(t, 5, stats.MaxLicenses)
	})

	t.Run("deactivate is one-way", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/licenses/"+key.ID+"/deactivate", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.KeyStatusInactive, decode[LicenseKeyResponse](t, rec).Status)

		rec = env.do(t, http.MethodPost, "/api/licenses/"+key.ID+"/deactivate", token, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "INVALID_STATE", errorCode(t, rec))
	})

	t.Run("delete works regardless of status", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/licenses/"+key.ID, token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/licenses", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[[]LicenseKeyResponse](t, rec))
	})

	t.Run("product delete allowed once unreferenced", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/products/"+product.ID, token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestLicenseQuotaOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	token := env.approvedMentor(t, "mentor@example.com")

	rec := env.do(t, http.MethodPost, "/api/products", token, AddProductRequest{Name: "EA"})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decode[domain.SoftwareProduct](t, rec)

	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/api/licenses", token, IssueKeyRequest{
			HolderName: "Trader",
			ProductID:  product.ID,
			PlanCode:   domain.Plan30Days,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/licenses", token, IssueKeyRequest{
		HolderName: "Trader",
		ProductID:  product.ID,
		PlanCode:   domain.Plan30Days,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "QUOTA_EXCEEDED", errorCode(t, rec))
}

func TestCrossOwnerIsolationOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	tokenA := env.approvedMentor(t, "owner-a@example.com")
	tokenB := env.approvedMentor(t, "owner-b@example.com")

	rec := env.do(t, http.MethodPost, "/api/products", tokenA, AddProductRequest{Name: "EA"})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decode[domain.SoftwareProduct](t, rec)

	rec = env.do(t, http.MethodPost, "/api/licenses", tokenA, IssueKeyRequest{
		HolderName: "Trader",
		ProductID:  product.ID,
		PlanCode:   domain.Plan30Days,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	key := decode[LicenseKeyResponse](t, rec)

	t.Run("listings are scoped", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/products", tokenB, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[[]domain.SoftwareProduct](t, rec))
	})

	t.Run("foreign ids are forbidden", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/products/"+product.ID, tokenB, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

		rec = env.do(t, http.MethodPost, "/api/licenses/"+key.ID+"/deactivate", tokenB, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("absent ids are not found", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/licenses/no-such-key", tokenB, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
