package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	TraceID    string `json:"trace_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// kindHTTP maps each domain error kind to its HTTP status and stable code.
var kindHTTP = map[Kind]struct {
	status int
	code   string
}{
	KindValidation:         {http.StatusBadRequest, "VALIDATION_FAILED"},
	KindInvalidCredentials: {http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	KindPendingApproval:    {http.StatusForbidden, "PENDING_APPROVAL"},
	KindForbidden:          {http.StatusForbidden, "FORBIDDEN"},
	KindNotFound:           {http.StatusNotFound, "NOT_FOUND"},
	KindConflict:           {http.StatusConflict, "CONFLICT"},
	KindInUse:              {http.StatusConflict, "IN_USE"},
	KindQuotaExceeded:      {http.StatusUnprocessableEntity, "QUOTA_EXCEEDED"},
	KindInvalidState:       {http.StatusUnprocessableEntity, "INVALID_STATE"},
	KindInternal:           {http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
}

// ToAPI converts any error into the APIError the transport layer renders.
// Domain errors map by kind; everything else becomes a 500 with a generic
// message so internal details never leak to clients.
func ToAPI(err error, traceID string) *APIError {
	kind := KindOf(err)
	m, ok := kindHTTP[kind]
	if !ok {
		m = kindHTTP[KindInternal]
	}

	api := &APIError{
		StatusCode: m.status,
		ErrorCode:  m.code,
		TraceID:    traceID,
	}

	if kind == KindInternal {
		api.Message = "Internal server error"
		return api
	}

	var e *Error
	if As(err, &e) {
		api.Message = e.Message
		api.Field = e.Field
	} else {
		api.Message = err.Error()
	}
	return api
}

// RenderError writes the APIError mapping of err to the response.
func RenderError(w http.ResponseWriter, r *http.Request, err error, traceID string) {
	api := ToAPI(err, traceID)
	render.Render(w, r, api)
}
