// Package http contains the chi HTTP handlers for the portal API. Handlers
// translate requests into directory and entitlement operations and map domain
// errors to structured API error responses; they carry no business rules of
// their own.
package http
