// Package domain contains the core domain models for the QuickTrade Pro license
// portal. These types serve as the Single Source of Truth (SSOT) for all layers
// of the application.
package domain

import (
	"strings"
	"time"
)

// MentorIDMin and MentorIDMax bound the human-readable mentor identifier
// assigned to every account at registration.
const (
	MentorIDMin = 100000
	MentorIDMax = 999999
)

// Account represents a mentor account in the directory.
//
// Email is stored lowercase and is unique case-insensitively. MentorID is a
// unique 6-digit number. PasswordHash holds the bcrypt hash of the credential
// and must never appear in any API response or query result; Sanitized copies
// have it stripped.
type Account struct {
	ID           string    `json:"id" validate:"required"`
	Email        string    `json:"email" validate:"required,email"`
	DisplayName  string    `json:"display_name" validate:"required"`
	LegalName    string    `json:"legal_name" validate:"required"`
	Phone        string    `json:"phone,omitempty"`
	MentorID     int       `json:"mentor_id" validate:"min=100000,max=999999"`
	PasswordHash string    `json:"-"`
	Approved     bool      `json:"approved"`
	IsAdmin      bool      `json:"is_admin"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sanitized returns a copy of the account with the credential hash stripped.
func (a Account) Sanitized() Account {
	a.PasswordHash = ""
	return a
}

// EmailMatches reports whether the account's email equals the given address
// under the directory's case-insensitive matching rule.
func (a Account) EmailMatches(email string) bool {
	return strings.EqualFold(a.Email, email)
}

// CanAuthenticate reports whether the account may complete a login. Admin
// accounts are always approved; regular accounts must pass the approval gate.
func (a Account) CanAuthenticate() bool {
	return a.Approved || a.IsAdmin
}

// AccountPatch carries the profile fields a mentor may change. Nil fields are
// left untouched.
type AccountPatch struct {
	DisplayName *string `json:"display_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p AccountPatch) IsEmpty() bool {
	return p.DisplayName == nil && p.Phone == nil && p.Email == nil && p.Avatar == nil
}
