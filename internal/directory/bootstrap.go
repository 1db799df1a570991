package directory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"qtportal/internal/errors"
	"qtportal/pkg/contracts/domain"
)

// BootstrapAdmin carries the out-of-band admin provisioning material. It is
// read from deployment configuration, never from a source literal.
type BootstrapAdmin struct {
	Email       string
	Password    string
	DisplayName string
}

// Bootstrap guarantees at least one admin account exists. It is idempotent
// across restarts: when any admin record is already present, or when no
// bootstrap credentials are configured, it does nothing. The seeded admin is
// approved by construction.
func (d *Directory) Bootstrap(ctx context.Context, admin BootstrapAdmin) error {
	if admin.Email == "" {
		d.logger.InfoContext(ctx, "bootstrap skipped, no admin configured")
		return nil
	}
	if admin.Password == "" {
		return errors.Validation("admin_password", "bootstrap admin password is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	accounts, err := d.gateway.LoadAccounts(ctx)
	if err != nil {
		return errors.Internal("failed to load accounts", err)
	}

	for _, a := range accounts {
		if a.IsAdmin {
			d.logger.InfoContext(ctx, "bootstrap skipped, admin already present",
				slog.String("account_id", a.ID))
			return nil
		}
	}

	mentorID, err := d.uniqueMentorID(accounts)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), d.opts.BcryptCost)
	if err != nil {
		return errors.Internal("failed to hash bootstrap credential", err)
	}

	displayName := admin.DisplayName
	if displayName == "" {
		displayName = "System Admin"
	}

	account := domain.Account{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(admin.Email)),
		DisplayName:  displayName,
		LegalName:    displayName,
		MentorID:     mentorID,
		PasswordHash: string(hash),
		Approved:     true,
		IsAdmin:      true,
		CreatedAt:    d.now(),
	}

	if err := d.gateway.SaveAccounts(ctx, append(accounts, account)); err != nil {
		return errors.Internal("failed to save accounts", err)
	}

	d.logger.InfoContext(ctx, "bootstrap admin seeded",
		slog.String("account_id", account.ID),
		slog.Int("mentor_id", account.MentorID))
	return nil
}
