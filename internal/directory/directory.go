// Package directory owns account records, the approval workflow, and
// authentication. Every mutation is a serialized load-validate-save cycle
// against the persistence gateway: on failure nothing is persisted.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"qtportal/internal/errors"
	"qtportal/internal/keycodec"
	"qtportal/internal/store"
	"qtportal/pkg/contracts/domain"
)

// emailPattern is the registration email rule: one @, no whitespace, a dot in
// the domain part.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Options configure directory policy.
type Options struct {
	// PasswordMinLength is the minimum accepted credential length.
	PasswordMinLength int
	// BcryptCost is the bcrypt work factor for new credentials.
	BcryptCost int
	// MentorIDRetryLimit bounds mentor-id generation collision retries.
	MentorIDRetryLimit int
}

// Directory implements the account directory over a persistence gateway.
type Directory struct {
	gateway store.Gateway
	logger  *slog.Logger
	opts    Options

	// mu serializes every read-modify-write cycle. Registration checks global
	// uniqueness (email, mentor id), so mutations cannot be scoped finer.
	mu sync.Mutex

	now func() time.Time
}

// New creates a Directory. Zero option fields get safe defaults.
func New(gateway store.Gateway, logger *slog.Logger, opts Options) *Directory {
	if opts.PasswordMinLength <= 0 {
		opts.PasswordMinLength = 6
	}
	if opts.BcryptCost <= 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.MentorIDRetryLimit <= 0 {
		opts.MentorIDRetryLimit = 25
	}
	return &Directory{
		gateway: gateway,
		logger:  logger.With(slog.String("component", "directory")),
		opts:    opts,
		now:     time.Now,
	}
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email       string `json:"email" validate:"required"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"required"`
	LegalName   string `json:"legal_name" validate:"required"`
	Phone       string `json:"phone,omitempty"`
}

// Register creates a new unapproved, non-admin account. Email uniqueness is
// case-insensitive; the stored email is lowercased. The mentor id is generated
// and verified unique with a bounded retry.
func (d *Directory) Register(ctx context.Context, input RegisterInput) (domain.Account, error) {
	if err := d.validateRegistration(input); err != nil {
		return domain.Account{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	accounts, err := d.gateway.LoadAccounts(ctx)
	if err != nil {
		return domain.Account{}, errors.Internal("failed to load accounts", err)
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	for _, a := range accounts {
		if a.EmailMatches(email) {
			return domain.Account{}, errors.E(errors.KindConflict, "email already registered")
		}
	}

	mentorID, err := d.uniqueMentorID(accounts)
	if err != nil {
		return domain.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), d.opts.BcryptCost)
	if err != nil {
		return domain.Account{}, errors.Internal("failed to hash credential", err)
	}

	account := domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		LegalName:    strings.TrimSpace(input.LegalName),
		Phone:        strings.TrimSpace(input.Phone),
		MentorID:     mentorID,
		PasswordHash: string(hash),
		Approved:     false,
		IsAdmin:      false,
		CreatedAt:    d.now(),
	}

	if err := d.gateway.SaveAccounts(ctx, append(accounts, account)); err != nil {
		return domain.Account{}, errors.Internal("failed to save accounts", err)
	}

	d.logger.InfoContext(ctx, "account registered",
		slog.String("account_id", account.ID),
		slog.Int("mentor_id", account.MentorID))

	return account.Sanitized(), nil
}

// Authenticate checks the credential for the given email. A correct credential
// against an unapproved non-admin account fails with KindPendingApproval,
// which callers must keep distinguishable from KindInvalidCredentials. The
// returned account has its credential hash stripped.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (domain.Account, error) {
	accounts, err := d.gateway.LoadAccounts(ctx)
	if err != nil {
		return domain.Account{}, errors.Internal("failed to load accounts", err)
	}

	for _, a := range accounts {
		if !a.EmailMatches(email) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
			break
		}
		if !a.CanAuthenticate() {
			d.logger.InfoContext(ctx, "login blocked pending approval",
				slog.String("account_id", a.ID))
			return domain.Account{}, errors.E(errors.KindPendingApproval, "account is pending approval")
		}
		return a.Sanitized(), nil
	}

	return domain.Account{}, errors.E(errors.KindInvalidCredentials, "invalid email or password")
}

// Get returns one account by id with the credential hash stripped.
func (d *Directory) Get(ctx context.Context, accountID string) (domain.Account, error) {
	accounts, err := d.gateway.LoadAccounts(ctx)
	if err != nil {
		return domain.Account{}, errors.Internal("failed to load accounts", err)
	}
	for _, a := range accounts {
		if a.ID == accountID {
			return a.Sanitized(), nil
		}
	}
	return domain.Account{}, errors.E(errors.KindNotFound, "account not found")
}

// Approve marks the account approved. It is idempotent.
func (d *Directory) Approve(ctx context.Context, accountID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	accounts, err := d.gateway.LoadAccounts(ctx)
	if err != nil {
		return errors.Internal("failed to load accounts", err)
	}

	for i, a := range accounts {
		if a.ID != accountID {
			continue
		}
		if a.Approved {
			return nil
		}
		accounts[i].Approved = true
		if err := d.gateway.SaveAccounts(ctx, accounts); err != nil {
			return errors.Internal("failed to save accounts", err)
		}
		d.logger.InfoContext(ctx, "account approved", slog.String("account_id", accountID))
		return nil
	}
	return errors.E(errors.KindNotFound, "account not found")
}

// Reject deletes the account record outright. There is no stored rejected
// state and no way back.
func (d *Directory) Reject(ctx context.Context, accountID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	accounts, err := d.gateway.LoadAccounts(ctx)
	if err != nil {
		return errors.Internal("failed to load accounts", err)
	}

	remaining := accounts[:0]
	found := false
	for _, a := range accounts {
		if a.ID == accountID {
			found = true
			continue
		}
		remaining = append(remaining, a)
	}
	if !found {
		return errors.E(errors.KindNotFound, "account not found")
	}

	if err := d.gateway.SaveAccounts(ctx, remaining); err != nil {
		return errors.Internal("failed to save accounts", err)
	}
	d.logger.InfoContext(ctx, "account rejected and removed", slog.String("account_id", accountID))
	return nil
}

// ListPending returns all non-admin accounts awaiting approval, sanitized.
func (d *Directory) ListPending(ctx context.Context) ([]domain.Account, error) {
	return d.list(ctx, func(a domain.Account) bool {
		return !a.IsAdmin && !a.Approved
	})
}

// ListAll returns all non-admin accounts regardless of approval state,
// sanitized.
func (d *Directory) ListAll(ctx context.Context) ([]domain.Account, error) {
	return d.list(ctx, func(a domain.Account) bool {
		return !a.IsAdmin
	})
}

func (d *Directory) list(ctx context.Context, keep func(domain.Account) bool) ([]domain.Account, error) {
	accounts, err := d.gateway.LoadAccounts(ctx)
	if err != nil {
		return nil, errors.Internal("failed to load accounts", err)
	}
	out := make([]domain.Account, 0, len(accounts))
	for _, a := range accounts {
		if keep(a) {
			out = append(out, a.Sanitized())
		}
	}
	return out, nil
}

// UpdateProfile merges the permitted fields into the account. An email change
// is re-validated for format and case-insensitive uniqueness.
func (d *Directory) UpdateProfile(ctx context.Context, accountID string, patch domain.AccountPatch) (domain.Account, error) {
	if patch.IsEmpty() {
		return d.Get(ctx, accountID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	accounts, err := d.gateway.LoadAccounts(ctx)
	if err != nil {
		return domain.Account{}, errors.Internal("failed to load accounts", err)
	}

	idx := -1
	for i, a := range accounts {
		if a.ID == accountID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Account{}, errors.E(errors.KindNotFound, "account not found")
	}

	updated := accounts[idx]
	if patch.DisplayName != nil {
		name := strings.TrimSpace(*patch.DisplayName)
		if name == "" {
			return domain.Account{}, errors.Validation("display_name", "display name cannot be empty")
		}
		updated.DisplayName = name
	}
	if patch.Phone != nil {
		updated.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Avatar != nil {
		updated.Avatar = *patch.Avatar
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if !emailPattern.MatchString(email) {
			return domain.Account{}, errors.Validation("email", "invalid email address")
		}
		for i, a := range accounts {
			if i != idx && a.EmailMatches(email) {
				return domain.Account{}, errors.E(errors.KindConflict, "email already registered")
			}
		}
		updated.Email = email
	}

	accounts[idx] = updated
	if err := d.gateway.SaveAccounts(ctx, accounts); err != nil {
		return domain.Account{}, errors.Internal("failed to save accounts", err)
	}

	d.logger.InfoContext(ctx, "profile updated", slog.String("account_id", accountID))
	return updated.Sanitized(), nil
}

// validateRegistration applies format and policy checks before touching the
// store.
func (d *Directory) validateRegistration(input RegisterInput) error {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return errors.Validation("email", "email is required")
	}
	if !emailPattern.MatchString(email) {
		return errors.Validation("email", "invalid email address")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		return errors.Validation("display_name", "display name is required")
	}
	if strings.TrimSpace(input.LegalName) == "" {
		return errors.Validation("legal_name", "full name is required")
	}
	if len(input.Password) < d.opts.PasswordMinLength {
		return errors.Validation("password",
			fmt.Sprintf("password must be at least %d characters", d.opts.PasswordMinLength))
	}
	return nil
}

// uniqueMentorID generates a mentor id absent from the current snapshot, with
// a bounded retry on collision.
func (d *Directory) uniqueMentorID(accounts []domain.Account) (int, error) {
	taken := make(map[int]struct{}, len(accounts))
	for _, a := range accounts {
		taken[a.MentorID] = struct{}{}
	}

	for attempt := 0; attempt < d.opts.MentorIDRetryLimit; attempt++ {
		id := keycodec.GenerateMentorID()
		if _, exists := taken[id]; !exists {
			return id, nil
		}
	}
	return 0, errors.Ef(errors.KindConflict,
		"could not allocate a unique mentor id in %d attempts", d.opts.MentorIDRetryLimit)
}
