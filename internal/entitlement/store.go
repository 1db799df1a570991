// Package entitlement owns the product catalog and license keys: issuance,
// quota enforcement, and the status lifecycle. Every operation is scoped to
// the calling owner; cross-owner access fails with a forbidden error rather
// than trusting any caller-supplied filter.
package entitlement

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"qtportal/internal/errors"
	"qtportal/internal/keycodec"
	"qtportal/internal/store"
	"qtportal/pkg/contracts/domain"
)

var (
	keysIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_license_keys_issued_total",
		Help: "Total number of license keys issued.",
	})
	keysDeactivatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_license_keys_deactivated_total",
		Help: "Total number of license keys deactivated.",
	})
	keysDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_license_keys_deleted_total",
		Help: "Total number of license keys deleted.",
	})
	quotaRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_license_quota_rejections_total",
		Help: "Total number of issuance attempts rejected at the quota.",
	})
)

// Options configure entitlement policy.
type Options struct {
	// MaxLicenses is the per-owner license key quota.
	MaxLicenses int
	// CodeRetryLimit bounds key-code generation collision retries.
	CodeRetryLimit int
}

// Store implements the entitlement operations over a persistence gateway.
type Store struct {
	gateway store.Gateway
	logger  *slog.Logger
	opts    Options

	// mu serializes every read-modify-write cycle. Saves replace the whole
	// shared collection, so a mutation scoped to one owner would still race
	// another owner's save and drop its records; IssueKey also checks code
	// uniqueness across all owners.
	mu sync.Mutex

	now func() time.Time
}

// New creates a Store. Zero option fields get safe defaults.
func New(gateway store.Gateway, logger *slog.Logger, opts Options) *Store {
	if opts.MaxLicenses <= 0 {
		opts.MaxLicenses = 10000
	}
	if opts.CodeRetryLimit <= 0 {
		opts.CodeRetryLimit = 5
	}
	return &Store{
		gateway: gateway,
		logger:  logger.With(slog.String("component", "entitlement")),
		opts:    opts,
		now:     time.Now,
	}
}

// AddProduct registers a new product under the owner. The name must be
// non-empty after trimming.
func (s *Store) AddProduct(ctx context.Context, ownerID, name string) (domain.SoftwareProduct, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.SoftwareProduct{}, errors.Validation("name", "product name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.gateway.LoadProducts(ctx)
	if err != nil {
		return domain.SoftwareProduct{}, errors.Internal("failed to load products", err)
	}

	product := domain.SoftwareProduct{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: s.now(),
	}

	if err := s.gateway.SaveProducts(ctx, append(products, product)); err != nil {
		return domain.SoftwareProduct{}, errors.Internal("failed to save products", err)
	}

	s.logger.InfoContext(ctx, "product added",
		slog.String("owner_id", ownerID),
		slog.String("product_id", product.ID))
	return product, nil
}

// ListProducts returns the owner's products.
func (s *Store) ListProducts(ctx context.Context, ownerID string) ([]domain.SoftwareProduct, error) {
	products, err := s.gateway.LoadProducts(ctx)
	if err != nil {
		return nil, errors.Internal("failed to load products", err)
	}
	out := make([]domain.SoftwareProduct, 0, len(products))
	for _, p := range products {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

// DeleteProduct removes a product, refusing while any of the owner's license
// keys still references it.
func (s *Store) DeleteProduct(ctx context.Context, ownerID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.gateway.LoadProducts(ctx)
	if err != nil {
		return errors.Internal("failed to load products", err)
	}

	idx := -1
	for i, p := range products {
		if p.ID == productID {
			if p.OwnerID != ownerID {
				return errors.E(errors.KindForbidden, "product belongs to another owner")
			}
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.E(errors.KindNotFound, "product not found")
	}

	keys, err := s.gateway.LoadLicenseKeys(ctx)
	if err != nil {
		return errors.Internal("failed to load license keys", err)
	}
	for _, k := range keys {
		if k.OwnerID == ownerID && k.ProductID == productID {
			return errors.E(errors.KindInUse, "product is referenced by one or more license keys")
		}
	}

	remaining := append(products[:idx:idx], products[idx+1:]...)
	if err := s.gateway.SaveProducts(ctx, remaining); err != nil {
		return errors.Internal("failed to save products", err)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("owner_id", ownerID),
		slog.String("product_id", productID))
	return nil
}

// IssueKey creates a new active license key for the owner's product. The key
// code is generated and verified globally unique with a bounded retry; the
// expiry comes from the plan table.
func (s *Store) IssueKey(ctx context.Context, ownerID, holderName, productID, planCode string) (domain.LicenseKey, error) {
	holderName = strings.TrimSpace(holderName)
	if holderName == "" {
		return domain.LicenseKey{}, errors.Validation("holder_name", "holder name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.gateway.LoadProducts(ctx)
	if err != nil {
		return domain.LicenseKey{}, errors.Internal("failed to load products", err)
	}

	var product *domain.SoftwareProduct
	for i, p := range products {
		if p.ID == productID {
			if p.OwnerID != ownerID {
				return domain.LicenseKey{}, errors.E(errors.KindForbidden, "product belongs to another owner")
			}
			product = &products[i]
			break
		}
	}
	if product == nil {
		return domain.LicenseKey{}, errors.E(errors.KindNotFound, "product not found")
	}

	keys, err := s.gateway.LoadLicenseKeys(ctx)
	if err != nil {
		return domain.LicenseKey{}, errors.Internal("failed to load license keys", err)
	}

	owned := 0
	codes := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		codes[k.Code] = struct{}{}
		if k.OwnerID == ownerID {
			owned++
		}
	}
	if owned >= s.opts.MaxLicenses {
		quotaRejectionsTotal.Inc()
		return domain.LicenseKey{}, errors.E(errors.KindQuotaExceeded, "license quota reached")
	}

	code, err := s.uniqueCode(codes)
	if err != nil {
		return domain.LicenseKey{}, err
	}

	issuedAt := s.now()
	key := domain.LicenseKey{
		ID:          uuid.NewString(),
		Code:        code,
		OwnerID:     ownerID,
		HolderName:  holderName,
		ProductID:   product.ID,
		ProductName: product.Name,
		PlanCode:    planCode,
		Status:      domain.KeyStatusActive,
		IssuedAt:    issuedAt,
		ExpiresAt:   keycodec.ExpiryFor(planCode, issuedAt),
	}

	if err := s.gateway.SaveLicenseKeys(ctx, append(keys, key)); err != nil {
		return domain.LicenseKey{}, errors.Internal("failed to save license keys", err)
	}

	keysIssuedTotal.Inc()
	s.logger.InfoContext(ctx, "license key issued",
		slog.String("owner_id", ownerID),
		slog.String("key_id", key.ID),
		slog.String("product_id", product.ID),
		slog.String("plan", planCode))
	return key, nil
}

// ListKeys returns the owner's license keys.
func (s *Store) ListKeys(ctx context.Context, ownerID string) ([]domain.LicenseKey, error) {
	keys, err := s.gateway.LoadLicenseKeys(ctx)
	if err != nil {
		return nil, errors.Internal("failed to load license keys", err)
	}
	out := make([]domain.LicenseKey, 0, len(keys))
	for _, k := range keys {
		if k.OwnerID == ownerID {
			out = append(out, k)
		}
	}
	return out, nil
}

// DeactivateKey transitions a key from active to inactive. There is no
// reverse transition.
func (s *Store) DeactivateKey(ctx context.Context, ownerID, keyID string) (domain.LicenseKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.gateway.LoadLicenseKeys(ctx)
	if err != nil {
		return domain.LicenseKey{}, errors.Internal("failed to load license keys", err)
	}

	for i, k := range keys {
		if k.ID != keyID {
			continue
		}
		if k.OwnerID != ownerID {
			return domain.LicenseKey{}, errors.E(errors.KindForbidden, "license key belongs to another owner")
		}
		if k.Status != domain.KeyStatusActive {
			return domain.LicenseKey{}, errors.E(errors.KindInvalidState, "license key is not active")
		}
		keys[i].Status = domain.KeyStatusInactive
		if err := s.gateway.SaveLicenseKeys(ctx, keys); err != nil {
			return domain.LicenseKey{}, errors.Internal("failed to save license keys", err)
		}
		keysDeactivatedTotal.Inc()
		s.logger.InfoContext(ctx, "license key deactivated",
			slog.String("owner_id", ownerID),
			slog.String("key_id", keyID))
		return keys[i], nil
	}
	return domain.LicenseKey{}, errors.E(errors.KindNotFound, "license key not found")
}

// DeleteKey removes a key unconditionally, whatever its status.
func (s *Store) DeleteKey(ctx context.Context, ownerID, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.gateway.LoadLicenseKeys(ctx)
	if err != nil {
		return errors.Internal("failed to load license keys", err)
	}

	idx := -1
	for i, k := range keys {
		if k.ID == keyID {
			if k.OwnerID != ownerID {
				return errors.E(errors.KindForbidden, "license key belongs to another owner")
			}
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.E(errors.KindNotFound, "license key not found")
	}

	remaining := append(keys[:idx:idx], keys[idx+1:]...)
	if err := s.gateway.SaveLicenseKeys(ctx, remaining); err != nil {
		return errors.Internal("failed to save license keys", err)
	}

	keysDeletedTotal.Inc()
	s.logger.InfoContext(ctx, "license key deleted",
		slog.String("owner_id", ownerID),
		slog.String("key_id", keyID))
	return nil
}

// StatsFor computes the owner's licensing stats fresh from the current
// collections. Nothing is cached, so the numbers can never drift.
func (s *Store) StatsFor(ctx context.Context, ownerID string) (domain.Stats, error) {
	products, err := s.gateway.LoadProducts(ctx)
	if err != nil {
		return domain.Stats{}, errors.Internal("failed to load products", err)
	}
	keys, err := s.gateway.LoadLicenseKeys(ctx)
	if err != nil {
		return domain.Stats{}, errors.Internal("failed to load license keys", err)
	}

	stats := domain.Stats{MaxLicenses: s.opts.MaxLicenses}
	for _, p := range products {
		if p.OwnerID == ownerID {
			stats.TotalEAs++
		}
	}
	for _, k := range keys {
		if k.OwnerID != ownerID {
			continue
		}
		stats.TotalLicenses++
		if k.Status == domain.KeyStatusActive {
			stats.ActiveSubscriptions++
		}
	}
	return stats, nil
}

// uniqueCode generates a key code absent from the given set, with a bounded
// retry on collision.
func (s *Store) uniqueCode(existing map[string]struct{}) (string, error) {
	for attempt := 0; attempt < s.opts.CodeRetryLimit; attempt++ {
		code := keycodec.GenerateCode()
		if _, taken := existing[code]; !taken {
			return code, nil
		}
	}
	return "", errors.Ef(errors.KindConflict,
		"could not allocate a unique license code in %d attempts", s.opts.CodeRetryLimit)
}
