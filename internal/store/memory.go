package store

import (
	"context"
	"sync"

	"qtportal/pkg/contracts/domain"
)

// MemoryGateway keeps collections in process memory. It backs tests and
// ephemeral runs. Snapshots are copied on load and save so callers can never
// alias the stored slices.
type MemoryGateway struct {
	mu       sync.Mutex
	accounts []domain.Account
	products []domain.SoftwareProduct
	keys     []domain.LicenseKey
}

// NewMemoryGateway returns an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{}
}

func (g *MemoryGateway) LoadAccounts(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Account(nil), g.accounts...), nil
}

func (g *MemoryGateway) SaveAccounts(ctx context.Context, accounts []domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accounts = append([]domain.Account(nil), accounts...)
	return nil
}

func (g *MemoryGateway) LoadProducts(ctx context.Context) ([]domain.SoftwareProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.SoftwareProduct(nil), g.products...), nil
}

func (g *MemoryGateway) SaveProducts(ctx context.Context, products []domain.SoftwareProduct) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.products = append([]domain.SoftwareProduct(nil), products...)
	return nil
}

func (g *MemoryGateway) LoadLicenseKeys(ctx context.Context) ([]domain.LicenseKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.LicenseKey(nil), g.keys...), nil
}

func (g *MemoryGateway) SaveLicenseKeys(ctx context.Context, keys []domain.LicenseKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys = append([]domain.LicenseKey(nil), keys...)
	return nil
}
