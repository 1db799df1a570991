// Package store defines the persistence gateway the core loads and saves
// record collections through. The contract is whole-collection replace: a
// load returns the full current snapshot, a save overwrites it. The gateway
// provides no partial updates and no cross-collection transactions; every
// invariant spanning collections is enforced by the core before saving.
package store

import (
	"context"

	"qtportal/pkg/contracts/domain"
)

// Collection names used by gateway implementations.
const (
	CollectionAccounts    = "accounts"
	CollectionProducts    = "products"
	CollectionLicenseKeys = "license_keys"
)

// Gateway is the persistence port consumed by the directory and the
// entitlement store.
type Gateway interface {
	LoadAccounts(ctx context.Context) ([]domain.Account, error)
	SaveAccounts(ctx context.Context, accounts []domain.Account) error

	LoadProducts(ctx context.Context) ([]domain.SoftwareProduct, error)
	SaveProducts(ctx context.Context, products []domain.SoftwareProduct) error

	LoadLicenseKeys(ctx context.Context) ([]domain.LicenseKey, error)
	SaveLicenseKeys(ctx context.Context, keys []domain.LicenseKey) error
}
