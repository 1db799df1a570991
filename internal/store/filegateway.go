package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"qtportal/pkg/contracts/domain"
)

// FileGateway persists each collection as a JSON array file under a data
// directory. Writes go to a temp file first and are renamed into place so a
// crash mid-write never leaves a truncated collection behind. Each collection
// has its own mutex; callers still own read-modify-write serialization.
type FileGateway struct {
	dir string

	accountsMu sync.Mutex
	productsMu sync.Mutex
	keysMu     sync.Mutex
}

// NewFileGateway creates the data directory if needed and returns a gateway
// rooted at it.
func NewFileGateway(dir string) (*FileGateway, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &FileGateway{dir: dir}, nil
}

// LoadAccounts returns the full accounts snapshot.
func (g *FileGateway) LoadAccounts(ctx context.Context) ([]domain.Account, error) {
	g.accountsMu.Lock()
	defer g.accountsMu.Unlock()
	var accounts []domain.Account
	if err := g.read(ctx, CollectionAccounts, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// SaveAccounts replaces the accounts snapshot.
func (g *FileGateway) SaveAccounts(ctx context.Context, accounts []domain.Account) error {
	g.accountsMu.Lock()
	defer g.accountsMu.Unlock()
	return g.write(ctx, CollectionAccounts, accounts)
}

// LoadProducts returns the full products snapshot.
func (g *FileGateway) LoadProducts(ctx context.Context) ([]domain.SoftwareProduct, error) {
	g.productsMu.Lock()
	defer g.productsMu.Unlock()
	var products []domain.SoftwareProduct
	if err := g.read(ctx, CollectionProducts, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// SaveProducts replaces the products snapshot.
func (g *FileGateway) SaveProducts(ctx context.Context, products []domain.SoftwareProduct) error {
	g.productsMu.Lock()
	defer g.productsMu.Unlock()
	return g.write(ctx, CollectionProducts, products)
}

// LoadLicenseKeys returns the full license keys snapshot.
func (g *FileGateway) LoadLicenseKeys(ctx context.Context) ([]domain.LicenseKey, error) {
	g.keysMu.Lock()
	defer g.keysMu.Unlock()
	var keys []domain.LicenseKey
	if err := g.read(ctx, CollectionLicenseKeys, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// SaveLicenseKeys replaces the license keys snapshot.
func (g *FileGateway) SaveLicenseKeys(ctx context.Context, keys []domain.LicenseKey) error {
	g.keysMu.Lock()
	defer g.keysMu.Unlock()
	return g.write(ctx, CollectionLicenseKeys, keys)
}

// path returns the file backing a collection.
func (g *FileGateway) path(collection string) string {
	return filepath.Join(g.dir, collection+".json")
}

// read unmarshals a collection file into out. A missing file is a cold start
// and yields an empty collection.
func (g *FileGateway) read(ctx context.Context, collection string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(g.path(collection))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read collection %s: %w", collection, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode collection %s: %w", collection, err)
	}
	return nil
}

// write marshals records to a temp file and renames it over the collection
// file. Record files carry 0600 since they hold credential hashes.
func (g *FileGateway) write(ctx context.Context, collection string, records any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", collection, err)
	}

	target := g.path(collection)
	tmp, err := os.CreateTemp(g.dir, collection+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", collection, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write collection %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", collection, err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions for %s: %w", collection, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace collection %s: %w", collection, err)
	}
	return nil
}
