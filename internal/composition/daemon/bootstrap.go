package daemon

import (
	"errors"
	"fmt"

	"custody-vault/go-backend/internal/config"
	"custody-vault/go-backend/internal/securestore"
)

// ResolveStorage resolves the storage secret and opens the configured stores.
func ResolveStorage(cfg config.Config) (StorageBundle, error) {
	if cfg.Store == config.StoreMemory {
		return BuildStorageBundle(cfg, "")
	}
	secret, err := StoragePassphrase(cfg)
	if err != nil {
		return StorageBundle{}, err
	}
	bundle, err := BuildStorageBundle(cfg, secret)
	if err != nil {
		if errors.Is(err, securestore.ErrAuthFailed) {
			return StorageBundle{}, fmt.Errorf("storage authentication failed: check VAULT_STORAGE_PASSPHRASE: %w", err)
		}
		return StorageBundle{}, err
	}
	return bundle, nil
}
