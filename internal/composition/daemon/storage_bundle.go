package daemon

import (
	"errors"
	"fmt"
	"os"

	"custody-vault/go-backend/internal/coin"
	"custody-vault/go-backend/internal/config"
	"custody-vault/go-backend/internal/domains/vault"
	"custody-vault/go-backend/internal/storage/sqlite"
)

// StorageBundle holds the vault state store and the coin bank selected by
// the store setting.
type StorageBundle struct {
	State vault.StateStore
	Bank  *coin.Bank
	Kind  string

	closers []func() error
}

func (b StorageBundle) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func BuildStorageBundle(cfg config.Config, secret string) (StorageBundle, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return StorageBundle{State: vault.NewSnapshotStore(), Bank: coin.NewBank(), Kind: cfg.Store}, nil
	case config.StoreFile, config.StoreSQLite:
	default:
		return StorageBundle{}, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return StorageBundle{}, fmt.Errorf("create data dir: %w", err)
	}
	bank, err := coin.NewPersistentBank(cfg.BankPath(), secret)
	if err != nil {
		return StorageBundle{}, err
	}
	bundle := StorageBundle{Bank: bank, Kind: cfg.Store}
	if cfg.Store == config.StoreSQLite {
		db, err := sqlite.Open(cfg.StatePath())
		if err != nil {
			return StorageBundle{}, err
		}
		bundle.State = db
		bundle.closers = append(bundle.closers, db.Close)
		return bundle, nil
	}
	snapshots := vault.NewSnapshotStore()
	if err := snapshots.Configure(cfg.StatePath(), secret); err != nil {
		return StorageBundle{}, err
	}
	bundle.State = snapshots
	return bundle, nil
}
