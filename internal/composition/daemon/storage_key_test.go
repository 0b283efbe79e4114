package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"custody-vault/go-backend/internal/config"
	"custody-vault/go-backend/internal/storage/sqlite"
	"custody-vault/go-backend/internal/testutil/fsperm"
)

func testConfig(t *testing.T, store string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Env = "test"
	cfg.Store = store
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestStoragePassphrasePrefersConfiguredSecret(t *testing.T) {
	cfg := testConfig(t, config.StoreFile)
	cfg.StoragePassphrase = "  configured  "
	secret, err := StoragePassphrase(cfg)
	if err != nil {
		t.Fatalf("storage passphrase failed: %v", err)
	}
	if secret != "configured" {
		t.Fatalf("unexpected secret: %q", secret)
	}
	if _, err := os.Stat(filepath.Join(cfg.DataDir, storageKeyFile)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("storage.key must not be written when a passphrase is configured: %v", err)
	}
}

func TestStoragePassphraseGeneratesAndReusesKeyFile(t *testing.T) {
	cfg := testConfig(t, config.StoreFile)
	first, err := StoragePassphrase(cfg)
	if err != nil {
		t.Fatalf("generate storage key failed: %v", err)
	}
	if first == "" {
		t.Fatal("expected generated secret")
	}
	fsperm.AssertPrivateFilePerm(t, filepath.Join(cfg.DataDir, storageKeyFile))
	second, err := StoragePassphrase(cfg)
	if err != nil {
		t.Fatalf("reuse storage key failed: %v", err)
	}
	if first != second {
		t.Fatal("expected storage key to be reused")
	}
}

func TestStoragePassphraseForbidsKeyFileInProduction(t *testing.T) {
	cfg := testConfig(t, config.StoreFile)
	cfg.Env = "production"
	if _, err := StoragePassphrase(cfg); !errors.Is(err, ErrInsecureStorageKeyMode) {
		t.Fatalf("expected ErrInsecureStorageKeyMode, got: %v", err)
	}
}

func TestStoragePassphraseExistingDataRequiresExplicitSecret(t *testing.T) {
	cfg := testConfig(t, config.StoreFile)
	if err := os.WriteFile(cfg.StatePath(), []byte("sealed"), 0o600); err != nil {
		t.Fatalf("write state marker failed: %v", err)
	}
	if _, err := StoragePassphrase(cfg); !errors.Is(err, ErrStorageSecretRequired) {
		t.Fatalf("expected ErrStorageSecretRequired, got: %v", err)
	}
}

func TestResolveStorageMemory(t *testing.T) {
	cfg := testConfig(t, config.StoreMemory)
	bundle, err := ResolveStorage(cfg)
	if err != nil {
		t.Fatalf("resolve memory storage failed: %v", err)
	}
	defer bundle.Close()
	if bundle.State == nil || bundle.Bank == nil {
		t.Fatal("expected state store and bank")
	}
	state, err := bundle.State.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if state.Initialized {
		t.Fatal("fresh memory store must be uninitialized")
	}
	entries, err := os.ReadDir(cfg.DataDir)
	if err != nil {
		t.Fatalf("read data dir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("memory store must not touch the data dir, found %d entries", len(entries))
	}
}

func TestResolveStorageSQLite(t *testing.T) {
	cfg := testConfig(t, config.StoreSQLite)
	cfg.DataDir = filepath.Join(cfg.DataDir, "nested", "data")
	cfg.StoragePassphrase = "bank-pass"
	bundle, err := ResolveStorage(cfg)
	if err != nil {
		t.Fatalf("resolve sqlite storage failed: %v", err)
	}
	if _, ok := bundle.State.(*sqlite.Store); !ok {
		t.Fatalf("expected sqlite store, got %T", bundle.State)
	}
	if err := bundle.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := os.Stat(cfg.StatePath()); err != nil {
		t.Fatalf("expected sqlite database file: %v", err)
	}
	fsperm.AssertPrivateDirPerm(t, cfg.DataDir)
}

func TestResolveStorageRejectsUnknownStore(t *testing.T) {
	cfg := testConfig(t, "redis")
	cfg.StoragePassphrase = "pass"
	if _, err := ResolveStorage(cfg); err == nil {
		t.Fatal("expected unknown store error")
	}
}
