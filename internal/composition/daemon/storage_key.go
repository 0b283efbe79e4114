package daemon

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"custody-vault/go-backend/internal/config"
)

const storageKeyFile = "storage.key"

var ErrStorageSecretRequired = errors.New("storage secret is required")
var ErrInsecureStorageKeyMode = errors.New("insecure storage key mode is forbidden in production")

// StoragePassphrase returns the configured storage passphrase. Outside
// production it falls back to a storage.key file in the data dir, generating
// one on first start.
func StoragePassphrase(cfg config.Config) (string, error) {
	if secret := strings.TrimSpace(cfg.StoragePassphrase); secret != "" {
		return secret, nil
	}
	if !cfg.NonProd() {
		return "", fmt.Errorf("%w: production requires VAULT_STORAGE_PASSPHRASE; raw storage.key is disabled", ErrInsecureStorageKeyMode)
	}
	keyPath := filepath.Join(cfg.DataDir, storageKeyFile)
	existing, err := os.ReadFile(keyPath)
	if err == nil {
		if secret := strings.TrimSpace(string(existing)); secret != "" {
			return secret, nil
		}
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if hasPersistentData(cfg) {
		return "", fmt.Errorf("%w: existing vault data found without storage.key; set VAULT_STORAGE_PASSPHRASE", ErrStorageSecretRequired)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	secret := base64.RawStdEncoding.EncodeToString(buf)
	if err := WriteStorageKey(cfg.DataDir, secret); err != nil {
		return "", err
	}
	return secret, nil
}

func WriteStorageKey(dataDir, secret string) error {
	keyPath := filepath.Join(dataDir, storageKeyFile)
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(keyPath, []byte(secret), 0o600)
}

func hasPersistentData(cfg config.Config) bool {
	for _, p := range []string{cfg.StatePath(), cfg.BankPath()} {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() && info.Size() > 0 {
			return true
		}
	}
	return false
}
