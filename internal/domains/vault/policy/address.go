package policy

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"custody-vault/go-backend/internal/domains/vault/model"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

const AddressPrefix = "vlt1"

// BuildAddress derives the vault address of an ed25519 public key.
func BuildAddress(publicKey []byte) (model.Address, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return "", fmt.Errorf("invalid public key size: %d", len(publicKey))
	}
	h := blake2b.Sum256(publicKey)
	return model.Address(AddressPrefix + base58.Encode(h[:])), nil
}

// NormalizeAddress trims raw and checks it is a prefixed base58 blake2b-256 digest.
func NormalizeAddress(raw string) (model.Address, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, AddressPrefix) {
		return "", model.ErrInvalidAddress
	}
	decoded, err := base58.Decode(raw[len(AddressPrefix):])
	if err != nil || len(decoded) != blake2b.Size256 {
		return "", model.ErrInvalidAddress
	}
	return model.Address(raw), nil
}

// CustodyAddress is the external account that holds coins custodied by the
// vault governed by root. It has no key; only the vault moves funds out of it.
func CustodyAddress(root model.Address) model.Address {
	h := blake2b.Sum256([]byte("vault-custody|" + string(root)))
	return model.Address(AddressPrefix + base58.Encode(h[:]))
}
