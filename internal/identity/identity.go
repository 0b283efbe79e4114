// Package identity derives vault addresses from BIP-39 mnemonics.
package identity

import (
	"crypto/ed25519"
	"errors"
	"strings"

	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/domains/vault/policy"

	"github.com/tyler-smith/go-bip39"
)

var (
	ErrInvalidMnemonic  = errors.New("invalid mnemonic")
	ErrMnemonicRequired = errors.New("mnemonic is required")
	ErrIdentityInit     = errors.New("identity initialization failed")
)

type DerivedKeys struct {
	SigningPrivateKey ed25519.PrivateKey
	SigningPublicKey  ed25519.PublicKey
}

// Identity is the public half of a key holder acting as vault root or user.
type Identity struct {
	Address   model.Address
	PublicKey ed25519.PublicKey
}

// Generate creates a fresh 24-word mnemonic and its identity.
func Generate() (string, Identity, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", Identity{}, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", Identity{}, err
	}
	id, err := FromMnemonic(mnemonic)
	if err != nil {
		return "", Identity{}, err
	}
	return mnemonic, id, nil
}

// FromMnemonic derives the identity of an existing mnemonic. Surrounding and
// repeated whitespace is ignored. The private key is wiped once the address
// is known.
func FromMnemonic(mnemonic string) (Identity, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if mnemonic == "" {
		return Identity{}, ErrMnemonicRequired
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return Identity{}, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")
	defer zeroBytes(seed)
	keys, err := DeriveKeys(seed)
	if err != nil {
		return Identity{}, err
	}
	defer zeroBytes(keys.SigningPrivateKey)
	return fromKeys(keys)
}

func fromKeys(keys *DerivedKeys) (Identity, error) {
	if keys == nil || len(keys.SigningPublicKey) != ed25519.PublicKeySize {
		return Identity{}, ErrIdentityInit
	}
	address, err := policy.BuildAddress(keys.SigningPublicKey)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		Address:   address,
		PublicKey: append(ed25519.PublicKey(nil), keys.SigningPublicKey...),
	}, nil
}

// ParseAddress validates a caller or user address.
func ParseAddress(raw string) (model.Address, error) {
	return policy.NormalizeAddress(raw)
}
