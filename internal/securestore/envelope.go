package securestore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	envelopeVersion = 2
	saltSize        = 16
	filePrefix      = "VAULTENC2\n"
	kdfName         = "argon2id"
)

var (
	ErrAuthFailed    = errors.New("securestore authentication failed")
	ErrInvalid       = errors.New("securestore envelope is invalid")
	ErrPlaintext     = errors.New("securestore data is not sealed")
	ErrNoPassphrase  = errors.New("securestore passphrase is required")
	ErrLabelMismatch = errors.New("securestore envelope label mismatch")
)

var (
	defaultKDF     = KDFParams{Time: 2, MemoryKB: 64 * 1024, Threads: 1}
	lightweightKDF = KDFParams{Time: 1, MemoryKB: 8 * 1024, Threads: 1}
)

// KDFParams are the argon2id cost parameters recorded in every envelope.
type KDFParams struct {
	Time     uint32 `json:"time"`
	MemoryKB uint32 `json:"memory_kb"`
	Threads  uint8  `json:"threads"`
}

// Envelope is the on-disk form of a sealed payload. Label is bound into the
// AEAD as associated data so that a payload sealed for one purpose cannot be
// opened as another.
type Envelope struct {
	Version    uint32    `json:"version"`
	Label      string    `json:"label"`
	KDF        string    `json:"kdf"`
	Params     KDFParams `json:"params"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
}

// Sealer encrypts payloads for one label under one passphrase.
type Sealer struct {
	passphrase string
	label      string
	params     KDFParams
}

func NewSealer(passphrase, label string) (*Sealer, error) {
	passphrase = strings.TrimSpace(passphrase)
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	return &Sealer{passphrase: passphrase, label: strings.TrimSpace(label), params: defaultKDF}, nil
}

// Lightweight lowers the KDF cost. Only meant for tests and throwaway data.
func (s *Sealer) Lightweight() *Sealer {
	cp := *s
	cp.params = lightweightKDF
	return &cp
}

func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	env, err := s.SealEnvelope(plaintext)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(filePrefix), raw...), nil
}

func (s *Sealer) SealEnvelope(plaintext []byte) (*Envelope, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(s.passphrase, salt, s.params)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return &Envelope{
		Version:    envelopeVersion,
		Label:      s.label,
		KDF:        kdfName,
		Params:     s.params,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, []byte(s.label)),
	}, nil
}

func (s *Sealer) Open(data []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), filePrefix) {
		return nil, ErrPlaintext
	}
	var env Envelope
	if err := json.Unmarshal(data[len(filePrefix):], &env); err != nil {
		return nil, ErrInvalid
	}
	return s.OpenEnvelope(&env)
}

func (s *Sealer) OpenEnvelope(env *Envelope) ([]byte, error) {
	if env == nil || env.Version != envelopeVersion || env.KDF != kdfName {
		return nil, ErrInvalid
	}
	if env.Params.Time == 0 || env.Params.MemoryKB == 0 || env.Params.Threads == 0 {
		return nil, ErrInvalid
	}
	if env.Label != s.label {
		return nil, ErrLabelMismatch
	}
	key := deriveKey(s.passphrase, env.Salt, env.Params)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, ErrInvalid
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, []byte(env.Label))
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func deriveKey(passphrase string, salt []byte, p KDFParams) []byte {
	return argon2.IDKey([]byte(passphrase), salt, p.Time, p.MemoryKB, p.Threads, chacha20poly1305.KeySize)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
