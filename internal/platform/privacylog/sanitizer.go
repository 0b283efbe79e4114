// Package privacylog keeps account addresses and credentials out of logs.
// Vault addresses are replaced by per-process fingerprints wherever they
// appear: under address-bearing keys and inside free-form values such as
// error messages. Credentials and anything shaped like a BIP-39 mnemonic are
// redacted.
package privacylog

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

const redactedValue = "[REDACTED]"

var (
	bootNonce = randomNonce()

	// vlt1 followed by a base58 blake2b-256 digest.
	addressPattern = regexp.MustCompile(`vlt1[1-9A-HJ-NP-Za-km-z]{40,46}`)

	addressKeys = map[string]struct{}{
		"caller": {},
		"user":   {},
		"owner":  {},
		"to":     {},
		"from":   {},
		"root":   {},
	}
	sensitiveKeyParts = []string{"token", "secret", "password", "passphrase", "mnemonic", "authorization", "auth"}
	mnemonicLengths   = map[int]struct{}{12: {}, 15: {}, 18: {}, 21: {}, 24: {}}
)

type SanitizingHandler struct {
	next slog.Handler
}

func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &SanitizingHandler{next: next}
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, scrubText(rec.Message), rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(SanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SanitizingHandler{next: h.next.WithAttrs(sanitizeAttrs(attrs))}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name)}
}

// SanitizeAttr rewrites one attribute, descending into groups.
func SanitizeAttr(attr slog.Attr) slog.Attr {
	key := strings.TrimSpace(attr.Key)
	lowerKey := strings.ToLower(key)
	value := attr.Value.Resolve()
	switch {
	case isSensitiveKey(lowerKey):
		return slog.String(key, redactedValue)
	case isAddressKey(lowerKey):
		return slog.String(fingerprintKeyName(key), FingerprintID(value.String()))
	}
	switch value.Kind() {
	case slog.KindGroup:
		return slog.Attr{Key: key, Value: slog.GroupValue(sanitizeAttrs(value.Group())...)}
	case slog.KindString:
		return slog.String(key, scrubText(value.String()))
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.String(key, scrubText(err.Error()))
		}
	}
	return slog.Attr{Key: key, Value: value}
}

// FingerprintID maps value to a stable, process-scoped token.
func FingerprintID(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed + "|" + bootNonce))
	return "fp_" + hex.EncodeToString(sum[:8])
}

func sanitizeAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, SanitizeAttr(attr))
	}
	return out
}

// scrubText fingerprints embedded addresses and redacts a value that is a
// whole mnemonic.
func scrubText(text string) string {
	if looksLikeMnemonic(text) {
		return redactedValue
	}
	if !strings.Contains(text, "vlt1") {
		return text
	}
	return addressPattern.ReplaceAllStringFunc(text, FingerprintID)
}

func looksLikeMnemonic(text string) bool {
	words := strings.Fields(text)
	if _, ok := mnemonicLengths[len(words)]; !ok {
		return false
	}
	return bip39.IsMnemonicValid(strings.Join(words, " "))
}

func isAddressKey(key string) bool {
	if _, ok := addressKeys[key]; ok {
		return true
	}
	return strings.HasSuffix(key, "_address")
}

func fingerprintKeyName(key string) string {
	if strings.HasSuffix(strings.ToLower(key), "_fp") {
		return key
	}
	return key + "_fp"
}

func isSensitiveKey(key string) bool {
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func randomNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "fallback_nonce"
	}
	return hex.EncodeToString(buf)
}
