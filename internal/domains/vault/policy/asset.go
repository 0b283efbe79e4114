package policy

import (
	"strings"
	"unicode"

	"custody-vault/go-backend/internal/domains/vault/model"
)

const MaxAssetTypeLen = 128

// NormalizeAssetType trims raw and rejects empty, oversized or
// whitespace-bearing identifiers.
func NormalizeAssetType(raw string) (model.AssetType, error) {
	asset := strings.TrimSpace(raw)
	if asset == "" || len(asset) > MaxAssetTypeLen {
		return "", model.ErrInvalidAssetType
	}
	for _, r := range asset {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", model.ErrInvalidAssetType
		}
	}
	return model.AssetType(asset), nil
}
