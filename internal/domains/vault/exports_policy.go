package vault

import vaultpolicy "custody-vault/go-backend/internal/domains/vault/policy"

func NormalizeAddress(raw string) (Address, error) {
	return vaultpolicy.NormalizeAddress(raw)
}

func NormalizeAssetType(raw string) (AssetType, error) {
	return vaultpolicy.NormalizeAssetType(raw)
}

func BuildAddress(publicKey []byte) (Address, error) {
	return vaultpolicy.BuildAddress(publicKey)
}

func CustodyAddress(root Address) Address {
	return vaultpolicy.CustodyAddress(root)
}
