package coin

import (
	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/domains/vault/policy"
	"custody-vault/go-backend/internal/domains/vault/ports"
)

var ErrFaucetDisabled = ports.ErrFaucetDisabled

// Faucet lets the system root mint into the built-in bank on development
// deployments.
type Faucet struct {
	bank    *Bank
	root    model.Address
	enabled bool
}

func NewFaucet(bank *Bank, root model.Address, enabled bool) *Faucet {
	return &Faucet{bank: bank, root: root, enabled: enabled}
}

func (f *Faucet) Mint(caller, to model.Address, asset model.AssetType, amount model.Amount) (model.Amount, error) {
	if f == nil || f.bank == nil || !f.enabled {
		return 0, ErrFaucetDisabled
	}
	if err := policy.RequireRoot(f.root, caller); err != nil {
		return 0, err
	}
	to, err := policy.NormalizeAddress(string(to))
	if err != nil {
		return 0, err
	}
	asset, err = policy.NormalizeAssetType(string(asset))
	if err != nil {
		return 0, err
	}
	return f.bank.Mint(asset, to, amount)
}

func (f *Faucet) BalanceOf(owner model.Address, asset model.AssetType) (model.Amount, error) {
	if f == nil || f.bank == nil {
		return 0, ErrFaucetDisabled
	}
	owner, err := policy.NormalizeAddress(string(owner))
	if err != nil {
		return 0, err
	}
	asset, err = policy.NormalizeAssetType(string(asset))
	if err != nil {
		return 0, err
	}
	return f.bank.BalanceOf(asset, owner), nil
}
