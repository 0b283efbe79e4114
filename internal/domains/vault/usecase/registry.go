package usecase

import (
	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/domains/vault/policy"
)

// AssetRegistry maps asset types to slots and tracks their custody pools.
type AssetRegistry struct {
	txn  *Txn
	root model.Address
}

func NewAssetRegistry(txn *Txn, root model.Address) AssetRegistry {
	return AssetRegistry{txn: txn, root: root}
}

// Register assigns the next slot id to asset with an empty custody pool.
func (r AssetRegistry) Register(caller model.Address, asset model.AssetType) (model.SlotID, error) {
	if err := policy.RequireRoot(r.root, caller); err != nil {
		return 0, err
	}
	if _, exists := r.txn.Slot(asset); exists {
		return 0, model.ErrDuplicateAsset
	}
	cfg := r.txn.Config()
	slotID, next, err := model.NextSlotID(cfg.NextSlot)
	if err != nil {
		return 0, err
	}
	cfg.NextSlot = next
	r.txn.setConfig(cfg)
	r.txn.putSlot(model.AssetSlot{Asset: asset, SlotID: slotID})
	return slotID, nil
}

func (r AssetRegistry) Lookup(asset model.AssetType) (model.AssetSlot, error) {
	slot, ok := r.txn.Slot(asset)
	if !ok {
		return model.AssetSlot{}, model.ErrUnknownAsset
	}
	return slot, nil
}

func (r AssetRegistry) Credit(asset model.AssetType, amount model.Amount) (model.AssetSlot, error) {
	slot, err := r.Lookup(asset)
	if err != nil {
		return model.AssetSlot{}, err
	}
	balance, err := slot.CustodyBalance.Add(amount)
	if err != nil {
		return model.AssetSlot{}, err
	}
	slot.CustodyBalance = balance
	r.txn.putSlot(slot)
	return slot, nil
}

// Debit fails with ErrInsufficientCustody even though conservation makes the
// case unreachable while ledgers are consistent.
func (r AssetRegistry) Debit(asset model.AssetType, amount model.Amount) (model.AssetSlot, error) {
	slot, err := r.Lookup(asset)
	if err != nil {
		return model.AssetSlot{}, err
	}
	balance, ok := slot.CustodyBalance.Sub(amount)
	if !ok {
		return model.AssetSlot{}, model.ErrInsufficientCustody
	}
	slot.CustodyBalance = balance
	r.txn.putSlot(slot)
	return slot, nil
}
