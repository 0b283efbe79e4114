package usecase

import (
	"fmt"

	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/domains/vault/policy"
)

// BalanceView is one user's balance of one asset.
type BalanceView struct {
	User   model.Address   `json:"user"`
	Asset  model.AssetType `json:"asset"`
	SlotID model.SlotID    `json:"slot_id"`
	Amount model.Amount    `json:"amount"`
}

// LedgerView lists a user's entries in slot order.
type LedgerView struct {
	Owner   model.Address       `json:"owner"`
	Exists  bool                `json:"exists"`
	Entries []model.LedgerEntry `json:"entries"`
}

func (s *Service) Status() model.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Status{
		Root:        s.root,
		Initialized: s.state.Initialized,
		Paused:      s.state.Config.Paused,
		NextSlot:    s.state.Config.NextSlot,
		Revision:    s.state.Revision,
		AssetCount:  len(s.state.Slots),
		UserCount:   len(s.state.KnownUsers.Users),
	}
}

// Balance reports zero for users or entries that were never created.
func (s *Service) Balance(user model.Address, asset model.AssetType) (BalanceView, error) {
	user, err := policy.NormalizeAddress(string(user))
	if err != nil {
		return BalanceView{}, err
	}
	slot, err := s.Slot(asset)
	if err != nil {
		return BalanceView{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	amount := s.state.Ledgers[user].Entries[slot.SlotID]
	return BalanceView{User: user, Asset: slot.Asset, SlotID: slot.SlotID, Amount: amount}, nil
}

func (s *Service) Ledger(user model.Address) (LedgerView, error) {
	user, err := policy.NormalizeAddress(string(user))
	if err != nil {
		return LedgerView{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ledger, ok := s.state.Ledgers[user]
	if !ok {
		return LedgerView{Owner: user, Entries: []model.LedgerEntry{}}, nil
	}
	return LedgerView{Owner: user, Exists: true, Entries: ledger.SortedEntries()}, nil
}

func (s *Service) Slot(asset model.AssetType) (model.AssetSlot, error) {
	asset, err := policy.NormalizeAssetType(string(asset))
	if err != nil {
		return model.AssetSlot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.state.Slots[asset]
	if !ok {
		return model.AssetSlot{}, model.ErrUnknownAsset
	}
	return slot, nil
}

// Custody returns the amount of asset held on behalf of all users.
func (s *Service) Custody(asset model.AssetType) (model.Amount, error) {
	slot, err := s.Slot(asset)
	if err != nil {
		return 0, err
	}
	return slot.CustodyBalance, nil
}

func (s *Service) Assets() []model.AssetSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SortedSlots()
}

func (s *Service) KnownUsers() []model.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Address(nil), s.state.KnownUsers.Users...)
}

// Audit recomputes conservation for every asset. A failing audit also
// returns ErrConservationViolated naming the first inconsistent asset.
func (s *Service) Audit() (model.AuditReport, error) {
	s.mu.RLock()
	report := s.state.Audit()
	s.mu.RUnlock()
	for _, item := range report.Assets {
		if !item.Consistent {
			return report, fmt.Errorf("%w: %s", model.ErrConservationViolated, item.Asset)
		}
	}
	return report, nil
}
