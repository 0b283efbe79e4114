package model

import (
	"errors"
	"fmt"
	"sort"
)

// State is the complete persisted vault state.
type State struct {
	Initialized bool                    `json:"initialized"`
	Config      AdminConfig             `json:"config"`
	Slots       map[AssetType]AssetSlot `json:"slots"`
	Ledgers     map[Address]UserLedger  `json:"ledgers"`
	KnownUsers  KnownUsers              `json:"known_users"`
	Revision    uint64                  `json:"revision"`
}

// Change is the set of entity writes produced by one operation. Stores apply
// a Change atomically or not at all.
type Change struct {
	Revision uint64        `json:"revision"`
	Kind     OperationKind `json:"kind"`
	Init     bool          `json:"init,omitempty"`
	Config   *AdminConfig  `json:"config,omitempty"`
	Slots    []AssetSlot   `json:"slots,omitempty"`
	Ledgers  []Address     `json:"ledgers,omitempty"`
	Entries  []LedgerEntry `json:"entries,omitempty"`
	NewUsers []Address     `json:"new_users,omitempty"`
}

// Empty reports whether the change writes nothing.
func (c Change) Empty() bool {
	return !c.Init && c.Config == nil && len(c.Slots) == 0 && len(c.Ledgers) == 0 &&
		len(c.Entries) == 0 && len(c.NewUsers) == 0
}

// NewState returns an empty, uninitialized state.
func NewState() State {
	return State{
		Slots:   make(map[AssetType]AssetSlot),
		Ledgers: make(map[Address]UserLedger),
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		Initialized: s.Initialized,
		Config:      s.Config,
		Slots:       make(map[AssetType]AssetSlot, len(s.Slots)),
		Ledgers:     make(map[Address]UserLedger, len(s.Ledgers)),
		KnownUsers:  KnownUsers{Users: append([]Address(nil), s.KnownUsers.Users...)},
		Revision:    s.Revision,
	}
	for asset, slot := range s.Slots {
		out.Slots[asset] = slot
	}
	for owner, ledger := range s.Ledgers {
		out.Ledgers[owner] = ledger.Clone()
	}
	return out
}

// Apply returns the state that results from committing c on top of s.
// Ledgers not named by c share their entry maps with s; neither s nor the
// result may be mutated in place afterwards.
func (s State) Apply(c Change) (State, error) {
	if c.Revision != s.Revision+1 {
		return State{}, fmt.Errorf("%w: have %d, change %d", ErrRevisionConflict, s.Revision, c.Revision)
	}
	next := State{
		Initialized: s.Initialized || c.Init,
		Config:      s.Config,
		Slots:       make(map[AssetType]AssetSlot, len(s.Slots)+len(c.Slots)),
		Ledgers:     make(map[Address]UserLedger, len(s.Ledgers)+len(c.Ledgers)),
		KnownUsers:  KnownUsers{Users: append([]Address(nil), s.KnownUsers.Users...)},
		Revision:    c.Revision,
	}
	if c.Config != nil {
		next.Config = *c.Config
	}
	for asset, slot := range s.Slots {
		next.Slots[asset] = slot
	}
	for _, slot := range c.Slots {
		next.Slots[slot.Asset] = slot
	}
	for owner, ledger := range s.Ledgers {
		next.Ledgers[owner] = ledger
	}
	for _, owner := range c.Ledgers {
		if _, ok := next.Ledgers[owner]; ok {
			continue
		}
		next.Ledgers[owner] = UserLedger{Owner: owner, Entries: make(map[SlotID]Amount)}
	}
	touched := make(map[Address]struct{})
	for _, entry := range c.Entries {
		ledger, ok := next.Ledgers[entry.Owner]
		if !ok {
			return State{}, fmt.Errorf("ledger entry for missing ledger %q", entry.Owner)
		}
		if _, cloned := touched[entry.Owner]; !cloned {
			ledger = ledger.Clone()
			touched[entry.Owner] = struct{}{}
		}
		ledger.Entries[entry.SlotID] = entry.Amount
		next.Ledgers[entry.Owner] = ledger
	}
	next.KnownUsers.Users = append(next.KnownUsers.Users, c.NewUsers...)
	return next, nil
}

// Validate checks the structural invariants of a loaded state: slot
// uniqueness, roster consistency and custody conservation.
func (s State) Validate() error {
	if !s.Initialized {
		if len(s.Slots) > 0 || len(s.Ledgers) > 0 || len(s.KnownUsers.Users) > 0 {
			return errors.New("uninitialized vault state carries entities")
		}
		return nil
	}
	bySlot := make(map[SlotID]AssetType, len(s.Slots))
	for asset, slot := range s.Slots {
		if slot.Asset != asset {
			return fmt.Errorf("%w: slot key %q holds %q", ErrInvalidAssetType, asset, slot.Asset)
		}
		if uint64(slot.SlotID) >= s.Config.NextSlot {
			return fmt.Errorf("slot %d of %q was never assigned", slot.SlotID, asset)
		}
		if other, dup := bySlot[slot.SlotID]; dup {
			return fmt.Errorf("%w: slot %d shared by %q and %q", ErrDuplicateAsset, slot.SlotID, other, asset)
		}
		bySlot[slot.SlotID] = asset
	}
	seen := make(map[Address]struct{}, len(s.KnownUsers.Users))
	for _, user := range s.KnownUsers.Users {
		if _, dup := seen[user]; dup {
			return fmt.Errorf("known users roster lists %q twice", user)
		}
		if _, ok := s.Ledgers[user]; !ok {
			return fmt.Errorf("known user %q has no ledger", user)
		}
		seen[user] = struct{}{}
	}
	for owner, ledger := range s.Ledgers {
		if ledger.Owner != owner {
			return fmt.Errorf("%w: ledger key %q holds %q", ErrInvalidAddress, owner, ledger.Owner)
		}
		if _, ok := seen[owner]; !ok {
			return fmt.Errorf("ledger owner %q is missing from known users", owner)
		}
		for slotID := range ledger.Entries {
			if _, ok := bySlot[slotID]; !ok {
				return fmt.Errorf("ledger %q references unknown slot %d", owner, slotID)
			}
		}
	}
	for _, audit := range s.Audit().Assets {
		if !audit.Consistent {
			return fmt.Errorf("%w: %s custody=%d ledgers=%d", ErrConservationViolated, audit.Asset, audit.Custody, audit.LedgerSum)
		}
	}
	return nil
}

// Audit sums every ledger entry per slot and compares it to custody.
func (s State) Audit() AuditReport {
	sums := make(map[SlotID]Amount, len(s.Slots))
	overflowed := make(map[SlotID]bool)
	for _, ledger := range s.Ledgers {
		for slotID, amount := range ledger.Entries {
			total, err := sums[slotID].Add(amount)
			if err != nil {
				overflowed[slotID] = true
				continue
			}
			sums[slotID] = total
		}
	}
	report := AuditReport{OK: true, Assets: make([]AuditAsset, 0, len(s.Slots))}
	for _, slot := range s.SortedSlots() {
		item := AuditAsset{
			Asset:      slot.Asset,
			SlotID:     slot.SlotID,
			Custody:    slot.CustodyBalance,
			LedgerSum:  sums[slot.SlotID],
			Consistent: !overflowed[slot.SlotID] && sums[slot.SlotID] == slot.CustodyBalance,
		}
		if !item.Consistent {
			report.OK = false
		}
		report.Assets = append(report.Assets, item)
	}
	return report
}

// SortedSlots lists registered assets in slot order.
func (s State) SortedSlots() []AssetSlot {
	out := make([]AssetSlot, 0, len(s.Slots))
	for _, slot := range s.Slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out
}
