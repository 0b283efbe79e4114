package model

import (
	"sort"
)

// Address identifies a vault participant. The system root and users share
// the same address form; see policy.NormalizeAddress.
type Address string

// AssetType names one kind of fungible value custodied by the vault.
type AssetType string

// SlotID is the vault-internal identifier assigned to a registered asset type.
type SlotID uint64

// Amount is a raw, non-negative quantity of an asset.
type Amount uint64

// AdminConfig is the singleton administrative record created by Init.
type AdminConfig struct {
	Paused   bool   `json:"paused"`
	NextSlot uint64 `json:"next_slot"`
}

// AssetSlot is the registry record for one asset type and its custody pool.
type AssetSlot struct {
	Asset          AssetType `json:"asset"`
	SlotID         SlotID    `json:"slot_id"`
	CustodyBalance Amount    `json:"custody_balance"`
}

// UserLedger holds one user's deposited amounts keyed by slot id.
type UserLedger struct {
	Owner   Address           `json:"owner"`
	Entries map[SlotID]Amount `json:"entries"`
}

// LedgerEntry is a single (owner, slot) balance.
type LedgerEntry struct {
	Owner  Address `json:"owner"`
	SlotID SlotID  `json:"slot_id"`
	Amount Amount  `json:"amount"`
}

// KnownUsers is the append-only roster of addresses that ever touched the vault.
type KnownUsers struct {
	Users []Address `json:"users"`
}

// Contains reports whether addr is already on the roster.
func (k KnownUsers) Contains(addr Address) bool {
	for _, user := range k.Users {
		if user == addr {
			return true
		}
	}
	return false
}

// SortedEntries returns the ledger entries in ascending slot order.
func (l UserLedger) SortedEntries() []LedgerEntry {
	out := make([]LedgerEntry, 0, len(l.Entries))
	for slotID, amount := range l.Entries {
		out = append(out, LedgerEntry{Owner: l.Owner, SlotID: slotID, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out
}

// Clone returns a deep copy of the ledger.
func (l UserLedger) Clone() UserLedger {
	entries := make(map[SlotID]Amount, len(l.Entries))
	for slotID, amount := range l.Entries {
		entries[slotID] = amount
	}
	return UserLedger{Owner: l.Owner, Entries: entries}
}

// OperationKind labels a committed vault operation.
type OperationKind string

const (
	OperationInit          OperationKind = "init"
	OperationRegisterAsset OperationKind = "register_asset"
	OperationDeposit       OperationKind = "deposit"
	OperationWithdraw      OperationKind = "withdraw"
	OperationPause         OperationKind = "pause"
	OperationUnpause       OperationKind = "unpause"
)

// Receipt describes a committed deposit or withdraw.
type Receipt struct {
	OperationID string        `json:"operation_id"`
	Kind        OperationKind `json:"kind"`
	Caller      Address       `json:"caller"`
	Asset       AssetType     `json:"asset"`
	SlotID      SlotID        `json:"slot_id"`
	Amount      Amount        `json:"amount"`
	Balance     Amount        `json:"balance"`
	Custody     Amount        `json:"custody"`
	Revision    uint64        `json:"revision"`
}

// Status is a read-only summary of the vault.
type Status struct {
	Root        Address `json:"root"`
	Initialized bool    `json:"initialized"`
	Paused      bool    `json:"paused"`
	NextSlot    uint64  `json:"next_slot"`
	Revision    uint64  `json:"revision"`
	AssetCount  int     `json:"asset_count"`
	UserCount   int     `json:"user_count"`
}

// AuditReport is the result of a conservation check over every asset.
type AuditReport struct {
	OK     bool         `json:"ok"`
	Assets []AuditAsset `json:"assets"`
}

// AuditAsset compares one custody pool against the sum of its ledger entries.
type AuditAsset struct {
	Asset      AssetType `json:"asset"`
	SlotID     SlotID    `json:"slot_id"`
	Custody    Amount    `json:"custody"`
	LedgerSum  Amount    `json:"ledger_sum"`
	Consistent bool      `json:"consistent"`
}
