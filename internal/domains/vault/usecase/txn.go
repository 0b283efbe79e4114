package usecase

import "custody-vault/go-backend/internal/domains/vault/model"

type entryKey struct {
	owner  model.Address
	slotID model.SlotID
}

// Txn is a copy-on-write view over the committed state. Reads fall through to
// the base state; writes are kept in the overlay and surface only through
// Change. Dropping a Txn discards every write.
type Txn struct {
	base *model.State

	init        bool
	config      model.AdminConfig
	configDirty bool

	slots     map[model.AssetType]model.AssetSlot
	slotOrder []model.AssetType

	ledgers []model.Address
	created map[model.Address]struct{}

	entries    map[entryKey]model.Amount
	entryOrder []entryKey
}

func newTxn(base *model.State) *Txn {
	return &Txn{
		base:    base,
		config:  base.Config,
		slots:   make(map[model.AssetType]model.AssetSlot),
		created: make(map[model.Address]struct{}),
		entries: make(map[entryKey]model.Amount),
	}
}

func (t *Txn) Initialized() bool {
	return t.init || t.base.Initialized
}

func (t *Txn) markInitialized() {
	t.init = true
}

func (t *Txn) Config() model.AdminConfig {
	return t.config
}

func (t *Txn) setConfig(cfg model.AdminConfig) {
	t.config = cfg
	t.configDirty = true
}

func (t *Txn) Slot(asset model.AssetType) (model.AssetSlot, bool) {
	if slot, ok := t.slots[asset]; ok {
		return slot, true
	}
	slot, ok := t.base.Slots[asset]
	return slot, ok
}

func (t *Txn) putSlot(slot model.AssetSlot) {
	if _, seen := t.slots[slot.Asset]; !seen {
		t.slotOrder = append(t.slotOrder, slot.Asset)
	}
	t.slots[slot.Asset] = slot
}

func (t *Txn) HasLedger(owner model.Address) bool {
	if _, ok := t.created[owner]; ok {
		return true
	}
	_, ok := t.base.Ledgers[owner]
	return ok
}

func (t *Txn) createLedger(owner model.Address) {
	t.created[owner] = struct{}{}
	t.ledgers = append(t.ledgers, owner)
}

func (t *Txn) Entry(owner model.Address, slotID model.SlotID) (model.Amount, bool) {
	key := entryKey{owner: owner, slotID: slotID}
	if amount, ok := t.entries[key]; ok {
		return amount, true
	}
	ledger, ok := t.base.Ledgers[owner]
	if !ok {
		return 0, false
	}
	amount, ok := ledger.Entries[slotID]
	return amount, ok
}

func (t *Txn) putEntry(owner model.Address, slotID model.SlotID, amount model.Amount) {
	key := entryKey{owner: owner, slotID: slotID}
	if _, seen := t.entries[key]; !seen {
		t.entryOrder = append(t.entryOrder, key)
	}
	t.entries[key] = amount
}

// Change returns the writes recorded so far, stamped with revision and kind.
func (t *Txn) Change(revision uint64, kind model.OperationKind) model.Change {
	change := model.Change{
		Revision: revision,
		Kind:     kind,
		Init:     t.init,
	}
	if t.configDirty {
		cfg := t.config
		change.Config = &cfg
	}
	for _, asset := range t.slotOrder {
		change.Slots = append(change.Slots, t.slots[asset])
	}
	if len(t.ledgers) > 0 {
		change.Ledgers = append([]model.Address(nil), t.ledgers...)
		change.NewUsers = append([]model.Address(nil), t.ledgers...)
	}
	for _, key := range t.entryOrder {
		change.Entries = append(change.Entries, model.LedgerEntry{
			Owner:  key.owner,
			SlotID: key.slotID,
			Amount: t.entries[key],
		})
	}
	return change
}
