package usecase

import "custody-vault/go-backend/internal/domains/vault/model"

// UserLedgers is the per-user balance book. Ledgers are created on first
// touch and never removed; an absent entry reads as zero.
type UserLedgers struct {
	txn *Txn
}

func NewUserLedgers(txn *Txn) UserLedgers {
	return UserLedgers{txn: txn}
}

// EnsureExists creates the user's ledger and roster entry on first call only.
func (l UserLedgers) EnsureExists(user model.Address) bool {
	if l.txn.HasLedger(user) {
		return false
	}
	l.txn.createLedger(user)
	return true
}

func (l UserLedgers) Balance(user model.Address, slotID model.SlotID) model.Amount {
	amount, _ := l.txn.Entry(user, slotID)
	return amount
}

func (l UserLedgers) Increase(user model.Address, slotID model.SlotID, amount model.Amount) (model.Amount, error) {
	next, err := l.Balance(user, slotID).Add(amount)
	if err != nil {
		return 0, err
	}
	l.txn.putEntry(user, slotID, next)
	return next, nil
}

// Decrease keeps a zero-valued entry when the balance is drained.
func (l UserLedgers) Decrease(user model.Address, slotID model.SlotID, amount model.Amount) (model.Amount, error) {
	next, ok := l.Balance(user, slotID).Sub(amount)
	if !ok {
		return 0, model.ErrInsufficientBalance
	}
	l.txn.putEntry(user, slotID, next)
	return next, nil
}
