package usecase

import (
	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/domains/vault/policy"
)

type PauseGate struct {
	txn  *Txn
	root model.Address
}

func NewPauseGate(txn *Txn, root model.Address) PauseGate {
	return PauseGate{txn: txn, root: root}
}

// SetPaused overwrites the flag; setting the current value is a successful no-op.
func (g PauseGate) SetPaused(caller model.Address, paused bool) error {
	if err := policy.RequireRoot(g.root, caller); err != nil {
		return err
	}
	cfg := g.txn.Config()
	if cfg.Paused == paused {
		return nil
	}
	cfg.Paused = paused
	g.txn.setConfig(cfg)
	return nil
}

func (g PauseGate) RequireUnpaused() error {
	return policy.RequireUnpaused(g.txn.Config())
}
