// Package coin provides the in-process fungible asset ledger the vault moves
// external funds through. Every call is atomic.
package coin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/domains/vault/ports"
	"custody-vault/go-backend/internal/securestore"
)

const bankLabel = "coin-bank"

var (
	ErrInsufficientFunds = ports.ErrInsufficientFunds
	ErrSelfTransfer      = errors.New("transfer source and destination are equal")
)

type accounts map[model.AssetType]map[model.Address]model.Amount

type Bank struct {
	mu       sync.RWMutex
	balances accounts
	path     string
	sealer   *securestore.Sealer
}

func NewBank() *Bank {
	return &Bank{balances: make(accounts)}
}

// NewPersistentBank loads balances from the sealed file at path, if present,
// and writes every change back before it becomes visible.
func NewPersistentBank(path, passphrase string) (*Bank, error) {
	sealer, err := securestore.NewSealer(passphrase, bankLabel)
	if err != nil {
		return nil, fmt.Errorf("coin bank: %w", err)
	}
	b := &Bank{balances: make(accounts), path: path, sealer: sealer}
	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

// Mint creates amount of asset in the to account.
func (b *Bank) Mint(asset model.AssetType, to model.Address, amount model.Amount) (model.Amount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := b.cloneAsset(asset)
	balance, err := next[asset][to].Add(amount)
	if err != nil {
		return 0, err
	}
	next[asset][to] = balance
	if err := b.persistLocked(next); err != nil {
		return 0, err
	}
	b.balances = next
	return balance, nil
}

func (b *Bank) Transfer(ctx context.Context, asset model.AssetType, from, to model.Address, amount model.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if from == to {
		return ErrSelfTransfer
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	next := b.cloneAsset(asset)
	remaining, ok := next[asset][from].Sub(amount)
	if !ok {
		return fmt.Errorf("%w: %s holds %d %s, needs %d", ErrInsufficientFunds, from, next[asset][from], asset, amount)
	}
	credited, err := next[asset][to].Add(amount)
	if err != nil {
		return err
	}
	next[asset][from] = remaining
	next[asset][to] = credited
	if err := b.persistLocked(next); err != nil {
		return err
	}
	b.balances = next
	return nil
}

func (b *Bank) BalanceOf(asset model.AssetType, owner model.Address) model.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[asset][owner]
}

// cloneAsset copies the outer map and the accounts of asset only; other
// assets' inner maps are shared and never written in place.
func (b *Bank) cloneAsset(asset model.AssetType) accounts {
	next := make(accounts, len(b.balances)+1)
	for k, v := range b.balances {
		next[k] = v
	}
	inner := make(map[model.Address]model.Amount, len(b.balances[asset])+1)
	for owner, amount := range b.balances[asset] {
		inner[owner] = amount
	}
	next[asset] = inner
	return next
}

func (b *Bank) load() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.path == "" {
		return nil
	}
	var snapshot persistedBank
	if err := b.sealer.ReadJSON(b.path, &snapshot); err != nil {
		if securestore.IsNotExist(err) {
			return nil
		}
		return err
	}
	if snapshot.Balances != nil {
		b.balances = snapshot.Balances
	}
	return nil
}

func (b *Bank) persistLocked(next accounts) error {
	if b.path == "" {
		return nil
	}
	return b.sealer.WriteJSON(b.path, persistedBank{Balances: next})
}

type persistedBank struct {
	Balances accounts `json:"balances"`
}
