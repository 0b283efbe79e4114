package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/domains/vault/policy"
	"custody-vault/go-backend/internal/domains/vault/ports"

	"github.com/mr-tron/base58/base58"
)

var ErrServiceNotConfigured = errors.New("vault service is not configured")

// Deps are the collaborators of a vault Service.
type Deps struct {
	Root  model.Address
	Store ports.StateStore
	Coins ports.CoinTransfer

	Observer   ports.Observer
	GenerateID func() (string, error)
	LogInfo    func(message string, args ...any)
	LogWarn    func(message string, args ...any)
}

// Service executes vault operations as serialized all-or-nothing transitions.
type Service struct {
	root      model.Address
	custodian model.Address
	store     ports.StateStore
	coins     ports.CoinTransfer

	observer   ports.Observer
	generateID func() (string, error)
	logInfo    func(message string, args ...any)
	logWarn    func(message string, args ...any)

	mu    sync.RWMutex
	state model.State
}

type pendingTransfer struct {
	asset  model.AssetType
	from   model.Address
	to     model.Address
	amount model.Amount
}

// NewService loads the committed state from the store and validates it.
func NewService(ctx context.Context, deps Deps) (*Service, error) {
	if deps.Store == nil || deps.Coins == nil {
		return nil, ErrServiceNotConfigured
	}
	root, err := policy.NormalizeAddress(string(deps.Root))
	if err != nil {
		return nil, fmt.Errorf("system root: %w", err)
	}
	state, err := deps.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vault state: %w", err)
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("validate vault state: %w", err)
	}
	s := &Service{
		root:       root,
		custodian:  policy.CustodyAddress(root),
		store:      deps.Store,
		coins:      deps.Coins,
		observer:   deps.Observer,
		generateID: deps.GenerateID,
		logInfo:    deps.LogInfo,
		logWarn:    deps.LogWarn,
		state:      state,
	}
	if s.generateID == nil {
		s.generateID = newOperationID
	}
	return s, nil
}

func (s *Service) Root() model.Address {
	return s.root
}

// Custodian is the external account holding every custodied coin.
func (s *Service) Custodian() model.Address {
	return s.custodian
}

func (s *Service) Init(ctx context.Context, caller model.Address) (model.Status, error) {
	caller, err := s.normalizeCaller(model.OperationInit, caller)
	if err != nil {
		return model.Status{}, err
	}
	_, err = s.execute(ctx, model.OperationInit, func(txn *Txn) (*pendingTransfer, error) {
		if err := policy.RequireRoot(s.root, caller); err != nil {
			return nil, err
		}
		if txn.Initialized() {
			return nil, model.ErrAlreadyInitialized
		}
		txn.markInitialized()
		txn.setConfig(model.AdminConfig{Paused: false, NextSlot: 0})
		return nil, nil
	})
	if err != nil {
		return model.Status{}, err
	}
	return s.Status(), nil
}

func (s *Service) RegisterAsset(ctx context.Context, caller model.Address, asset model.AssetType) (model.AssetSlot, error) {
	caller, err := s.normalizeCaller(model.OperationRegisterAsset, caller)
	if err != nil {
		return model.AssetSlot{}, err
	}
	asset, err = policy.NormalizeAssetType(string(asset))
	if err != nil {
		s.observeFailure(model.OperationRegisterAsset, err)
		return model.AssetSlot{}, err
	}
	var slot model.AssetSlot
	_, err = s.execute(ctx, model.OperationRegisterAsset, func(txn *Txn) (*pendingTransfer, error) {
		if !txn.Initialized() {
			return nil, model.ErrNotInitialized
		}
		registry := NewAssetRegistry(txn, s.root)
		if _, err := registry.Register(caller, asset); err != nil {
			return nil, err
		}
		var err error
		slot, err = registry.Lookup(asset)
		return nil, err
	})
	if err != nil {
		return model.AssetSlot{}, err
	}
	return slot, nil
}

// Deposit moves amount from the caller's external account into custody and
// credits the caller's ledger entry.
func (s *Service) Deposit(ctx context.Context, caller model.Address, asset model.AssetType, amount model.Amount) (model.Receipt, error) {
	return s.move(ctx, model.OperationDeposit, caller, asset, amount)
}

// Withdraw debits the caller's ledger entry and moves amount from custody to
// the caller's external account.
func (s *Service) Withdraw(ctx context.Context, caller model.Address, asset model.AssetType, amount model.Amount) (model.Receipt, error) {
	return s.move(ctx, model.OperationWithdraw, caller, asset, amount)
}

func (s *Service) Pause(ctx context.Context, caller model.Address) (model.Status, error) {
	return s.setPaused(ctx, model.OperationPause, caller, true)
}

func (s *Service) Unpause(ctx context.Context, caller model.Address) (model.Status, error) {
	return s.setPaused(ctx, model.OperationUnpause, caller, false)
}

func (s *Service) setPaused(ctx context.Context, kind model.OperationKind, caller model.Address, paused bool) (model.Status, error) {
	caller, err := s.normalizeCaller(kind, caller)
	if err != nil {
		return model.Status{}, err
	}
	_, err = s.execute(ctx, kind, func(txn *Txn) (*pendingTransfer, error) {
		if !txn.Initialized() {
			return nil, model.ErrNotInitialized
		}
		return nil, NewPauseGate(txn, s.root).SetPaused(caller, paused)
	})
	if err != nil {
		return model.Status{}, err
	}
	return s.Status(), nil
}

func (s *Service) move(ctx context.Context, kind model.OperationKind, caller model.Address, asset model.AssetType, amount model.Amount) (model.Receipt, error) {
	caller, err := s.normalizeCaller(kind, caller)
	if err != nil {
		return model.Receipt{}, err
	}
	asset, err = policy.NormalizeAssetType(string(asset))
	if err != nil {
		s.observeFailure(kind, err)
		return model.Receipt{}, err
	}
	operationID, err := s.generateID()
	if err != nil {
		return model.Receipt{}, err
	}
	receipt := model.Receipt{
		OperationID: operationID,
		Kind:        kind,
		Caller:      caller,
		Asset:       asset,
		Amount:      amount,
	}
	next, err := s.execute(ctx, kind, func(txn *Txn) (*pendingTransfer, error) {
		if !txn.Initialized() {
			return nil, model.ErrNotInitialized
		}
		if err := NewPauseGate(txn, s.root).RequireUnpaused(); err != nil {
			return nil, err
		}
		registry := NewAssetRegistry(txn, s.root)
		slot, err := registry.Lookup(asset)
		if err != nil {
			return nil, err
		}
		ledgers := NewUserLedgers(txn)
		ledgers.EnsureExists(caller)

		transfer := &pendingTransfer{asset: asset, amount: amount}
		switch kind {
		case model.OperationDeposit:
			transfer.from, transfer.to = caller, s.custodian
			if receipt.Balance, err = ledgers.Increase(caller, slot.SlotID, amount); err != nil {
				return nil, err
			}
			if slot, err = registry.Credit(asset, amount); err != nil {
				return nil, err
			}
		case model.OperationWithdraw:
			transfer.from, transfer.to = s.custodian, caller
			if receipt.Balance, err = ledgers.Decrease(caller, slot.SlotID, amount); err != nil {
				return nil, err
			}
			if slot, err = registry.Debit(asset, amount); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unsupported vault movement %q", kind)
		}
		receipt.SlotID = slot.SlotID
		receipt.Custody = slot.CustodyBalance
		if amount == 0 {
			return nil, nil
		}
		return transfer, nil
	})
	if err != nil {
		return model.Receipt{}, err
	}
	receipt.Revision = next.Revision
	return receipt, nil
}

// execute runs build against a fresh Txn under the write lock. The external
// transfer runs only after every ledger check passed; the store commit runs
// only after the transfer succeeded. A failed commit is compensated by the
// reverse transfer so that both sides stay untouched.
func (s *Service) execute(ctx context.Context, kind model.OperationKind, build func(txn *Txn) (*pendingTransfer, error)) (model.State, error) {
	if err := ctx.Err(); err != nil {
		return model.State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := newTxn(&s.state)
	transfer, err := build(txn)
	if err != nil {
		s.observeFailure(kind, err)
		return model.State{}, err
	}
	change := txn.Change(s.state.Revision+1, kind)
	if change.Empty() && transfer == nil {
		return s.state, nil
	}
	next, err := s.state.Apply(change)
	if err != nil {
		s.observeFailure(kind, err)
		return model.State{}, err
	}

	// From here on the operation runs to completion regardless of ctx.
	runCtx := context.WithoutCancel(ctx)
	if transfer != nil {
		if err := s.coins.Transfer(runCtx, transfer.asset, transfer.from, transfer.to, transfer.amount); err != nil {
			err = fmt.Errorf("%w: %w", model.ErrTransferFailed, err)
			s.observeFailure(kind, err)
			return model.State{}, err
		}
	}
	if err := s.store.Commit(runCtx, change); err != nil {
		err = fmt.Errorf("commit %s: %w", kind, err)
		if transfer != nil {
			s.compensate(runCtx, kind, transfer)
		}
		s.observeFailure(kind, err)
		return model.State{}, err
	}
	s.state = next

	var (
		asset   model.AssetType
		amount  model.Amount
		custody model.Amount
	)
	if transfer != nil {
		asset, amount = transfer.asset, transfer.amount
		custody = next.Slots[asset].CustodyBalance
	} else if len(change.Slots) == 1 {
		asset = change.Slots[0].Asset
		custody = change.Slots[0].CustodyBalance
	}
	if s.observer != nil {
		s.observer.OperationCommitted(kind, asset, amount, custody)
	}
	s.log(s.logInfo, "vault operation committed", "kind", string(kind), "revision", next.Revision, "asset", string(asset), "amount", uint64(amount))
	return next, nil
}

func (s *Service) compensate(ctx context.Context, kind model.OperationKind, transfer *pendingTransfer) {
	if err := s.coins.Transfer(ctx, transfer.asset, transfer.to, transfer.from, transfer.amount); err != nil {
		s.log(s.logWarn, "vault compensation failed", "kind", string(kind), "asset", string(transfer.asset), "amount", uint64(transfer.amount), "error", err.Error())
		return
	}
	s.log(s.logWarn, "vault transfer compensated", "kind", string(kind), "asset", string(transfer.asset), "amount", uint64(transfer.amount))
}

func (s *Service) normalizeCaller(kind model.OperationKind, caller model.Address) (model.Address, error) {
	normalized, err := policy.NormalizeAddress(string(caller))
	if err != nil {
		s.observeFailure(kind, err)
		return "", err
	}
	return normalized, nil
}

func (s *Service) observeFailure(kind model.OperationKind, err error) {
	if s.observer != nil {
		s.observer.OperationFailed(kind, err)
	}
}

func (s *Service) log(fn func(string, ...any), message string, args ...any) {
	if fn != nil {
		fn(message, args...)
	}
}

func newOperationID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "op_" + base58.Encode(buf), nil
}
