package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/securestore"
)

const snapshotLabel = "vault-state"

// SnapshotStore keeps the vault state in memory and, when configured, mirrors
// every commit to a sealed snapshot file. The in-memory copy is swapped only
// after the file write succeeded.
type SnapshotStore struct {
	mu     sync.Mutex
	path   string
	sealer *securestore.Sealer
	state  model.State
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{state: model.NewState()}
}

// Configure enables file persistence at path sealed with passphrase.
func (s *SnapshotStore) Configure(path, passphrase string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("snapshot path is required")
	}
	sealer, err := securestore.NewSealer(passphrase, snapshotLabel)
	if err != nil {
		return fmt.Errorf("snapshot store: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	s.sealer = sealer
	return nil
}

func (s *SnapshotStore) configured() bool {
	return s.path != "" && s.sealer != nil
}

func (s *SnapshotStore) Load(ctx context.Context) (model.State, error) {
	if err := ctx.Err(); err != nil {
		return model.State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.configured() {
		return s.state.Clone(), nil
	}
	var persisted persistedVaultState
	if err := s.sealer.ReadJSON(s.path, &persisted); err != nil {
		if securestore.IsNotExist(err) {
			empty := model.NewState()
			if err := s.persistLocked(empty); err != nil {
				return model.State{}, err
			}
			s.state = empty
			return empty.Clone(), nil
		}
		return model.State{}, err
	}
	if persisted.Version != 1 {
		return model.State{}, errors.New("vault state persistence payload is invalid")
	}
	state := normalizeState(persisted.State)
	if err := state.Validate(); err != nil {
		return model.State{}, err
	}
	s.state = state
	return state.Clone(), nil
}

func (s *SnapshotStore) Commit(ctx context.Context, change model.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.state.Apply(change)
	if err != nil {
		return err
	}
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *SnapshotStore) persistLocked(state model.State) error {
	if !s.configured() {
		return nil
	}
	return s.sealer.WriteJSON(s.path, persistedVaultState{Version: 1, State: state})
}

// normalizeState replaces nil collections left by JSON decoding.
func normalizeState(state model.State) model.State {
	if state.Slots == nil {
		state.Slots = make(map[model.AssetType]model.AssetSlot)
	}
	if state.Ledgers == nil {
		state.Ledgers = make(map[model.Address]model.UserLedger)
	}
	for owner, ledger := range state.Ledgers {
		if ledger.Entries == nil {
			ledger.Entries = make(map[model.SlotID]model.Amount)
			state.Ledgers[owner] = ledger
		}
	}
	return state
}

type persistedVaultState struct {
	Version int         `json:"version"`
	State   model.State `json:"state"`
}
