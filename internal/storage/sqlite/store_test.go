package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"custody-vault/go-backend/internal/domains/vault/model"
)

func openTempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func initChange() model.Change {
	return model.Change{Revision: 1, Kind: model.OperationInit, Init: true, Config: &model.AdminConfig{}}
}

func registerChange() model.Change {
	return model.Change{
		Revision: 2,
		Kind:     model.OperationRegisterAsset,
		Config:   &model.AdminConfig{NextSlot: 1},
		Slots:    []model.AssetSlot{{Asset: "USDC", SlotID: 0}},
	}
}

func depositChange(amount model.Amount) model.Change {
	return model.Change{
		Revision: 3,
		Kind:     model.OperationDeposit,
		Slots:    []model.AssetSlot{{Asset: "USDC", SlotID: 0, CustodyBalance: amount}},
		Ledgers:  []model.Address{"vlt1alice"},
		Entries:  []model.LedgerEntry{{Owner: "vlt1alice", SlotID: 0, Amount: amount}},
		NewUsers: []model.Address{"vlt1alice"},
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestLoadEmptyStore(t *testing.T) {
	store, _ := openTempStore(t)
	state, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if state.Initialized || state.Revision != 0 || len(state.Slots) != 0 {
		t.Fatalf("expected empty state, got %+v", state)
	}
}

func TestCommitPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	store, path := openTempStore(t)
	amount := model.Amount(math.MaxUint64)
	for _, change := range []model.Change{initChange(), registerChange(), depositChange(amount)} {
		if err := store.Commit(ctx, change); err != nil {
			t.Fatalf("commit %s failed: %v", change.Kind, err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	state, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !state.Initialized || state.Revision != 3 || state.Config.NextSlot != 1 {
		t.Fatalf("unexpected header: %+v", state)
	}
	if state.Slots["USDC"].CustodyBalance != amount {
		t.Fatalf("expected custody %d, got %d", amount, state.Slots["USDC"].CustodyBalance)
	}
	if state.Ledgers["vlt1alice"].Entries[0] != amount {
		t.Fatalf("expected ledger entry %d, got %+v", amount, state.Ledgers["vlt1alice"])
	}
	if len(state.KnownUsers.Users) != 1 || state.KnownUsers.Users[0] != "vlt1alice" {
		t.Fatalf("unexpected roster: %+v", state.KnownUsers)
	}
}

func TestCommitRejectsRevisionGap(t *testing.T) {
	ctx := context.Background()
	store, _ := openTempStore(t)
	if err := store.Commit(ctx, registerChange()); !errors.Is(err, model.ErrRevisionConflict) {
		t.Fatalf("expected ErrRevisionConflict, got %v", err)
	}
}

func TestCommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store, _ := openTempStore(t)
	if err := store.Commit(ctx, initChange()); err != nil {
		t.Fatalf("commit init failed: %v", err)
	}
	if err := store.Commit(ctx, registerChange()); err != nil {
		t.Fatalf("commit register failed: %v", err)
	}
	broken := depositChange(5)
	broken.Entries = append(broken.Entries, model.LedgerEntry{Owner: "vlt1ghost", SlotID: 0, Amount: 1})
	if err := store.Commit(ctx, broken); err == nil {
		t.Fatal("expected foreign key failure for entry without ledger")
	}
	state, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if state.Revision != 2 || state.Slots["USDC"].CustodyBalance != 0 || len(state.Ledgers) != 0 {
		t.Fatalf("failed commit leaked writes: %+v", state)
	}
}

func TestCommitRejectsDuplicateSlot(t *testing.T) {
	ctx := context.Background()
	store, _ := openTempStore(t)
	if err := store.Commit(ctx, initChange()); err != nil {
		t.Fatalf("commit init failed: %v", err)
	}
	if err := store.Commit(ctx, registerChange()); err != nil {
		t.Fatalf("commit register failed: %v", err)
	}
	dup := model.Change{
		Revision: 3,
		Kind:     model.OperationRegisterAsset,
		Slots:    []model.AssetSlot{{Asset: "EURC", SlotID: 0}},
	}
	if err := store.Commit(ctx, dup); !errors.Is(err, model.ErrDuplicateAsset) {
		t.Fatalf("expected ErrDuplicateAsset, got %v", err)
	}
}

func TestCommitCanceledContext(t *testing.T) {
	store, _ := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Commit(ctx, initChange()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
