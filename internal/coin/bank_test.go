package coin

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"custody-vault/go-backend/internal/domains/vault/model"
)

func TestTransferMovesFullAmount(t *testing.T) {
	b := NewBank()
	if _, err := b.Mint("USDC", "alice", 100); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if err := b.Transfer(context.Background(), "USDC", "alice", "bob", 60); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := b.BalanceOf("USDC", "alice"); got != 40 {
		t.Fatalf("expected alice 40, got %d", got)
	}
	if got := b.BalanceOf("USDC", "bob"); got != 60 {
		t.Fatalf("expected bob 60, got %d", got)
	}
}

func TestTransferInsufficientFundsChangesNothing(t *testing.T) {
	b := NewBank()
	if _, err := b.Mint("USDC", "alice", 10); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	err := b.Transfer(context.Background(), "USDC", "alice", "bob", 11)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if b.BalanceOf("USDC", "alice") != 10 || b.BalanceOf("USDC", "bob") != 0 {
		t.Fatal("failed transfer moved funds")
	}
}

func TestMintOverflowFails(t *testing.T) {
	b := NewBank()
	if _, err := b.Mint("USDC", "alice", math.MaxUint64); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := b.Mint("USDC", "alice", 1); !errors.Is(err, model.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestSelfTransferRejected(t *testing.T) {
	b := NewBank()
	if err := b.Transfer(context.Background(), "USDC", "alice", "alice", 0); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
}

func TestPersistentBankReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.enc")
	b, err := NewPersistentBank(path, "pass")
	if err != nil {
		t.Fatalf("new bank failed: %v", err)
	}
	b.sealer = b.sealer.Lightweight()
	if _, err := b.Mint("EURC", "alice", 7); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if err := b.Transfer(context.Background(), "EURC", "alice", "bob", 3); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	reloaded, err := NewPersistentBank(path, "pass")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.BalanceOf("EURC", "alice") != 4 || reloaded.BalanceOf("EURC", "bob") != 3 {
		t.Fatalf("unexpected reloaded balances: alice=%d bob=%d", reloaded.BalanceOf("EURC", "alice"), reloaded.BalanceOf("EURC", "bob"))
	}
}
