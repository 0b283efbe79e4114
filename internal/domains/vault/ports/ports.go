package ports

import (
	"context"

	"custody-vault/go-backend/internal/domains/vault/model"
)

// StateStore persists vault state. Commit must apply the whole Change or
// nothing, and must reject a Change whose revision does not follow the
// stored one.
type StateStore interface {
	Load(ctx context.Context) (model.State, error)
	Commit(ctx context.Context, change model.Change) error
}

// CoinTransfer moves raw asset amounts between external accounts. Each call
// is atomic: it either moves the full amount or returns an error.
type CoinTransfer interface {
	Transfer(ctx context.Context, asset model.AssetType, from, to model.Address, amount model.Amount) error
}

// Observer receives committed and failed operations for metrics.
type Observer interface {
	OperationCommitted(kind model.OperationKind, asset model.AssetType, amount model.Amount, custody model.Amount)
	OperationFailed(kind model.OperationKind, err error)
}
