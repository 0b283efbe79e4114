package vault

import (
	"context"

	vaultusecase "custody-vault/go-backend/internal/domains/vault/usecase"
)

type Service = vaultusecase.Service
type Deps = vaultusecase.Deps
type BalanceView = vaultusecase.BalanceView
type LedgerView = vaultusecase.LedgerView

func NewService(ctx context.Context, deps Deps) (*Service, error) {
	return vaultusecase.NewService(ctx, deps)
}
