package rpc

import (
	"context"
	"encoding/json"

	"custody-vault/go-backend/internal/domains/rpckit"
	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/domains/vault/transport"
	vaultusecase "custody-vault/go-backend/internal/domains/vault/usecase"
)

// VaultService is the subset of the vault service reachable over RPC.
type VaultService interface {
	Init(ctx context.Context, caller model.Address) (model.Status, error)
	RegisterAsset(ctx context.Context, caller model.Address, asset model.AssetType) (model.AssetSlot, error)
	Deposit(ctx context.Context, caller model.Address, asset model.AssetType, amount model.Amount) (model.Receipt, error)
	Withdraw(ctx context.Context, caller model.Address, asset model.AssetType, amount model.Amount) (model.Receipt, error)
	Pause(ctx context.Context, caller model.Address) (model.Status, error)
	Unpause(ctx context.Context, caller model.Address) (model.Status, error)

	Status() model.Status
	Balance(user model.Address, asset model.AssetType) (vaultusecase.BalanceView, error)
	Ledger(user model.Address) (vaultusecase.LedgerView, error)
	Slot(asset model.AssetType) (model.AssetSlot, error)
	Assets() []model.AssetSlot
	KnownUsers() []model.Address
	Audit() (model.AuditReport, error)
}

// CoinService exposes the external asset accounts. It may be nil when the
// daemon is wired to a foreign bank.
type CoinService interface {
	Mint(caller, to model.Address, asset model.AssetType, amount model.Amount) (model.Amount, error)
	BalanceOf(owner model.Address, asset model.AssetType) (model.Amount, error)
}

type callerParams struct {
	Caller string `json:"caller"`
}

type assetParams struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
}

type moveParams struct {
	Caller string       `json:"caller"`
	Asset  string       `json:"asset"`
	Amount *amountParam `json:"amount"`
}

func (p moveParams) validate() error {
	if p.Amount == nil {
		return errInvalidParams
	}
	return nil
}

type balanceParams struct {
	User  string `json:"user"`
	Asset string `json:"asset"`
}

type userParams struct {
	User string `json:"user"`
}

type custodyParams struct {
	Asset string `json:"asset"`
}

type mintParams struct {
	Caller string       `json:"caller"`
	To     string       `json:"to"`
	Asset  string       `json:"asset"`
	Amount *amountParam `json:"amount"`
}

func (p mintParams) validate() error {
	if p.Amount == nil {
		return errInvalidParams
	}
	return nil
}

type coinBalanceParams struct {
	Owner string `json:"owner"`
	Asset string `json:"asset"`
}

// Dispatch handles vault.* and coin.* methods. The boolean is false when
// method belongs to another domain.
func Dispatch(ctx context.Context, service VaultService, coins CoinService, method string, rawParams json.RawMessage) (any, *rpckit.Error, bool) {
	switch method {
	case transport.MethodVaultInit:
		result, rpcErr := callWithParams(rawParams, func(p callerParams) (any, error) {
			return service.Init(ctx, model.Address(p.Caller))
		})
		return result, rpcErr, true
	case transport.MethodVaultRegisterAsset:
		result, rpcErr := callWithParams(rawParams, func(p assetParams) (any, error) {
			return service.RegisterAsset(ctx, model.Address(p.Caller), model.AssetType(p.Asset))
		})
		return result, rpcErr, true
	case transport.MethodVaultDeposit:
		result, rpcErr := callWithParams(rawParams, func(p moveParams) (any, error) {
			return service.Deposit(ctx, model.Address(p.Caller), model.AssetType(p.Asset), p.Amount.value())
		})
		return result, rpcErr, true
	case transport.MethodVaultWithdraw:
		result, rpcErr := callWithParams(rawParams, func(p moveParams) (any, error) {
			return service.Withdraw(ctx, model.Address(p.Caller), model.AssetType(p.Asset), p.Amount.value())
		})
		return result, rpcErr, true
	case transport.MethodVaultPause:
		result, rpcErr := callWithParams(rawParams, func(p callerParams) (any, error) {
			return service.Pause(ctx, model.Address(p.Caller))
		})
		return result, rpcErr, true
	case transport.MethodVaultUnpause:
		result, rpcErr := callWithParams(rawParams, func(p callerParams) (any, error) {
			return service.Unpause(ctx, model.Address(p.Caller))
		})
		return result, rpcErr, true
	case transport.MethodVaultBalance:
		result, rpcErr := callWithParams(rawParams, func(p balanceParams) (any, error) {
			return service.Balance(model.Address(p.User), model.AssetType(p.Asset))
		})
		return result, rpcErr, true
	case transport.MethodVaultLedger:
		result, rpcErr := callWithParams(rawParams, func(p userParams) (any, error) {
			return service.Ledger(model.Address(p.User))
		})
		return result, rpcErr, true
	case transport.MethodVaultCustody:
		result, rpcErr := callWithParams(rawParams, func(p custodyParams) (any, error) {
			return service.Slot(model.AssetType(p.Asset))
		})
		return result, rpcErr, true
	case transport.MethodVaultAssets:
		result, rpcErr := callWithoutParams(rawParams, func() (any, error) {
			return service.Assets(), nil
		})
		return result, rpcErr, true
	case transport.MethodVaultUsers:
		result, rpcErr := callWithoutParams(rawParams, func() (any, error) {
			return service.KnownUsers(), nil
		})
		return result, rpcErr, true
	case transport.MethodVaultStatus:
		result, rpcErr := callWithoutParams(rawParams, func() (any, error) {
			return service.Status(), nil
		})
		return result, rpcErr, true
	case transport.MethodVaultAudit:
		result, rpcErr := callWithoutParams(rawParams, func() (any, error) {
			return service.Audit()
		})
		return result, rpcErr, true
	case transport.MethodCoinMint:
		if coins == nil {
			return nil, rpckit.MethodNotFound(), true
		}
		result, rpcErr := callWithParams(rawParams, func(p mintParams) (any, error) {
			balance, err := coins.Mint(model.Address(p.Caller), model.Address(p.To), model.AssetType(p.Asset), p.Amount.value())
			if err != nil {
				return nil, err
			}
			return map[string]model.Amount{"balance": balance}, nil
		})
		return result, rpcErr, true
	case transport.MethodCoinBalance:
		if coins == nil {
			return nil, rpckit.MethodNotFound(), true
		}
		result, rpcErr := callWithParams(rawParams, func(p coinBalanceParams) (any, error) {
			balance, err := coins.BalanceOf(model.Address(p.Owner), model.AssetType(p.Asset))
			if err != nil {
				return nil, err
			}
			return map[string]model.Amount{"balance": balance}, nil
		})
		return result, rpcErr, true
	default:
		return nil, nil, false
	}
}

func callWithParams[P any](rawParams json.RawMessage, call func(P) (any, error)) (any, *rpckit.Error) {
	var params P
	if err := decodeParams(rawParams, &params); err != nil {
		return nil, rpckit.InvalidParams()
	}
	if v, ok := any(params).(interface{ validate() error }); ok {
		if err := v.validate(); err != nil {
			return nil, rpckit.InvalidParams()
		}
	}
	result, err := call(params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func callWithoutParams(rawParams json.RawMessage, call func() (any, error)) (any, *rpckit.Error) {
	if !emptyParams(rawParams) {
		return nil, rpckit.InvalidParams()
	}
	result, err := call()
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}
