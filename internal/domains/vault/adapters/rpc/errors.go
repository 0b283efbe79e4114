package rpc

import (
	"errors"

	"custody-vault/go-backend/internal/domains/rpckit"
	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/domains/vault/ports"
)

const (
	CodeUnauthorized          = -32010
	CodeDuplicateAsset        = -32011
	CodeUnknownAsset          = -32012
	CodeVaultPaused           = -32013
	CodeInsufficientBalance   = -32014
	CodeInsufficientCustody   = -32015
	CodeOverflow              = -32016
	CodeNotInitialized        = -32017
	CodeAlreadyInitialized    = -32018
	CodeInvalidArgument       = -32019
	CodeTransferFailed        = -32020
	CodeConservationViolated  = -32021
	CodeFaucetDisabled        = -32022
	CodeInsufficientCoinFunds = -32023
)

var errorCodes = []struct {
	err  error
	code int
}{
	{model.ErrUnauthorized, CodeUnauthorized},
	{model.ErrDuplicateAsset, CodeDuplicateAsset},
	{model.ErrUnknownAsset, CodeUnknownAsset},
	{model.ErrVaultPaused, CodeVaultPaused},
	{model.ErrInsufficientBalance, CodeInsufficientBalance},
	{model.ErrInsufficientCustody, CodeInsufficientCustody},
	// Transfer failures wrap their cause; match them before the cause.
	{model.ErrTransferFailed, CodeTransferFailed},
	{model.ErrOverflow, CodeOverflow},
	{model.ErrNotInitialized, CodeNotInitialized},
	{model.ErrAlreadyInitialized, CodeAlreadyInitialized},
	{model.ErrInvalidAddress, CodeInvalidArgument},
	{model.ErrInvalidAssetType, CodeInvalidArgument},
	{model.ErrConservationViolated, CodeConservationViolated},
	{ports.ErrFaucetDisabled, CodeFaucetDisabled},
	{ports.ErrInsufficientFunds, CodeInsufficientCoinFunds},
}

func mapError(err error) *rpckit.Error {
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return rpckit.ServiceError(entry.code, err)
		}
	}
	return rpckit.ServiceError(rpckit.CodeServiceError, err)
}
