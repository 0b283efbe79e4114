package model

import "errors"

var (
	ErrUnauthorized        = errors.New("caller is not the system root")
	ErrDuplicateAsset      = errors.New("asset type is already registered")
	ErrUnknownAsset        = errors.New("asset type is not registered")
	ErrVaultPaused         = errors.New("vault is paused")
	ErrInsufficientBalance = errors.New("insufficient ledger balance")
	ErrInsufficientCustody = errors.New("insufficient custody balance")
	ErrOverflow            = errors.New("amount overflow")
)

var (
	ErrNotInitialized       = errors.New("vault is not initialized")
	ErrAlreadyInitialized   = errors.New("vault is already initialized")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrInvalidAssetType     = errors.New("invalid asset type")
	ErrTransferFailed       = errors.New("external transfer failed")
	ErrRevisionConflict     = errors.New("state revision conflict")
	ErrConservationViolated = errors.New("custody does not match ledger total")
)
