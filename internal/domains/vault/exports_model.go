package vault

import vaultmodel "custody-vault/go-backend/internal/domains/vault/model"

type Address = vaultmodel.Address
type AssetType = vaultmodel.AssetType
type SlotID = vaultmodel.SlotID
type Amount = vaultmodel.Amount
type AdminConfig = vaultmodel.AdminConfig
type AssetSlot = vaultmodel.AssetSlot
type UserLedger = vaultmodel.UserLedger
type LedgerEntry = vaultmodel.LedgerEntry
type KnownUsers = vaultmodel.KnownUsers
type State = vaultmodel.State
type Change = vaultmodel.Change
type Receipt = vaultmodel.Receipt
type Status = vaultmodel.Status
type AuditReport = vaultmodel.AuditReport
type OperationKind = vaultmodel.OperationKind

var (
	ErrUnauthorized         = vaultmodel.ErrUnauthorized
	ErrDuplicateAsset       = vaultmodel.ErrDuplicateAsset
	ErrUnknownAsset         = vaultmodel.ErrUnknownAsset
	ErrVaultPaused          = vaultmodel.ErrVaultPaused
	ErrInsufficientBalance  = vaultmodel.ErrInsufficientBalance
	ErrInsufficientCustody  = vaultmodel.ErrInsufficientCustody
	ErrOverflow             = vaultmodel.ErrOverflow
	ErrNotInitialized       = vaultmodel.ErrNotInitialized
	ErrAlreadyInitialized   = vaultmodel.ErrAlreadyInitialized
	ErrInvalidAddress       = vaultmodel.ErrInvalidAddress
	ErrInvalidAssetType     = vaultmodel.ErrInvalidAssetType
	ErrTransferFailed       = vaultmodel.ErrTransferFailed
	ErrRevisionConflict     = vaultmodel.ErrRevisionConflict
	ErrConservationViolated = vaultmodel.ErrConservationViolated
)

func NewState() State {
	return vaultmodel.NewState()
}
