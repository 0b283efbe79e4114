package transport

const (
	MethodVaultInit          = "vault.init"
	MethodVaultRegisterAsset = "vault.register_asset"
	MethodVaultDeposit       = "vault.deposit"
	MethodVaultWithdraw      = "vault.withdraw"
	MethodVaultPause         = "vault.pause"
	MethodVaultUnpause       = "vault.unpause"
	MethodVaultBalance       = "vault.balance"
	MethodVaultLedger        = "vault.ledger"
	MethodVaultCustody       = "vault.custody"
	MethodVaultAssets        = "vault.assets"
	MethodVaultUsers         = "vault.users"
	MethodVaultStatus        = "vault.status"
	MethodVaultAudit         = "vault.audit"
	MethodCoinMint           = "coin.mint"
	MethodCoinBalance        = "coin.balance"
)

// Mutating reports whether method changes vault or bank state. Only these
// calls are eligible for idempotent replay.
func Mutating(method string) bool {
	switch method {
	case MethodVaultInit, MethodVaultRegisterAsset, MethodVaultDeposit, MethodVaultWithdraw,
		MethodVaultPause, MethodVaultUnpause, MethodCoinMint:
		return true
	default:
		return false
	}
}
