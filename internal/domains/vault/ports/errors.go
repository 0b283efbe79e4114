package ports

import "errors"

// Errors reported by CoinTransfer and coin service implementations.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrFaucetDisabled    = errors.New("coin faucet is disabled")
)
