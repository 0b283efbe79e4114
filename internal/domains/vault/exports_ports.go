package vault

import vaultports "custody-vault/go-backend/internal/domains/vault/ports"

type StateStore = vaultports.StateStore
type CoinTransfer = vaultports.CoinTransfer
type Observer = vaultports.Observer
