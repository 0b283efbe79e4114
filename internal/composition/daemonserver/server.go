// Package daemonserver wires configuration, storage, the vault service and
// the JSON-RPC transport into a runnable daemon.
package daemonserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"custody-vault/go-backend/internal/adapters/rpc"
	"custody-vault/go-backend/internal/coin"
	"custody-vault/go-backend/internal/composition/daemon"
	"custody-vault/go-backend/internal/config"
	"custody-vault/go-backend/internal/domains/vault"
	"custody-vault/go-backend/internal/metrics"
)

// Daemon is a fully wired vault daemon.
type Daemon struct {
	Server  *rpc.Server
	Service *vault.Service
	Bank    *coin.Bank
	Metrics *metrics.Vault

	storage   daemon.StorageBundle
	closeOnce sync.Once
	closeErr  error
}

// New validates cfg, opens storage and loads the committed vault state.
func New(ctx context.Context, cfg config.Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	root, err := cfg.ResolveRoot()
	if err != nil {
		return nil, err
	}
	token, err := rpc.ResolveToken(cfg.RPC.Token, cfg.RPC.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("resolve rpc token: %w", err)
	}
	bundle, err := daemon.ResolveStorage(cfg)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "vault")
	var vaultMetrics *metrics.Vault
	var observer vault.Observer
	if cfg.Metrics.Enabled {
		vaultMetrics = metrics.New()
		observer = vaultMetrics
	}
	svc, err := vault.NewService(ctx, vault.Deps{
		Root:     root,
		Store:    bundle.State,
		Coins:    bundle.Bank,
		Observer: observer,
		LogInfo:  logger.Info,
		LogWarn:  logger.Warn,
	})
	if err != nil {
		return nil, errors.Join(err, bundle.Close())
	}
	if vaultMetrics != nil {
		vaultMetrics.SeedCustody(svc.Assets())
	}

	opts := rpc.Options{
		Addr:           cfg.RPC.Addr,
		Token:          token,
		RequireToken:   cfg.TokenRequired(),
		AllowedOrigins: cfg.RPC.AllowedOrigins,
	}
	if cfg.RPC.RateLimit.Enabled {
		opts.RateLimitRPS = cfg.RPC.RateLimit.RPS
		opts.RateLimitBurst = cfg.RPC.RateLimit.Burst
	}
	if vaultMetrics != nil {
		opts.Metrics = vaultMetrics
	}
	srv, err := rpc.NewServer(opts, svc, coin.NewFaucet(bundle.Bank, root, cfg.DevFaucet))
	if err != nil {
		return nil, errors.Join(err, bundle.Close())
	}

	logger.Info("vault daemon configured",
		"store", bundle.Kind,
		"root", string(root),
		"custody_address", string(svc.Custodian()),
		"initialized", svc.Status().Initialized,
		"dev_faucet", cfg.DevFaucet,
	)
	return &Daemon{
		Server:  srv,
		Service: svc,
		Bank:    bundle.Bank,
		Metrics: vaultMetrics,
		storage: bundle,
	}, nil
}

// Run serves RPC until ctx is done, then closes storage.
func (d *Daemon) Run(ctx context.Context) error {
	runErr := d.Server.Run(ctx)
	return errors.Join(runErr, d.Close())
}

func (d *Daemon) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.storage.Close()
	})
	return d.closeErr
}
