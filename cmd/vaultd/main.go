package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"custody-vault/go-backend/internal/composition/daemonserver"
	"custody-vault/go-backend/internal/config"
	"custody-vault/go-backend/internal/platform/privacylog"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to vault.yaml (optional)")
	rpcAddr := flag.String("rpc-addr", "", "JSON-RPC listen address override")
	dataDir := flag.String("data-dir", "", "Directory for vault data override")
	rpcToken := flag.String("rpc-token", "", "RPC token for Authorization/X-Vault-RPC-Token, or auto (optional)")
	store := flag.String("store", "", "State store override: memory | file | sqlite")
	flag.Parse()
	if *showVersion {
		fmt.Printf("vaultd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	slog.SetDefault(slog.New(privacylog.WrapHandler(slog.NewJSONHandler(os.Stdout, nil))))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("vaultd failed to load config: %v", err)
	}
	cfg.Apply(config.Overrides{
		RPCAddr:  *rpcAddr,
		DataDir:  *dataDir,
		RPCToken: *rpcToken,
		Store:    *store,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemonserver.New(ctx, cfg)
	if err != nil {
		log.Fatalf("vaultd failed to initialize: %v", err)
	}

	slog.Info("vaultd starting", "addr", d.Server.Addr(), "version", version)
	if err := d.Run(ctx); err != nil {
		log.Fatalf("vaultd failed: %v", err)
	}
	slog.Info("vaultd stopped")
}
