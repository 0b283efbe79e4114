package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"custody-vault/go-backend/internal/identity"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return path
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
env: dev
store: sqlite
dataDir: /var/lib/vault
rpc:
  addr: 127.0.0.1:9900
  allowedOrigins: ["https://ops.example"]
  rateLimit:
    enabled: true
    rps: 5
    burst: 10
`)
	cfg, err := load(path, map[string]string{
		"VAULT_RPC_RATE_LIMIT_BURST": "20",
		"VAULT_RPC_TOKEN":            " tok ",
		"VAULT_METRICS_ENABLED":      "false",
	})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Store != StoreSQLite || cfg.DataDir != "/var/lib/vault" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.RPC.Addr != "127.0.0.1:9900" || len(cfg.RPC.AllowedOrigins) != 1 {
		t.Fatalf("rpc file values not applied: %+v", cfg.RPC)
	}
	if cfg.RPC.RateLimit.RPS != 5 || cfg.RPC.RateLimit.Burst != 20 {
		t.Fatalf("expected rps from file and burst from env, got %+v", cfg.RPC.RateLimit)
	}
	if cfg.RPC.Token != "tok" {
		t.Fatalf("expected trimmed token, got %q", cfg.RPC.Token)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("expected metrics disabled by env")
	}
	if cfg.StatePath() != filepath.Join("/var/lib/vault", "vault.db") {
		t.Fatalf("unexpected state path %q", cfg.StatePath())
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := load(filepath.Join(t.TempDir(), "absent.yaml"), map[string]string{}); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := writeConfig(t, "rpc: [unterminated")
	if _, err := load(path, map[string]string{}); err == nil {
		t.Fatal("expected yaml parse error")
	}
}

func TestResolveRootFromMnemonic(t *testing.T) {
	mnemonic, id, err := identity.Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	cfg := Default()
	cfg.RootMnemonic = mnemonic
	root, err := cfg.ResolveRoot()
	if err != nil {
		t.Fatalf("resolve root failed: %v", err)
	}
	if root != id.Address {
		t.Fatalf("expected %s, got %s", id.Address, root)
	}

	_, other, err := identity.Generate()
	if err != nil {
		t.Fatalf("generate other failed: %v", err)
	}
	cfg.Root = string(other.Address)
	if _, err := cfg.ResolveRoot(); err == nil {
		t.Fatal("expected mismatch between root and mnemonic to fail")
	}
}

func TestValidate(t *testing.T) {
	_, id, err := identity.Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	base := Default()
	base.Root = string(id.Address)
	base.StoragePassphrase = "pass"
	base.RPC.Token = "tok"
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	noRoot := base
	noRoot.Root = ""
	if err := noRoot.Validate(); err == nil || !strings.Contains(err.Error(), "root") {
		t.Fatalf("expected missing root error, got %v", err)
	}

	badStore := base
	badStore.Store = "redis"
	if err := badStore.Validate(); err == nil {
		t.Fatal("expected unknown store error")
	}

	noPass := base
	noPass.StoragePassphrase = ""
	if err := noPass.Validate(); err == nil {
		t.Fatal("expected missing passphrase error")
	}
	noPass.Env = "local"
	noPass.RPC.Token = ""
	if err := noPass.Validate(); err != nil {
		t.Fatalf("expected local env to fall back to storage.key, got %v", err)
	}

	noToken := base
	noToken.RPC.Token = ""
	if err := noToken.Validate(); err == nil {
		t.Fatal("expected missing token error in production env")
	}
	noToken.Env = "dev"
	if err := noToken.Validate(); err != nil {
		t.Fatalf("expected dev env to allow missing token, got %v", err)
	}
}

func TestTokenRequiredFailsClosedInProduction(t *testing.T) {
	off := false
	cfg := Default()
	cfg.RPC.RequireToken = &off
	if !cfg.TokenRequired() {
		t.Fatal("production must require a token even when disabled")
	}
	cfg.Env = "local"
	if cfg.TokenRequired() {
		t.Fatal("local env with explicit opt-out should not require a token")
	}
}

func TestApplyOverridesNormalizes(t *testing.T) {
	cfg := Default()
	cfg.Apply(Overrides{Store: " SQLite ", RPCToken: " tok ", DataDir: " /var/lib/vault ", RPCAddr: " "})
	if cfg.Store != StoreSQLite {
		t.Fatalf("expected normalized store, got %q", cfg.Store)
	}
	if cfg.RPC.Token != "tok" {
		t.Fatalf("expected trimmed token, got %q", cfg.RPC.Token)
	}
	if cfg.DataDir != "/var/lib/vault" {
		t.Fatalf("expected trimmed data dir, got %q", cfg.DataDir)
	}
	if cfg.RPC.Addr != DefaultRPCAddr {
		t.Fatalf("blank addr override must fall back to default, got %q", cfg.RPC.Addr)
	}

	kept := Default()
	kept.Store = StoreMemory
	kept.Apply(Overrides{})
	if kept.Store != StoreMemory || kept.DataDir != "data" {
		t.Fatalf("empty overrides must keep loaded values: %+v", kept)
	}
}
