// Package config loads daemon settings from defaults, an optional YAML file
// and VAULT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/identity"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"

	DefaultRPCAddr = "127.0.0.1:8787"
)

type Config struct {
	Env          string `yaml:"env" env:"VAULT_ENV"`
	Root         string `yaml:"root" env:"VAULT_ROOT"`
	RootMnemonic string `yaml:"-" env:"VAULT_ROOT_MNEMONIC"`

	Store             string `yaml:"store" env:"VAULT_STORE"`
	DataDir           string `yaml:"dataDir" env:"VAULT_DATA_DIR"`
	StoragePassphrase string `yaml:"-" env:"VAULT_STORAGE_PASSPHRASE"`

	RPC       RPCConfig     `yaml:"rpc"`
	Metrics   MetricsConfig `yaml:"metrics"`
	DevFaucet bool          `yaml:"devFaucet" env:"VAULT_DEV_FAUCET"`
}

type RPCConfig struct {
	Addr           string          `yaml:"addr" env:"VAULT_RPC_ADDR"`
	Token          string          `yaml:"-" env:"VAULT_RPC_TOKEN"`
	TokenFile      string          `yaml:"tokenFile" env:"VAULT_RPC_TOKEN_FILE"`
	RequireToken   *bool           `yaml:"requireToken" env:"VAULT_REQUIRE_RPC_TOKEN"`
	AllowedOrigins []string        `yaml:"allowedOrigins" env:"VAULT_RPC_ALLOWED_ORIGINS" envSeparator:","`
	RateLimit      RateLimitConfig `yaml:"rateLimit" envPrefix:"VAULT_RPC_RATE_LIMIT_"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" env:"ENABLED"`
	RPS     float64 `yaml:"rps" env:"RPS"`
	Burst   int     `yaml:"burst" env:"BURST"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"VAULT_METRICS_ENABLED"`
}

func Default() Config {
	return Config{
		Store:   StoreFile,
		DataDir: "data",
		RPC: RPCConfig{
			Addr:      DefaultRPCAddr,
			RateLimit: RateLimitConfig{Enabled: true, RPS: 30, Burst: 60},
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads configPath, or the first default candidate found when it is
// empty, then applies environment overrides. A missing explicit path is an
// error; missing candidates are skipped.
func Load(configPath string) (Config, error) {
	return load(configPath, nil)
}

func load(configPath string, environ map[string]string) (Config, error) {
	cfg := Default()
	if err := mergeFile(&cfg, configPath); err != nil {
		return Config{}, err
	}
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

func mergeFile(cfg *Config, configPath string) error {
	candidates := []string{"configs/vault.yaml", "go-backend/configs/vault.yaml"}
	explicit := strings.TrimSpace(configPath) != ""
	if explicit {
		candidates = []string{configPath}
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("read config %s: %w", path, err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		return nil
	}
	return nil
}

// Overrides are command-line values; empty fields keep the loaded setting.
type Overrides struct {
	RPCAddr  string
	DataDir  string
	RPCToken string
	Store    string
}

// Apply sets every non-empty override and normalizes the result.
func (c *Config) Apply(o Overrides) {
	if o.RPCAddr != "" {
		c.RPC.Addr = o.RPCAddr
	}
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.RPCToken != "" {
		c.RPC.Token = o.RPCToken
	}
	if o.Store != "" {
		c.Store = o.Store
	}
	c.Normalize()
}

// Normalize trims and lower-cases settings. Load calls it; callers that
// override fields afterwards must call it again.
func (c *Config) Normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.Root = strings.TrimSpace(c.Root)
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.RPC.Addr = strings.TrimSpace(c.RPC.Addr)
	c.RPC.Token = strings.TrimSpace(c.RPC.Token)
	c.RPC.TokenFile = strings.TrimSpace(c.RPC.TokenFile)
	if c.RPC.Addr == "" {
		c.RPC.Addr = DefaultRPCAddr
	}
	origins := c.RPC.AllowedOrigins[:0]
	for _, origin := range c.RPC.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.RPC.AllowedOrigins = origins
}

// NonProd reports whether the daemon runs in a test or development setting.
func (c Config) NonProd() bool {
	switch c.Env {
	case "test", "testing", "dev", "development", "local":
		return true
	default:
		return false
	}
}

// TokenRequired is true unless disabled explicitly in a non-production env.
func (c Config) TokenRequired() bool {
	if c.RPC.RequireToken != nil && !*c.RPC.RequireToken {
		return !c.NonProd()
	}
	if c.RPC.RequireToken == nil && c.NonProd() {
		return false
	}
	return true
}

// ResolveRoot returns the configured root address, deriving it from the
// root mnemonic when no address is set. Both set must agree.
func (c Config) ResolveRoot() (model.Address, error) {
	var derived model.Address
	if strings.TrimSpace(c.RootMnemonic) != "" {
		id, err := identity.FromMnemonic(c.RootMnemonic)
		if err != nil {
			return "", fmt.Errorf("root mnemonic: %w", err)
		}
		derived = id.Address
	}
	if c.Root == "" {
		if derived == "" {
			return "", errors.New("root address is required (VAULT_ROOT or VAULT_ROOT_MNEMONIC)")
		}
		return derived, nil
	}
	root, err := identity.ParseAddress(c.Root)
	if err != nil {
		return "", fmt.Errorf("root address: %w", err)
	}
	if derived != "" && derived != root {
		return "", errors.New("root address does not match root mnemonic")
	}
	return root, nil
}

// StatePath is where the selected store keeps vault state.
func (c Config) StatePath() string {
	switch c.Store {
	case StoreSQLite:
		return filepath.Join(c.DataDir, "vault.db")
	case StoreFile:
		return filepath.Join(c.DataDir, "vault-state.enc")
	default:
		return ""
	}
}

// BankPath is where the built-in coin bank keeps balances; empty means memory.
func (c Config) BankPath() string {
	if c.Store == StoreMemory {
		return ""
	}
	return filepath.Join(c.DataDir, "coin-bank.enc")
}

func (c Config) Validate() error {
	if _, err := c.ResolveRoot(); err != nil {
		return err
	}
	switch c.Store {
	case StoreMemory:
	case StoreFile, StoreSQLite:
		if c.DataDir == "" {
			return fmt.Errorf("data dir is required for %s store", c.Store)
		}
		if strings.TrimSpace(c.StoragePassphrase) == "" && !c.NonProd() {
			return errors.New("VAULT_STORAGE_PASSPHRASE is required for persistent stores in production")
		}
	default:
		return fmt.Errorf("unknown store %q (want memory, file or sqlite)", c.Store)
	}
	if c.TokenRequired() && c.RPC.Token == "" {
		return errors.New("VAULT_RPC_TOKEN is required unless VAULT_REQUIRE_RPC_TOKEN=false or VAULT_ENV is test/development/local")
	}
	if c.RPC.RateLimit.Enabled && (c.RPC.RateLimit.RPS <= 0 || c.RPC.RateLimit.Burst <= 0) {
		return errors.New("rpc rate limit needs positive rps and burst")
	}
	return nil
}
