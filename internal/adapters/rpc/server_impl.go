package rpc

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	vaultrpc "custody-vault/go-backend/internal/domains/vault/adapters/rpc"
	"custody-vault/go-backend/internal/platform/ratelimiter"
)

const DefaultRPCAddr = "127.0.0.1:8787"

const (
	rpcTokenHeader     = "X-Vault-RPC-Token"
	rpcRequestIDHeader = "X-Vault-Request-ID"
)

// Metrics is the optional observability sink of the server.
type Metrics interface {
	Handler() http.Handler
	ObserveRPC(method, outcome string, seconds float64)
}

type Options struct {
	Addr           string
	Token          string
	RequireToken   bool
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	Metrics        Metrics
}

type Server struct {
	httpServer  *http.Server
	vault       vaultrpc.VaultService
	coins       vaultrpc.CoinService
	rpcToken    string
	requireRPC  bool
	origins     map[string]struct{}
	rpcLimiter  *ratelimiter.MapLimiter
	idempotency *rpcIdempotencyCache
	metrics     Metrics
	now         func() time.Time
}

func NewServer(opts Options, vault vaultrpc.VaultService, coins vaultrpc.CoinService) (*Server, error) {
	if vault == nil {
		return nil, errors.New("vault service is required")
	}
	token := strings.TrimSpace(opts.Token)
	if opts.RequireToken && token == "" {
		return nil, errors.New("rpc token is required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		addr = DefaultRPCAddr
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		vault:       vault,
		coins:       coins,
		rpcToken:    token,
		requireRPC:  opts.RequireToken,
		origins:     make(map[string]struct{}, len(opts.AllowedOrigins)),
		rpcLimiter:  ratelimiter.New(opts.RateLimitRPS, opts.RateLimitBurst, 10*time.Minute),
		idempotency: newRPCIdempotencyCache(),
		metrics:     opts.Metrics,
		now:         time.Now,
	}
	for _, origin := range opts.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			s.origins[origin] = struct{}{}
		}
	}
	if s.rpcToken == "" {
		slog.Default().Warn("VAULT_RPC_TOKEN is not set; RPC auth disabled")
	}
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/rpc", s.handleRPC)
	if s.metrics != nil {
		mux.HandleFunc("/metrics", s.handleMetrics)
	}
	return s, nil
}

// Handler returns the routed handler, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.applyCORS(w, r) {
		return
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorizeRPC(w, r) {
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin != "" && !s.isAllowedOrigin(origin) {
		http.Error(w, "origin is not allowed", http.StatusForbidden)
		return false
	}
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
	w.Header().Set("Vary", "Origin")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, "+rpcTokenHeader+", "+rpcIdempotencyHeader+", "+rpcRequestIDHeader)
	return true
}

// isAllowedOrigin admits loopback origins and the configured allow list.
func (s *Server) isAllowedOrigin(raw string) bool {
	if _, ok := s.origins[raw]; ok {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.TrimSpace(u.Hostname()) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

func (s *Server) authorizeRPC(w http.ResponseWriter, r *http.Request) bool {
	if s.rpcToken == "" && !s.requireRPC {
		return true
	}
	token := s.extractRPCToken(r)
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.rpcToken)) != 1 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) extractRPCToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get(rpcTokenHeader))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return ""
}

// ResolveToken returns raw, or a freshly generated token when raw is "auto".
// A generated token is written to tokenFile when one is given.
func ResolveToken(raw, tokenFile string) (string, error) {
	token := strings.TrimSpace(raw)
	if !strings.EqualFold(token, "auto") {
		return token, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token = "rpc_" + hex.EncodeToString(buf)
	tokenFile = strings.TrimSpace(tokenFile)
	if tokenFile == "" {
		return token, nil
	}
	if err := os.MkdirAll(filepath.Dir(tokenFile), 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(tokenFile, []byte(token), 0o600); err != nil {
		return "", err
	}
	return token, nil
}
