package rpc

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"custody-vault/go-backend/internal/coin"
	vaultdomain "custody-vault/go-backend/internal/domains/vault"
	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/domains/vault/policy"
	"custody-vault/go-backend/internal/metrics"
)

type testEnv struct {
	server *Server
	bank   *coin.Bank
	root   model.Address
	user   model.Address
}

func testAddress(t *testing.T, seed byte) model.Address {
	t.Helper()
	raw := make([]byte, ed25519.SeedSize)
	raw[0] = seed
	addr, err := policy.BuildAddress(ed25519.NewKeyFromSeed(raw).Public().(ed25519.PublicKey))
	if err != nil {
		t.Fatalf("build address failed: %v", err)
	}
	return addr
}

func newTestEnv(t *testing.T, opts Options) testEnv {
	t.Helper()
	root := testAddress(t, 1)
	bank := coin.NewBank()
	svc, err := vaultdomain.NewService(context.Background(), vaultdomain.Deps{
		Root:  root,
		Store: vaultdomain.NewSnapshotStore(),
		Coins: bank,
	})
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	server, err := NewServer(opts, svc, coin.NewFaucet(bank, root, true))
	if err != nil {
		t.Fatalf("new server failed: %v", err)
	}
	return testEnv{server: server, bank: bank, root: root, user: testAddress(t, 2)}
}

func (e testEnv) post(t *testing.T, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func rpcBody(t *testing.T, method string, params any) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	if err != nil {
		t.Fatalf("marshal request failed: %v", err)
	}
	return string(raw)
}

type decodedResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) decodedResponse {
	t.Helper()
	var resp decodedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestRPCRequiresToken(t *testing.T) {
	env := newTestEnv(t, Options{Token: "tok", RequireToken: true})
	rec := env.post(t, rpcBody(t, "vault.status", nil), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = env.post(t, rpcBody(t, "vault.status", nil), map[string]string{"Authorization": "Bearer tok"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer token, got %d", rec.Code)
	}
	rec = env.post(t, rpcBody(t, "vault.status", nil), map[string]string{rpcTokenHeader: "tok"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with header token, got %d", rec.Code)
	}
}

func TestNewServerRejectsMissingRequiredToken(t *testing.T) {
	if _, err := NewServer(Options{RequireToken: true}, nil, nil); err == nil {
		t.Fatal("expected error without vault service")
	}
	env := newTestEnv(t, Options{})
	if _, err := NewServer(Options{RequireToken: true}, env.server.vault, nil); err == nil {
		t.Fatal("expected error for missing required token")
	}
}

func TestRPCVaultFlowAndErrorCodes(t *testing.T) {
	env := newTestEnv(t, Options{})
	for _, call := range []struct {
		method string
		params any
	}{
		{"vault.init", map[string]any{"caller": env.root}},
		{"vault.register_asset", map[string]any{"caller": env.root, "asset": "USDC"}},
		{"coin.mint", map[string]any{"caller": env.root, "to": env.user, "asset": "USDC", "amount": 50}},
		{"vault.deposit", map[string]any{"caller": env.user, "asset": "USDC", "amount": "20"}},
	} {
		resp := decode(t, env.post(t, rpcBody(t, call.method, call.params), nil))
		if resp.Error != nil {
			t.Fatalf("%s failed: %+v", call.method, resp.Error)
		}
	}

	resp := decode(t, env.post(t, rpcBody(t, "vault.balance", map[string]any{"user": env.user, "asset": "USDC"}), nil))
	var balance vaultdomain.BalanceView
	if err := json.Unmarshal(resp.Result, &balance); err != nil {
		t.Fatalf("decode balance failed: %v", err)
	}
	if balance.Amount != 20 {
		t.Fatalf("expected balance 20, got %d", balance.Amount)
	}

	resp = decode(t, env.post(t, rpcBody(t, "vault.withdraw", map[string]any{"caller": env.user, "asset": "USDC", "amount": 21}), nil))
	if resp.Error == nil || resp.Error.Code != -32014 {
		t.Fatalf("expected insufficient balance code, got %+v", resp.Error)
	}

	resp = decode(t, env.post(t, rpcBody(t, "no.such", nil), nil))
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("expected method not found, got %+v", resp.Error)
	}
}

func TestRPCRejectsMalformedEnvelope(t *testing.T) {
	env := newTestEnv(t, Options{})
	resp := decode(t, env.post(t, "{not json", nil))
	if resp.Error == nil || resp.Error.Code != -32700 {
		t.Fatalf("expected parse error, got %+v", resp.Error)
	}
	resp = decode(t, env.post(t, `{"jsonrpc":"1.0","id":1,"method":"vault.status"}`, nil))
	if resp.Error == nil || resp.Error.Code != -32600 {
		t.Fatalf("expected invalid request, got %+v", resp.Error)
	}
	resp = decode(t, env.post(t, `{"jsonrpc":"2.0","id":1,"method":"vault.status"} {}`, nil))
	if resp.Error == nil || resp.Error.Code != -32600 {
		t.Fatalf("expected invalid request for trailing data, got %+v", resp.Error)
	}
}

func TestRPCIdempotentReplay(t *testing.T) {
	env := newTestEnv(t, Options{})
	headers := map[string]string{rpcIdempotencyHeader: "init-1"}
	body := rpcBody(t, "vault.init", map[string]any{"caller": env.root})

	first := decode(t, env.post(t, body, headers))
	if first.Error != nil {
		t.Fatalf("first init failed: %+v", first.Error)
	}
	second := decode(t, env.post(t, body, headers))
	if second.Error != nil {
		t.Fatalf("replayed init must not fail, got %+v", second.Error)
	}
	if string(first.Result) != string(second.Result) {
		t.Fatalf("expected identical replay, got %s and %s", first.Result, second.Result)
	}

	other := decode(t, env.post(t, rpcBody(t, "vault.pause", map[string]any{"caller": env.root}), headers))
	if other.Error == nil || other.Error.Code != -32409 {
		t.Fatalf("expected idempotency conflict, got %+v", other.Error)
	}

	fresh := decode(t, env.post(t, body, nil))
	if fresh.Error == nil || fresh.Error.Code != -32018 {
		t.Fatalf("expected already initialized without key, got %+v", fresh.Error)
	}
}

func TestRPCRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{RateLimitRPS: 1, RateLimitBurst: 1})
	if rec := env.post(t, rpcBody(t, "health_check", nil), nil); rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	rec := env.post(t, rpcBody(t, "health_check", nil), nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if resp := decode(t, rec); resp.Error == nil || resp.Error.Code != -32029 {
		t.Fatalf("expected rate limit code, got %+v", resp.Error)
	}
}

func TestCORSRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t, Options{AllowedOrigins: []string{"https://ops.example"}})
	for origin, want := range map[string]int{
		"http://localhost:3000": http.StatusOK,
		"https://ops.example":   http.StatusOK,
		"https://evil.example":  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("origin %s: expected %d, got %d", origin, want, rec.Code)
		}
	}
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t, Options{})
	rec := env.post(t, rpcBody(t, "health_check", nil), map[string]string{rpcRequestIDHeader: "ui.42"})
	if got := rec.Header().Get(rpcRequestIDHeader); got != "ui.42" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	rec = env.post(t, rpcBody(t, "health_check", nil), nil)
	if got := rec.Header().Get(rpcRequestIDHeader); len(got) != 36 {
		t.Fatalf("expected generated uuid request id, got %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, Options{Token: "tok", Metrics: metrics.New()})
	headers := map[string]string{"Authorization": "Bearer tok"}
	env.post(t, rpcBody(t, "vault.status", nil), headers)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `vault_rpc_duration_seconds_count{method="vault.status",outcome="ok"} 1`) {
		t.Fatalf("rpc metric missing:\n%s", rec.Body.String())
	}
}

func TestResolveTokenAutoWritesFile(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "runtime", "rpc.token")
	token, err := ResolveToken("auto", tokenFile)
	if err != nil {
		t.Fatalf("resolve token: %v", err)
	}
	if !strings.HasPrefix(token, "rpc_") {
		t.Fatalf("expected generated token, got %q", token)
	}
	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		t.Fatalf("read token file: %v", err)
	}
	if string(raw) != token {
		t.Fatal("unexpected token file content")
	}
	static, err := ResolveToken(" static ", tokenFile)
	if err != nil || static != "static" {
		t.Fatalf("expected static token passthrough, got %q (%v)", static, err)
	}
}
