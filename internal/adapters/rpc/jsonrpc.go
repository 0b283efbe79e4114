package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"custody-vault/go-backend/internal/domains/rpckit"
	vaultrpc "custody-vault/go-backend/internal/domains/vault/adapters/rpc"
	"custody-vault/go-backend/internal/domains/vault/transport"

	"github.com/google/uuid"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

const (
	maxRPCBodyBytes  int64 = 1 << 20 // 1 MiB
	maxRequestIDSize       = 128
)

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if !s.applyCORS(w, r) {
		return
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !s.authorizeRPC(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := s.extractRPCToken(r)
	if !s.rpcLimiter.Allow(rpcRateLimitKey(r, token), s.now()) {
		w.Header().Set("Retry-After", "1")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: rpckit.CodeRateLimited, Message: "rate limit exceeded"},
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRPCBodyBytes)
	var req rpcRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: rpckit.CodeParseError, Message: "parse error"},
		})
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeRPCInvalidRequest(w, req.ID)
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPCInvalidRequest(w, req.ID)
		return
	}

	reqID := requestID(r)
	w.Header().Set(rpcRequestIDHeader, reqID)

	cacheKey := ""
	if transport.Mutating(req.Method) {
		cacheKey = rpcIdempotencyKey(r.Header.Get(rpcIdempotencyHeader), token)
	}
	if cacheKey != "" {
		cached, outcome := s.idempotency.reserve(cacheKey, rpcRequestHash(req), s.now())
		switch outcome {
		case idempotencyReplay:
			slog.Default().Info("rpc replay", "request_id", reqID, "method", req.Method)
			cached.ID = req.ID
			writeRPC(w, cached)
			return
		case idempotencyConflict:
			writeRPC(w, rpcResponse{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   &rpcError{Code: rpckit.CodeIdempotencyConflict, Message: "idempotency key reused with a different request"},
			})
			return
		case idempotencyInFlight:
			writeRPC(w, rpcResponse{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   &rpcError{Code: rpckit.CodeIdempotencyConflict, Message: "request with this idempotency key is in progress"},
			})
			return
		}
	}

	started := time.Now()
	slog.Default().Info("rpc request", "request_id", reqID, "method", req.Method, "rpc_id", string(req.ID))

	result, rpcErr := s.dispatchRPC(r, req.Method, req.Params)
	latency := time.Since(started)
	outcome := "ok"
	if rpcErr != nil {
		outcome = "error"
		slog.Default().Error("rpc failed", "request_id", reqID, "method", req.Method, "rpc_code", rpcErr.Code, "error", rpcErr.Message, "latency_ms", latency.Milliseconds())
	} else {
		slog.Default().Info("rpc response", "request_id", reqID, "method", req.Method, "latency_ms", latency.Milliseconds())
	}
	if s.metrics != nil {
		s.metrics.ObserveRPC(req.Method, outcome, latency.Seconds())
	}

	resp := rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   rpcErr,
	}
	if cacheKey != "" {
		if rpcErr != nil && (rpcErr.Code == rpckit.CodeInvalidParams || rpcErr.Code == rpckit.CodeMethodNotFound) {
			s.idempotency.release(cacheKey)
		} else {
			s.idempotency.complete(cacheKey, resp)
		}
	}
	writeRPC(w, resp)
}

func (s *Server) dispatchRPC(r *http.Request, method string, rawParams json.RawMessage) (any, *rpcError) {
	if method == "health_check" {
		return map[string]string{"status": "ok"}, nil
	}
	if result, rpcErr, ok := vaultrpc.Dispatch(r.Context(), s.vault, s.coins, method, rawParams); ok {
		return result, toRPCError(rpcErr)
	}
	return nil, &rpcError{Code: rpckit.CodeMethodNotFound, Message: "method not found"}
}

func toRPCError(err *rpckit.Error) *rpcError {
	if err == nil {
		return nil
	}
	return &rpcError{Code: err.Code, Message: err.Message}
}

// requestID honours a sane client correlation id and otherwise mints one.
func requestID(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get(rpcRequestIDHeader))
	if raw != "" && len(raw) <= maxRequestIDSize && !strings.ContainsAny(raw, "\r\n\t ") {
		return raw
	}
	return uuid.NewString()
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeRPCInvalidRequest(w http.ResponseWriter, id json.RawMessage) {
	writeRPC(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: rpckit.CodeInvalidRequest, Message: "invalid request"},
	})
}
