package rpc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

const (
	rpcIdempotencyHeader     = "X-Vault-Idempotency-Key"
	rpcIdempotencyTTL        = 10 * time.Minute
	rpcIdempotencyMaxEntries = 1024
)

type idempotencyOutcome int

const (
	idempotencyMiss idempotencyOutcome = iota
	idempotencyReplay
	idempotencyConflict
	idempotencyInFlight
)

type rpcIdempotencyEntry struct {
	requestHash string
	response    rpcResponse
	done        bool
	createdAt   time.Time
}

type rpcIdempotencyCache struct {
	mu      sync.Mutex
	entries map[string]rpcIdempotencyEntry
}

func newRPCIdempotencyCache() *rpcIdempotencyCache {
	return &rpcIdempotencyCache{
		entries: make(map[string]rpcIdempotencyEntry),
	}
}

// reserve looks cacheKey up and, on a miss, claims it for the caller, who
// must later call complete or release.
func (c *rpcIdempotencyCache) reserve(cacheKey, requestHash string, now time.Time) (rpcResponse, idempotencyOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(now)
	entry, ok := c.entries[cacheKey]
	if !ok {
		c.entries[cacheKey] = rpcIdempotencyEntry{requestHash: requestHash, createdAt: now}
		c.evictOverflowLocked()
		return rpcResponse{}, idempotencyMiss
	}
	if entry.requestHash != requestHash {
		return rpcResponse{}, idempotencyConflict
	}
	if !entry.done {
		return rpcResponse{}, idempotencyInFlight
	}
	return entry.response, idempotencyReplay
}

func (c *rpcIdempotencyCache) complete(cacheKey string, resp rpcResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[cacheKey]
	if !ok {
		return
	}
	entry.response = resp
	entry.done = true
	c.entries[cacheKey] = entry
}

// release forgets a reservation whose request never reached the service.
func (c *rpcIdempotencyCache) release(cacheKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[cacheKey]; ok && !entry.done {
		delete(c.entries, cacheKey)
	}
}

func (c *rpcIdempotencyCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *rpcIdempotencyCache) pruneLocked(now time.Time) {
	for key, entry := range c.entries {
		if now.Sub(entry.createdAt) > rpcIdempotencyTTL {
			delete(c.entries, key)
		}
	}
}

func (c *rpcIdempotencyCache) evictOverflowLocked() {
	if len(c.entries) <= rpcIdempotencyMaxEntries {
		return
	}
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, entry := range c.entries {
		if !entry.done {
			continue
		}
		if first || entry.createdAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.createdAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func rpcIdempotencyKey(raw string, authToken string) string {
	key := strings.TrimSpace(raw)
	if key == "" {
		return ""
	}
	return authToken + "|" + key
}

func rpcRequestHash(req rpcRequest) string {
	payload := struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}{
		Method: req.Method,
		Params: req.Params,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte(req.Method + "|" + string(req.Params))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
