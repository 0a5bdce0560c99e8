package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"
)

const blacklistPrefix = "jwt:blacklist:"

var (
	blacklist   = map[string]time.Time{}
	blacklistMu sync.RWMutex
)

func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return blacklistPrefix + hex.EncodeToString(sum[:])
}

// BlacklistToken revokes a token until its natural expiry. Redis holds the
// entry when reachable; otherwise it is kept in process memory.
func BlacklistToken(ctx context.Context, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	key := blacklistKey(token)
	if rc := GetRedis(); rc != nil {
		err := rc.Set(ctx, key, "1", ttl).Err()
		if err == nil {
			return
		}
		Logger.Warn("redis blacklist write failed, using memory", zap.Error(err))
	}
	blacklistMu.Lock()
	blacklist[key] = expiresAt
	blacklistMu.Unlock()
}

// IsTokenBlacklisted checks if a token was revoked before natural expiration.
func IsTokenBlacklisted(ctx context.Context, token string) bool {
	key := blacklistKey(token)
	if rc := GetRedis(); rc != nil {
		n, err := rc.Exists(ctx, key).Result()
		if err == nil && n > 0 {
			return true
		}
		// Fail open on Redis errors; the memory fallback may still hold it
	}
	blacklistMu.RLock()
	expiresAt, ok := blacklist[key]
	blacklistMu.RUnlock()
	if !ok {
		return false
	}

	if time.Now().After(expiresAt) {
		blacklistMu.Lock()
		delete(blacklist, key)
		blacklistMu.Unlock()
		return false
	}
	return true
}
