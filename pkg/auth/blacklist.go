package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/aqarlink/crm/pkg/cache"
)

// TokenBlacklist tracks revoked JWT tokens in Redis. Entries expire
// together with the token itself so the set never grows unbounded.
type TokenBlacklist struct {
	cache *cache.Client
}

// NewTokenBlacklist creates a new token blacklist.
func NewTokenBlacklist(cacheClient *cache.Client) *TokenBlacklist {
	return &TokenBlacklist{cache: cacheClient}
}

// Add revokes a token until its own expiration.
func (b *TokenBlacklist) Add(ctx context.Context, token string, expiration time.Duration) error {
	// Tokens are stored hashed, never raw.
	key := b.key(token)
	return b.cache.Set(ctx, key, "revoked", expiration)
}

// IsBlacklisted reports whether the token has been revoked.
func (b *TokenBlacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	return b.cache.Exists(ctx, b.key(token))
}

func (b *TokenBlacklist) key(token string) string {
	hash := sha256.Sum256([]byte(token))
	return fmt.Sprintf("jwt:blacklist:%s", hex.EncodeToString(hash[:]))
}
