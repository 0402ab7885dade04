package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hugh/canicloud/pkg/cache"
)

// DefaultRevocationTTL is used when a revoked token carries no expiry.
const DefaultRevocationTTL = 48 * time.Hour

// Blacklist records signed-out tokens until they would have expired anyway.
type Blacklist struct {
	store cache.Store
}

func NewBlacklist(store cache.Store) *Blacklist {
	return &Blacklist{store: store}
}

func (b *Blacklist) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "revoked:" + hex.EncodeToString(sum[:])
}

// Add revokes token. Tokens already past exp are ignored.
func (b *Blacklist) Add(ctx context.Context, token string, exp time.Time) error {
	ttl := DefaultRevocationTTL
	if !exp.IsZero() {
		ttl = time.Until(exp)
		if ttl <= 0 {
			return nil
		}
	}
	return b.store.Set(ctx, b.key(token), "1", ttl)
}

func (b *Blacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	return b.store.Exists(ctx, b.key(token))
}
