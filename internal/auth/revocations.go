package auth

import (
	"context"
	"time"

	"chefshare/internal/platform/cache"
)

const revokedKeyPrefix = "revoked:token:"

// Revocations remembers logged-out token ids until they would have expired.
// Without Redis nothing is remembered and logout only discards the client's copy.
type Revocations struct {
	cache *cache.Client
}

// NewRevocations creates a revocation list backed by c, which may be nil.
func NewRevocations(c *cache.Client) *Revocations {
	return &Revocations{cache: c}
}

// Revoke blacklists the token described by claims for its remaining lifetime.
func (r *Revocations) Revoke(ctx context.Context, claims *Claims) error {
	if r == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return r.cache.Set(ctx, revokedKeyPrefix+claims.ID, []byte("1"), ttl)
}

// IsRevoked reports whether the token id was revoked. Lookup failures count
// as not revoked.
func (r *Revocations) IsRevoked(ctx context.Context, tokenID string) bool {
	if r == nil {
		return false
	}
	data, _ := r.cache.Get(ctx, revokedKeyPrefix+tokenID)
	return data != nil
}
