// Package revocation keeps a denylist of token ids so that a logged-out token
// stops working before its natural expiry.
package revocation

import (
	"context"
	"time"
)

// Store records revoked token ids until the moment the token would have
// expired anyway.
type Store interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
