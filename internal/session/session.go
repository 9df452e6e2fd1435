// Package session keeps server-side login state. The cookie only ever holds
// the opaque id produced by NewID; the principal id lives in a Store.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/samber/oops"
)

// DefaultTTL is how long a session lives without being renewed.
const DefaultTTL = 30 * 24 * time.Hour

// ErrNotFound reports that a session id is unknown, expired or points at a
// principal that no longer exists. Other errors mean the lookup itself failed.
var ErrNotFound = errors.New("session: not found")

// Store maps session ids to principal ids.
type Store interface {
	// Get returns ok=false for unknown or expired ids.
	Get(ctx context.Context, id string) (principalID uint, ok bool, err error)
	Set(ctx context.Context, id string, principalID uint, ttl time.Duration) error
	// Destroy is idempotent.
	Destroy(ctx context.Context, id string) error
}

// NewID returns 32 random bytes, hex encoded.
func NewID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("SESSION_ID_FAILED").Wrap(err)
	}
	return hex.EncodeToString(b), nil
}
