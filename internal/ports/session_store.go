package ports

import (
	"context"
)

// Keys of the persisted session state.
const (
	KeyAuthToken       = "authToken"
	KeyCurrentUsername = "currentUsername"
	KeyCurrentUserID   = "currentUserId"
	KeyLastUsername    = "lastUsername"
	KeyLastPassword    = "lastPassword"
)

// SessionStore is the key-value persistence behind the session.
// Reads and writes are not transactional; the last write wins.
type SessionStore interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes the keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
