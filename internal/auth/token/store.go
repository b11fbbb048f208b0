package token

import (
	"encoding/json"
)

// Pair holds an access/refresh token pair. Both fields are opaque strings.
// Invariant: both present or both absent.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// User is the user record returned by login. The core treats everything
// beyond the identifying fields as opaque payload.
type User struct {
	ID       int64           `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email,omitempty"`
	Role     string          `json:"role,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// Store holds the current session credentials and cached user record.
// SetSession/SetAccess/Clear are called only by the session manager; all
// other components read snapshots.
type Store interface {
	// SetSession stores a token pair and user record atomically.
	SetSession(pair Pair, user *User) error

	// SetAccess replaces the access token, keeping the refresh token.
	// Fails when no session is stored.
	SetAccess(access string) error

	// Pair returns the current token pair, false when no session is stored.
	Pair() (Pair, bool)

	// Access returns the current access token, empty when no session is stored.
	Access() string

	// User returns the cached user record, nil when no session is stored.
	User() *User

	// Clear removes the token pair and user record.
	Clear()
}
