package token

import (
	"sync"

	"github.com/surveydesk/surveydesk/internal/common/errorx"
)

// MemoryStore implements Store using in-memory storage
type MemoryStore struct {
	mu   sync.RWMutex
	pair *Pair
	user *User
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SetSession implements Store.SetSession
func (s *MemoryStore) SetSession(pair Pair, user *User) error {
	if pair.Access == "" || pair.Refresh == "" {
		return errorx.NewValidationError("token pair requires both access and refresh tokens")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := pair
	s.pair = &p
	s.user = user
	return nil
}

// SetAccess implements Store.SetAccess
func (s *MemoryStore) SetAccess(access string) error {
	if access == "" {
		return errorx.NewValidationError("access token cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair == nil {
		return errorx.NewValidationError("no session stored")
	}
	s.pair.Access = access
	return nil
}

// Pair implements Store.Pair
func (s *MemoryStore) Pair() (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return Pair{}, false
	}
	return *s.pair, true
}

// Access implements Store.Access
func (s *MemoryStore) Access() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return ""
	}
	return s.pair.Access
}

// User implements Store.User
func (s *MemoryStore) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Clear implements Store.Clear
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	s.user = nil
}
