package assistant

import (
	"time"

	"github.com/spendlens/backend/internal/cache"
	"github.com/spendlens/backend/internal/model"
)

const (
	// contextTTL is the conversational memory window. A context older than
	// this is treated as if the user never spoke.
	contextTTL = 30 * time.Minute

	// defaultMaxContexts bounds the per-user context map.
	defaultMaxContexts = 10_000
)

// Conversation is the short-lived per-user context. The zero value means
// "no prior turn within the window".
type Conversation struct {
	LastIntent model.Intent
	LastQuery  string
	UpdatedAt  time.Time
}

// ContextStore tracks one Conversation per active user. Entries expire
// lazily 30 minutes after their last write; Sweep supports periodic
// cleanup so inactive users do not accumulate.
type ContextStore struct {
	cache *cache.TTLCache[Conversation]
}

// NewContextStore creates a context store with the default capacity and TTL.
func NewContextStore() *ContextStore {
	return &ContextStore{cache: cache.NewTTLCache[Conversation](defaultMaxContexts, contextTTL)}
}

// Get returns the user's conversation, or the zero value when none exists
// or the stored one has gone stale.
func (s *ContextStore) Get(userID string) Conversation {
	conv, ok := s.cache.Get(userID)
	if !ok {
		return Conversation{}
	}
	return conv
}

// Put stores the conversation and refreshes its expiry.
func (s *ContextStore) Put(userID string, conv Conversation) {
	s.cache.Set(userID, conv)
}

// Sweep drops every expired context and returns how many were removed.
func (s *ContextStore) Sweep() int {
	return s.cache.CleanExpired()
}

// Len returns the number of live contexts.
func (s *ContextStore) Len() int {
	return s.cache.Len()
}

// setClock overrides the store's clock for tests.
func (s *ContextStore) setClock(now func() time.Time) {
	s.cache.SetClock(now)
}
