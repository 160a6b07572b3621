package assistant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spendlens/backend/internal/model"
)

func TestContextStoreRoundTrip(t *testing.T) {
	s := NewContextStore()
	s.Put("user-1", Conversation{LastIntent: model.IntentQuery, LastQuery: "spend this month?"})

	conv := s.Get("user-1")
	assert.Equal(t, model.IntentQuery, conv.LastIntent)
	assert.Equal(t, "spend this month?", conv.LastQuery)

	assert.Equal(t, Conversation{}, s.Get("user-2"))
}

func TestContextStoreExpiry(t *testing.T) {
	base := time.Date(2025, time.April, 15, 10, 0, 0, 0, time.UTC)
	current := base

	s := NewContextStore()
	s.setClock(func() time.Time { return current })
	s.Put("user-1", Conversation{LastIntent: model.IntentQuery})

	// Still live just inside the 30-minute window.
	current = base.Add(29 * time.Minute)
	assert.Equal(t, model.IntentQuery, s.Get("user-1").LastIntent)

	// Stale just past it: reads return the zero conversation.
	current = base.Add(31 * time.Minute)
	assert.Equal(t, Conversation{}, s.Get("user-1"))
	assert.Equal(t, 0, s.Len())
}

func TestContextStorePutRefreshesExpiry(t *testing.T) {
	base := time.Date(2025, time.April, 15, 10, 0, 0, 0, time.UTC)
	current := base

	s := NewContextStore()
	s.setClock(func() time.Time { return current })
	s.Put("user-1", Conversation{LastIntent: model.IntentQuery})

	current = base.Add(25 * time.Minute)
	s.Put("user-1", Conversation{LastIntent: model.IntentAddExpense})

	// 40 minutes after the first write but only 15 after the refresh.
	current = base.Add(40 * time.Minute)
	assert.Equal(t, model.IntentAddExpense, s.Get("user-1").LastIntent)
}

func TestContextStoreSweep(t *testing.T) {
	base := time.Date(2025, time.April, 15, 10, 0, 0, 0, time.UTC)
	current := base

	s := NewContextStore()
	s.setClock(func() time.Time { return current })
	s.Put("user-1", Conversation{LastIntent: model.IntentQuery})

	current = base.Add(20 * time.Minute)
	s.Put("user-2", Conversation{LastIntent: model.IntentChitchat})

	current = base.Add(35 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, model.IntentChitchat, s.Get("user-2").LastIntent)
}
