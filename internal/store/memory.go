package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/spendlens/backend/internal/model"
)

// MemoryStore implements Store with in-memory storage, used for local
// development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	expenses map[string]*model.Expense
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{expenses: make(map[string]*model.Expense)}
}

func (m *MemoryStore) CreateExpense(ctx context.Context, expense *model.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	cp := *expense
	m.expenses[expense.ID] = &cp
	return nil
}

func (m *MemoryStore) QueryExpenses(ctx context.Context, q Query) ([]*model.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Expense
	for _, e := range m.expenses {
		if e.UserID != q.UserID {
			continue
		}
		if e.Date.Before(q.From) || e.Date.After(q.To) {
			continue
		}
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}
