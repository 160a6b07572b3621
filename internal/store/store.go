// Package store persists expense records. It exposes the small collaborator
// surface the assistant and analytics layers need: insert plus a filtered
// range query with server-side user/date/category filtering.
package store

import (
	"context"
	"time"

	"github.com/spendlens/backend/internal/model"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// Query scopes an expense aggregation. Category is optional; the zero value
// means no category filter. From and To are inclusive calendar dates.
type Query struct {
	UserID   string
	From     time.Time
	To       time.Time
	Category model.Category
}

// Store defines the persistence operations used by the service layer.
type Store interface {
	CreateExpense(ctx context.Context, expense *model.Expense) error
	QueryExpenses(ctx context.Context, q Query) ([]*model.Expense, error)
}
