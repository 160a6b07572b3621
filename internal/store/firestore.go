package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/spendlens/backend/internal/model"
)

const expensesCollection = "expenses"

// FirestoreStore implements Store backed by Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// expenseDoc is the Firestore document shape. Amounts are stored as minor
// units so document equality filters and sums never hit float drift.
type expenseDoc struct {
	ID          string    `firestore:"Id"`
	UserID      string    `firestore:"UserId"`
	AmountMinor int64     `firestore:"AmountMinor"`
	Category    string    `firestore:"Category"`
	Date        time.Time `firestore:"Date"`
	Title       string    `firestore:"Title"`
	CreatedAt   time.Time `firestore:"CreatedAt"`
}

func toDoc(e *model.Expense) expenseDoc {
	return expenseDoc{
		ID:          e.ID,
		UserID:      e.UserID,
		AmountMinor: e.Amount.Shift(2).IntPart(),
		Category:    string(e.Category),
		Date:        e.Date,
		Title:       e.Title,
		CreatedAt:   e.CreatedAt,
	}
}

func fromDoc(d expenseDoc) (*model.Expense, error) {
	category, ok := model.ParseCategory(d.Category)
	if !ok {
		// Records written before a category was added to the set still load.
		category = model.CategoryOther
	}
	return &model.Expense{
		ID:        d.ID,
		UserID:    d.UserID,
		Amount:    decimal.New(d.AmountMinor, -2),
		Category:  category,
		Date:      d.Date,
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
	}, nil
}

func (s *FirestoreStore) CreateExpense(ctx context.Context, expense *model.Expense) error {
	_, err := s.client.Collection(expensesCollection).Doc(expense.ID).Set(ctx, toDoc(expense))
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// QueryExpenses runs a server-side filtered range query. When a date range
// filter is present Firestore requires ordering by the range field first.
func (s *FirestoreStore) QueryExpenses(ctx context.Context, q Query) ([]*model.Expense, error) {
	query := s.client.Collection(expensesCollection).
		Query.
		Where("UserId", "==", q.UserID).
		Where("Date", ">=", q.From).
		Where("Date", "<=", q.To)
	if q.Category != "" {
		query = query.Where("Category", "==", string(q.Category))
	}
	query = query.OrderBy("Date", firestore.Asc)

	var out []*model.Expense
	it := query.Documents(ctx)
	defer it.Stop()
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query expenses: %w", err)
		}
		var d expenseDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("parse expense %s: %w", doc.Ref.ID, err)
		}
		e, err := fromDoc(d)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
