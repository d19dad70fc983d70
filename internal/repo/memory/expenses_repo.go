package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spendtrack/spendtrack/internal/domain/expense"
	"github.com/spendtrack/spendtrack/internal/utils"
)

type ExpensesRepo struct {
	mu    sync.RWMutex
	items map[string]expense.Expense
}

func NewExpensesRepo() *ExpensesRepo {
	return &ExpensesRepo{
		items: make(map[string]expense.Expense),
	}
}

func (r *ExpensesRepo) Create(ctx context.Context, ownerID string, req expense.CreateExpenseRequest) (expense.Expense, error) {
	e := expense.NewFromCreateRequest(ownerID, req)

	r.mu.Lock()
	r.items[e.ID] = e
	r.mu.Unlock()

	return e, nil
}

func (r *ExpensesRepo) ListByOwner(ctx context.Context, ownerID string) ([]expense.Expense, error) {
	r.mu.RLock()

	out := make([]expense.Expense, 0)

	for _, e := range r.items {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}

	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})

	return out, nil
}

func (r *ExpensesRepo) GetByID(ctx context.Context, ownerID, id string) (expense.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.items[id]
	if !ok || e.OwnerID != ownerID {
		// never reveal that the expense exists under another owner
		return expense.Expense{}, expense.ErrNotFound
	}

	return e, nil
}

func (r *ExpensesRepo) Update(ctx context.Context, ownerID, id string, req expense.UpdateExpenseRequest) (expense.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[id]
	if !ok || e.OwnerID != ownerID {
		return expense.Expense{}, expense.ErrNotFound
	}

	e = e.ApplyUpdate(req)
	r.items[id] = e

	return e, nil
}

func (r *ExpensesRepo) Delete(ctx context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[id]
	if !ok || e.OwnerID != ownerID {
		return expense.ErrNotFound
	}

	delete(r.items, id)
	return nil
}

func (r *ExpensesRepo) Stats(ctx context.Context, ownerID string, now time.Time) (expense.Stats, error) {
	r.mu.RLock()

	owned := make([]expense.Expense, 0)

	for _, e := range r.items {
		if e.OwnerID == ownerID {
			owned = append(owned, e)
		}
	}

	r.mu.RUnlock()

	stats := expense.Stats{
		ByCategory: make([]expense.CategoryTotal, 0),
		ByMonth:    make([]expense.MonthTotal, 0),
	}

	byCategory := make(map[expense.Category]float64)
	byMonth := make(map[expense.MonthKey]float64)
	since := utils.TrailingMonthsStart(now, 6)

	for _, e := range owned {
		stats.Total += e.Amount
		byCategory[e.Category] += e.Amount

		if !e.Date.Before(since) {
			key := expense.MonthKey{Year: e.Date.Year(), Month: int(e.Date.Month())}
			byMonth[key] += e.Amount
		}
	}

	for cat, total := range byCategory {
		stats.ByCategory = append(stats.ByCategory, expense.CategoryTotal{Category: cat, Total: total})
	}

	sort.Slice(stats.ByCategory, func(i, j int) bool {
		a, b := stats.ByCategory[i], stats.ByCategory[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Category < b.Category
	})

	for key, total := range byMonth {
		stats.ByMonth = append(stats.ByMonth, expense.MonthTotal{Bucket: key, Total: total})
	}

	sort.Slice(stats.ByMonth, func(i, j int) bool {
		a, b := stats.ByMonth[i].Bucket, stats.ByMonth[j].Bucket
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})

	return stats, nil
}
