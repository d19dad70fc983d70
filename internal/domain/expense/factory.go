package expense

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(ownerID string, req CreateExpenseRequest) Expense {
	now := time.Now().UTC()

	return Expense{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(req.Title),
		Amount:    *req.Amount,
		Category:  req.Category,
		Date:      req.Date.Time,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyUpdate replaces the mutable fields. ID, OwnerID and CreatedAt never change.
func (e Expense) ApplyUpdate(req UpdateExpenseRequest) Expense {
	e.Title = strings.TrimSpace(req.Title)
	e.Amount = *req.Amount
	e.Category = req.Category
	e.Date = req.Date.Time
	e.UpdatedAt = time.Now().UTC()
	return e
}
