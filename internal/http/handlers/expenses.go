package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spendtrack/spendtrack/internal/config"
	"github.com/spendtrack/spendtrack/internal/domain/expense"
	"github.com/spendtrack/spendtrack/internal/http/middlewares"
)

// ExpenseStore is everything the expense routes need from the persistence
// layer. Every operation is scoped by the owning user.
type ExpenseStore interface {
	Create(ctx context.Context, ownerID string, req expense.CreateExpenseRequest) (expense.Expense, error)
	ListByOwner(ctx context.Context, ownerID string) ([]expense.Expense, error)
	GetByID(ctx context.Context, ownerID, id string) (expense.Expense, error)
	Update(ctx context.Context, ownerID, id string, req expense.UpdateExpenseRequest) (expense.Expense, error)
	Delete(ctx context.Context, ownerID, id string) error
	Stats(ctx context.Context, ownerID string, now time.Time) (expense.Stats, error)
}

type ExpensesHandler struct {
	repo ExpenseStore
}

func NewExpensesHandler(repo ExpenseStore) *ExpensesHandler {
	return &ExpensesHandler{repo: repo}
}

func (h *ExpensesHandler) owner(ctx *gin.Context) (string, bool) {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok || u.ID == "" {
		RespondUnAuthorized(ctx, "You are not authorized to access this route")
		return "", false
	}

	return u.ID, true
}

func (h *ExpensesHandler) List(ctx *gin.Context) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	expenses, err := h.repo.ListByOwner(cctx, ownerID)

	if err != nil {
		TranslateError(ctx, err)
		return
	}

	RespondList(ctx, expenses, len(expenses))
}

func (h *ExpensesHandler) Create(ctx *gin.Context) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}

	var req expense.CreateExpenseRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	e, err := h.repo.Create(cctx, ownerID, req)

	if err != nil {
		TranslateError(ctx, err)
		return
	}

	Respond(ctx, http.StatusCreated, e)
}

func (h *ExpensesHandler) Get(ctx *gin.Context) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.GetByID(cctx, ownerID, ctx.Param("id"))

	if err != nil {
		TranslateError(ctx, err)
		return
	}

	Respond(ctx, http.StatusOK, e)
}

func (h *ExpensesHandler) Update(ctx *gin.Context) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}

	var req expense.UpdateExpenseRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	e, err := h.repo.Update(cctx, ownerID, ctx.Param("id"), req)

	if err != nil {
		TranslateError(ctx, err)
		return
	}

	Respond(ctx, http.StatusOK, e)
}

func (h *ExpensesHandler) Delete(ctx *gin.Context) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, ownerID, id)

	if err != nil {
		TranslateError(ctx, err)
		return
	}

	// echo the id back so the client can confirm the removal
	Respond(ctx, http.StatusOK, gin.H{"id": id})
}

func (h *ExpensesHandler) Stats(ctx *gin.Context) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	stats, err := h.repo.Stats(cctx, ownerID, time.Now().UTC())

	if err != nil {
		TranslateError(ctx, err)
		return
	}

	Respond(ctx, http.StatusOK, stats)
}
