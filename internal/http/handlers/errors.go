package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spendtrack/spendtrack/internal/domain/expense"
	"github.com/spendtrack/spendtrack/internal/domain/user"
)

// TranslateError is the single place where unhandled operation failures
// become responses. Handlers deal with the outcomes that drive control flow
// (wrong password, pre-checked duplicates) and forward everything else here.
func TranslateError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, expense.ErrNotFound):
		RespondNotFound(ctx, "Expense not found")

	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")

	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "User already exists")

	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "22P02": // malformed identifier
				RespondNotFound(ctx, "Resource not found")
				return
			case "23505": // unique constraint
				RespondConflict(ctx, "Duplicate value entered")
				return
			case "23514": // schema check constraint
				RespondBadRequest(ctx, pgErr.Message)
				return
			}
		}

		msg := "Server Error"
		if err != nil && err.Error() != "" {
			msg = err.Error()
		}
		RespondInternal(ctx, msg)
	}
}
