package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spendtrack/spendtrack/internal/domain/expense"
	"github.com/spendtrack/spendtrack/internal/observability"
	"github.com/spendtrack/spendtrack/internal/utils"
)

type ExpensesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewExpensesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ExpensesRepo {
	return &ExpensesRepo{pool: pool, prom: prom}
}

func (r *ExpensesRepo) Create(ctx context.Context, ownerID string, req expense.CreateExpenseRequest) (expense.Expense, error) {
	e := expense.NewFromCreateRequest(ownerID, req)

	err := r.prom.ObserveDB("expenses.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO expenses (id, title, amount, category, date, owner_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, e.Title, e.Amount, e.Category, e.Date, e.OwnerID, e.CreatedAt, e.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return expense.Expense{}, err
	}

	return e, nil
}

func (r *ExpensesRepo) ListByOwner(ctx context.Context, ownerID string) ([]expense.Expense, error) {
	var out []expense.Expense

	err := r.prom.ObserveDB("expenses.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, title, amount, category, date, owner_id, created_at, updated_at
			 FROM expenses
			 WHERE owner_id = $1
			 ORDER BY date DESC`,
			ownerID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]expense.Expense, 0)

		for rows.Next() {
			var e expense.Expense

			err = rows.Scan(&e.ID, &e.Title, &e.Amount, &e.Category, &e.Date, &e.OwnerID, &e.CreatedAt, &e.UpdatedAt)

			if err != nil {
				return err
			}

			out = append(out, e)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// GetByID filters by owner as well as id: an expense owned by somebody else
// is indistinguishable from one that does not exist.
func (r *ExpensesRepo) GetByID(ctx context.Context, ownerID, id string) (expense.Expense, error) {
	var e expense.Expense

	err := r.prom.ObserveDB("expenses.get", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, title, amount, category, date, owner_id, created_at, updated_at
			 FROM expenses
			 WHERE id = $1 AND owner_id = $2`,
			id, ownerID,
		).Scan(&e.ID, &e.Title, &e.Amount, &e.Category, &e.Date, &e.OwnerID, &e.CreatedAt, &e.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return expense.Expense{}, expense.ErrNotFound
		}
		return expense.Expense{}, err
	}

	return e, nil
}

func (r *ExpensesRepo) Update(ctx context.Context, ownerID, id string, req expense.UpdateExpenseRequest) (expense.Expense, error) {
	var e expense.Expense

	err := r.prom.ObserveDB("expenses.update", func() error {
		return r.pool.QueryRow(
			ctx,
			`UPDATE expenses
				SET title = $3,
						amount = $4,
						category = $5,
						date = $6,
						updated_at = NOW()
			WHERE id = $1 AND owner_id = $2
			RETURNING id, title, amount, category, date, owner_id, created_at, updated_at`,
			id,
			ownerID,
			strings.TrimSpace(req.Title),
			*req.Amount,
			req.Category,
			req.Date.Time,
		).Scan(
			&e.ID,
			&e.Title,
			&e.Amount,
			&e.Category,
			&e.Date,
			&e.OwnerID,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
	})

	if err != nil {
		// no row matching id+owner
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return expense.Expense{}, expense.ErrNotFound
		}
		return expense.Expense{}, err
	}

	return e, nil
}

func (r *ExpensesRepo) Delete(ctx context.Context, ownerID, id string) error {
	return r.prom.ObserveDB("expenses.delete", func() error {
		tag, err := r.pool.Exec(ctx, `
			DELETE FROM expenses WHERE id = $1 AND owner_id = $2
		`, id, ownerID)

		if err != nil {
			if isMalformedID(err) {
				return expense.ErrNotFound
			}
			return err
		}

		// if no rows were deleted as a result return a not found error
		if tag.RowsAffected() == 0 {
			return expense.ErrNotFound
		}

		return nil
	})
}

// Stats recomputes the three aggregates on every call. The month buckets are
// restricted to the trailing six calendar months from now.
func (r *ExpensesRepo) Stats(ctx context.Context, ownerID string, now time.Time) (expense.Stats, error) {
	stats := expense.Stats{
		ByCategory: make([]expense.CategoryTotal, 0),
		ByMonth:    make([]expense.MonthTotal, 0),
	}

	err := r.prom.ObserveDB("expenses.stats", func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE owner_id = $1`,
			ownerID,
		).Scan(&stats.Total)

		if err != nil {
			return err
		}

		rows, err := r.pool.Query(ctx,
			`SELECT category, SUM(amount) AS total
			 FROM expenses
			 WHERE owner_id = $1
			 GROUP BY category
			 ORDER BY total DESC`,
			ownerID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var ct expense.CategoryTotal

			if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
				return err
			}

			stats.ByCategory = append(stats.ByCategory, ct)
		}

		if err := rows.Err(); err != nil {
			return err
		}

		since := utils.TrailingMonthsStart(now, 6)

		monthRows, err := r.pool.Query(ctx,
			`SELECT EXTRACT(YEAR FROM date)::int AS year,
							EXTRACT(MONTH FROM date)::int AS month,
							SUM(amount) AS total
			 FROM expenses
			 WHERE owner_id = $1 AND date >= $2
			 GROUP BY year, month
			 ORDER BY year ASC, month ASC`,
			ownerID, since,
		)

		if err != nil {
			return err
		}

		defer monthRows.Close()

		for monthRows.Next() {
			var mt expense.MonthTotal

			if err := monthRows.Scan(&mt.Bucket.Year, &mt.Bucket.Month, &mt.Total); err != nil {
				return err
			}

			stats.ByMonth = append(stats.ByMonth, mt)
		}

		return monthRows.Err()
	})

	if err != nil {
		return expense.Stats{}, err
	}

	return stats, nil
}
