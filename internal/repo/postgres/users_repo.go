package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spendtrack/spendtrack/internal/domain/user"
	"github.com/spendtrack/spendtrack/internal/observability"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.prom.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_email", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, name, email, password_hash, created_at, updated_at
			 FROM users
			 WHERE email = $1`,
			email,
		).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.PasswordHash,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_id", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, name, email, password_hash, created_at, updated_at
			 FROM users
			 WHERE id = $1`,
			id,
		).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.PasswordHash,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// A non-UUID id cannot match any row; treat it as not found rather than a
// server error, the way the API contract requires.
func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
