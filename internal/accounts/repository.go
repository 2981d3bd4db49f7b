// Package accounts is the Postgres-backed user module: repository, service,
// HTTP handlers and the sample data seeder.
package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("account not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// Account is a row of the users table.
type Account struct {
	ID        int     `db:"id" json:"id"`
	Username  string  `db:"username" json:"username"`
	FirstName *string `db:"first_name" json:"firstName"`
	LastName  *string `db:"last_name" json:"lastName"`
	Password  *string `db:"password" json:"-"`
	Age       *int    `db:"age" json:"age"`
}

// Repository is the persistence the service needs.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	FindAll(ctx context.Context) ([]Account, error)
	FindByID(ctx context.Context, id int) (*Account, error)
	Update(ctx context.Context, a *Account) error
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context) (int, error)
	Truncate(ctx context.Context) error
}

// PostgresRepository implements Repository with sqlx.
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectAccount = `SELECT id, username, first_name, last_name, password, age FROM users`

func (r *PostgresRepository) Create(ctx context.Context, a *Account) error {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (username, first_name, last_name, password, age) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.Username, a.FirstName, a.LastName, a.Password, a.Age,
	).Scan(&a.ID)
	return translate(err)
}

func (r *PostgresRepository) FindAll(ctx context.Context) ([]Account, error) {
	var out []Account
	if err := r.db.SelectContext(ctx, &out, selectAccount+` ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int) (*Account, error) {
	var a Account
	if err := r.db.GetContext(ctx, &a, selectAccount+` WHERE id = $1`, id); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = $1, first_name = $2, last_name = $3, password = $4, age = $5 WHERE id = $6`,
		a.Username, a.FirstName, a.LastName, a.Password, a.Age, a.ID,
	)
	if err != nil {
		return translate(err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}

func (r *PostgresRepository) Truncate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `TRUNCATE TABLE users RESTART IDENTITY`)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateUsername
	}
	return err
}
