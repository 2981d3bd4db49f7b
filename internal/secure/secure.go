// Package secure stores users with sensitive columns encrypted at rest.
// Email, SSN and notes are sealed before insert and opened after select.
package secure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/vault"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("secure user not found")

// User is the decrypted view of a row.
type User struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	SSN            *string   `json:"ssn"`
	PhoneNumber    *string   `json:"phoneNumber"`
	SensitiveNotes *string   `json:"sensitiveNotes"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Row is a secure_users row exactly as stored.
type Row struct {
	ID             int       `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	SSN            *string   `db:"ssn" json:"ssn"`
	PhoneNumber    *string   `db:"phone_number" json:"phoneNumber"`
	SensitiveNotes *string   `db:"sensitive_notes" json:"sensitiveNotes"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// CreateUserDto is the body of POST /users.
type CreateUserDto struct {
	Name           string  `json:"name" binding:"required,max=100"`
	Email          string  `json:"email" binding:"required,email,max=200"`
	SSN            *string `json:"ssn" binding:"omitempty,max=50"`
	PhoneNumber    *string `json:"phoneNumber" binding:"omitempty,max=50"`
	SensitiveNotes *string `json:"sensitiveNotes"`
}

// Repository reads and writes secure_users through a Cipher.
type Repository struct {
	db     *sqlx.DB
	cipher *vault.Cipher
}

func NewRepository(db *sqlx.DB, cipher *vault.Cipher) *Repository {
	return &Repository{db: db, cipher: cipher}
}

const selectRow = `SELECT id, name, email, ssn, phone_number, sensitive_notes, created_at, updated_at FROM secure_users`

func (r *Repository) Create(ctx context.Context, in CreateUserDto) (*User, error) {
	email, err := r.cipher.Seal(in.Email)
	if err != nil {
		return nil, fmt.Errorf("encrypt email: %w", err)
	}
	ssn, err := r.cipher.SealOptional(in.SSN)
	if err != nil {
		return nil, fmt.Errorf("encrypt ssn: %w", err)
	}
	notes, err := r.cipher.SealOptional(in.SensitiveNotes)
	if err != nil {
		return nil, fmt.Errorf("encrypt notes: %w", err)
	}

	row := Row{Name: in.Name, Email: email, SSN: ssn, PhoneNumber: emptyToNil(in.PhoneNumber), SensitiveNotes: notes}
	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO secure_users (name, email, ssn, phone_number, sensitive_notes) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`,
		row.Name, row.Email, row.SSN, row.PhoneNumber, row.SensitiveNotes,
	).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r.open(row)
}

// FindAll returns every user, newest first.
func (r *Repository) FindAll(ctx context.Context) ([]User, error) {
	rows, err := r.Raw(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(rows))
	for _, row := range rows {
		u, err := r.open(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}

// Raw returns the stored rows without decrypting, newest first.
func (r *Repository) Raw(ctx context.Context) ([]Row, error) {
	rows := []Row{}
	if err := r.db.SelectContext(ctx, &rows, selectRow+` ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindOne(ctx context.Context, id int) (*User, error) {
	var row Row
	err := r.db.GetContext(ctx, &row, selectRow+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.open(row)
}

func (r *Repository) Remove(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM secure_users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) open(row Row) (*User, error) {
	email, err := r.cipher.Open(row.Email)
	if err != nil {
		return nil, fmt.Errorf("decrypt email of user %d: %w", row.ID, err)
	}
	ssn, err := r.cipher.OpenOptional(row.SSN)
	if err != nil {
		return nil, fmt.Errorf("decrypt ssn of user %d: %w", row.ID, err)
	}
	notes, err := r.cipher.OpenOptional(row.SensitiveNotes)
	if err != nil {
		return nil, fmt.Errorf("decrypt notes of user %d: %w", row.ID, err)
	}
	return &User{
		ID:             row.ID,
		Name:           row.Name,
		Email:          email,
		SSN:            ssn,
		PhoneNumber:    row.PhoneNumber,
		SensitiveNotes: notes,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
