// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mealbox-service/internal/domain/user"
	xerrors "mealbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, full_name, phone, password_hash, password_set, role, status, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.Phone,
		&u.PasswordHash, &u.PasswordSet, &u.Role, &u.Status,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// Create inserts a user. The caller decides whether a password is set yet.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (email, full_name, phone, password_hash, password_set, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(
		ctx, query,
		u.Email, u.FullName, u.Phone, u.PasswordHash, u.PasswordSet, u.Role, u.Status,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return xerrors.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// CreateTx inserts a user within a transaction.
func (r *UserRepository) CreateTx(ctx context.Context, tx pgx.Tx, u *user.User) error {
	query := `
		INSERT INTO users (email, full_name, phone, password_hash, password_set, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := tx.QueryRow(
		ctx, query,
		u.Email, u.FullName, u.Phone, u.PasswordHash, u.PasswordSet, u.Role, u.Status,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// FindByEmailTx looks a user up inside a transaction, locking the row so two
// concurrent reconciliations cannot both decide to create the same user.
func (r *UserRepository) FindByEmailTx(ctx context.Context, tx pgx.Tx, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) FOR UPDATE`
	return scanUser(tx.QueryRow(ctx, query, email))
}

// SetPassword stores a hash and marks the account activated.
func (r *UserRepository) SetPassword(ctx context.Context, id int64, hash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, password_set = TRUE, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.Exec(ctx, query, hash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
