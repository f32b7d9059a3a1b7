package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/account"
)

const (
	insertUserSQL = `INSERT INTO users (email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4) RETURNING id`

	insertProfileSQL = `INSERT INTO profiles (user_id, email_verified, email_token) VALUES ($1, $2, $3)`

	findUserByEmailSQL = `SELECT u.id, u.email, u.first_name, u.last_name, u.password_hash,
		p.email_verified, p.email_token
		FROM users u JOIN profiles p ON p.user_id = u.id
		WHERE u.email = $1`

	activateProfileSQL = `UPDATE profiles SET email_verified = TRUE WHERE email_token = $1`
)

var _ account.Repository = (*AccountRepository)(nil)

// AccountRepository implements account.Repository backed by PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns an AccountRepository that uses the given pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create inserts the user and its profile in one transaction.
func (r *AccountRepository) Create(ctx context.Context, u *account.User) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertUserSQL,
			u.Email, u.FirstName, u.LastName, u.PasswordHash,
		).Scan(&u.ID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, insertProfileSQL, u.ID, u.Verified, u.EmailToken)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return account.ErrEmailTaken
		}
		return errors.Wrap(err, "create user")
	}
	return nil
}

// FindByEmail returns the user and profile for an email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.User, error) {
	var u account.User
	err := r.pool.QueryRow(ctx, findUserByEmailSQL, email).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.Verified, &u.EmailToken,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "find user by email")
	}
	return &u, nil
}

// Activate marks the profile holding token verified. Activating twice is not
// an error.
func (r *AccountRepository) Activate(ctx context.Context, token string) error {
	tag, err := r.pool.Exec(ctx, activateProfileSQL, token)
	if err != nil {
		return errors.Wrap(err, "activate profile")
	}
	if tag.RowsAffected() == 0 {
		return account.ErrInvalidToken
	}
	return nil
}
