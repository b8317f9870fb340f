package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmart/freshmart-pos/internal/platform/db"
	"github.com/freshmart/freshmart-pos/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindAccount(ctx context.Context, role shared.Role, username string) (Account, error)
	CustomerEmailExists(ctx context.Context, email string) (bool, error)
	CustomerUsernameExists(ctx context.Context, username string) (bool, error)
	CreateCustomer(ctx context.Context, reg Registration, passwordHash string) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var accountQueries = map[shared.Role]string{
	shared.RoleAdmin:    `SELECT admin_id, username, name, password_hash FROM administrators WHERE username = $1`,
	shared.RoleEmployee: `SELECT employee_id, username, name, password_hash FROM employees WHERE username = $1 AND is_active`,
	shared.RoleCustomer: `SELECT customer_id, username, name, password_hash FROM customers WHERE username = $1`,
}

// FindAccount loads the account with username from the role's table.
func (r *PGRepository) FindAccount(ctx context.Context, role shared.Role, username string) (Account, error) {
	query, ok := accountQueries[role]
	if !ok {
		return Account{}, fmt.Errorf("auth: unknown role %q", role)
	}
	acc := Account{Role: role}
	err := r.pool.QueryRow(ctx, query, username).Scan(&acc.ID, &acc.Username, &acc.Name, &acc.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return acc, nil
}

// CustomerEmailExists reports whether a customer already uses email.
func (r *PGRepository) CustomerEmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

// CustomerUsernameExists reports whether a customer already uses username.
func (r *PGRepository) CustomerUsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

// CreateCustomer inserts the customer and returns its ID. Unique violations
// that slip past the existence checks are mapped to the same conflicts.
func (r *PGRepository) CreateCustomer(ctx context.Context, reg Registration, passwordHash string) (int64, error) {
	var phone *string
	if reg.Phone != "" {
		phone = &reg.Phone
	}
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (username, name, phone, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING customer_id`, reg.Username, reg.Name, phone, reg.Email, passwordHash).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case db.IsUniqueViolation(err, "customers_email_key"):
		return 0, ErrEmailTaken
	case db.IsUniqueViolation(err, "customers_username_key"):
		return 0, ErrUsernameTaken
	default:
		return 0, err
	}
}

var _ Repository = (*PGRepository)(nil)
