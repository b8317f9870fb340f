package bag

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmart/freshmart-pos/internal/platform/db"
	"github.com/freshmart/freshmart-pos/internal/shared"
)

// Repository persists bag lines in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns the owner's bag, newest first.
func (r *Repository) List(ctx context.Context, owner shared.Owner) ([]Item, error) {
	return ListItems(ctx, r.pool, owner)
}

// ListItems reads the owner's bag using q, which may be a transaction.
func ListItems(ctx context.Context, q db.DBTX, owner shared.Owner) ([]Item, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT b.bag_id, b.product_id, p.name,
		       CASE WHEN p.on_sale AND p.sale_price IS NOT NULL THEN p.sale_price ELSE p.price END,
		       b.quantity, b.added_at
		FROM bag b
		JOIN products p ON p.product_id = b.product_id
		WHERE b.%s = $1
		ORDER BY b.added_at DESC, b.bag_id DESC`, owner.Column()), owner.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.BagID, &it.ProductID, &it.Name, &it.Price, &it.Quantity, &it.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Add merges qty of productID into the owner's bag.
func (r *Repository) Add(ctx context.Context, owner shared.Owner, productID int64, qty int) (AddResult, error) {
	return Merge(ctx, r.pool, owner, productID, qty)
}

// Merge inserts a bag line or adds qty to the existing one. Inactive or
// missing products yield ErrInvalidProduct.
func Merge(ctx context.Context, q db.DBTX, owner shared.Owner, productID int64, qty int) (AddResult, error) {
	var active bool
	err := q.QueryRow(ctx, `SELECT is_active FROM products WHERE product_id = $1`, productID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && !active) {
		return AddResult{}, ErrInvalidProduct
	}
	if err != nil {
		return AddResult{}, err
	}

	col := owner.Column()
	var inserted bool
	err = q.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO bag (%[1]s, product_id, quantity, added_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (%[1]s, product_id) WHERE %[1]s IS NOT NULL
		DO UPDATE SET quantity = bag.quantity + EXCLUDED.quantity
		RETURNING (xmax = 0)`, col), owner.ID, productID, qty).Scan(&inserted)
	if err != nil {
		return AddResult{}, err
	}
	return AddResult{Merged: !inserted}, nil
}

// SetQuantity updates one line; qty <= 0 removes it.
func (r *Repository) SetQuantity(ctx context.Context, owner shared.Owner, bagID int64, qty int) error {
	if qty <= 0 {
		return r.Remove(ctx, owner, bagID)
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE bag SET quantity = $1 WHERE bag_id = $2 AND %s = $3`, owner.Column()), qty, bagID, owner.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Remove deletes one line.
func (r *Repository) Remove(ctx context.Context, owner shared.Owner, bagID int64) error {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM bag WHERE bag_id = $1 AND %s = $2`, owner.Column()), bagID, owner.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Clear empties the owner's bag.
func (r *Repository) Clear(ctx context.Context, owner shared.Owner) error {
	return ClearItems(ctx, r.pool, owner)
}

// ClearItems empties the owner's bag using q.
func ClearItems(ctx context.Context, q db.DBTX, owner shared.Owner) error {
	_, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM bag WHERE %s = $1`, owner.Column()), owner.ID)
	return err
}

// Count returns the total quantity in the owner's bag.
func (r *Repository) Count(ctx context.Context, owner shared.Owner) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COALESCE(SUM(quantity), 0) FROM bag WHERE %s = $1`, owner.Column()), owner.ID).Scan(&n)
	return n, err
}
