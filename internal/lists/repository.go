package lists

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmart/freshmart-pos/internal/bag"
	"github.com/freshmart/freshmart-pos/internal/platform/db"
	"github.com/freshmart/freshmart-pos/internal/shared"
)

// Repository persists shopping lists in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureDefault creates the default list when the owner has no lists yet.
// Concurrent first visits race on the per-owner default index and only one
// insert lands.
func (r *Repository) EnsureDefault(ctx context.Context, owner shared.Owner) error {
	_, err := r.pool.Exec(ctx, ensureDefaultSQL(owner.Column()), owner.ID, DefaultListName)
	return err
}

func ensureDefaultSQL(col string) string {
	return fmt.Sprintf(`
		INSERT INTO shopping_lists (%[1]s, name, is_default, created_at)
		SELECT $1, $2, TRUE, NOW()
		WHERE NOT EXISTS (SELECT 1 FROM shopping_lists WHERE %[1]s = $1)
		ON CONFLICT (%[1]s) WHERE is_default DO NOTHING`, col)
}

// Lists returns the owner's lists, default first.
func (r *Repository) Lists(ctx context.Context, owner shared.Owner) ([]List, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT l.list_id, l.name, l.is_default, COUNT(i.product_id), l.created_at
		FROM shopping_lists l
		LEFT JOIN shopping_list_items i ON i.list_id = l.list_id
		WHERE l.%s = $1
		GROUP BY l.list_id
		ORDER BY l.is_default DESC, l.created_at, l.list_id`, owner.Column()), owner.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []List
	for rows.Next() {
		var l List
		if err := rows.Scan(&l.ListID, &l.Name, &l.IsDefault, &l.ItemCount, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Create inserts a non-default list.
func (r *Repository) Create(ctx context.Context, owner shared.Owner, name string) (List, error) {
	l := List{Name: name}
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO shopping_lists (%s, name, is_default, created_at)
		VALUES ($1, $2, FALSE, NOW())
		RETURNING list_id, created_at`, owner.Column()), owner.ID, name).Scan(&l.ListID, &l.CreatedAt)
	return l, err
}

// Rename changes the list name.
func (r *Repository) Rename(ctx context.Context, owner shared.Owner, listID int64, name string) error {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE shopping_lists SET name = $1 WHERE list_id = $2 AND %s = $3`, owner.Column()), name, listID, owner.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrListNotFound
	}
	return nil
}

// Delete removes a non-default list and its items.
func (r *Repository) Delete(ctx context.Context, owner shared.Owner, listID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var isDefault bool
		err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT is_default FROM shopping_lists WHERE list_id = $1 AND %s = $2 FOR UPDATE`, owner.Column()), listID, owner.ID).Scan(&isDefault)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrListNotFound
		}
		if err != nil {
			return err
		}
		if isDefault {
			return ErrDefaultList
		}
		if _, err := tx.Exec(ctx, `DELETE FROM shopping_list_items WHERE list_id = $1`, listID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM shopping_lists WHERE list_id = $1`, listID)
		return err
	})
}

func owns(ctx context.Context, q db.DBTX, owner shared.Owner, listID int64) error {
	var ok bool
	err := q.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM shopping_lists WHERE list_id = $1 AND %s = $2)`, owner.Column()), listID, owner.ID).Scan(&ok)
	if err != nil {
		return err
	}
	if !ok {
		return ErrListNotFound
	}
	return nil
}

// Items returns the list's items, newest first.
func (r *Repository) Items(ctx context.Context, owner shared.Owner, listID int64) ([]Item, error) {
	if err := owns(ctx, r.pool, owner, listID); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT i.product_id, p.name,
		       CASE WHEN p.on_sale AND p.sale_price IS NOT NULL THEN p.sale_price ELSE p.price END,
		       i.quantity, i.added_at
		FROM shopping_list_items i
		JOIN products p ON p.product_id = i.product_id
		WHERE i.list_id = $1
		ORDER BY i.added_at DESC, i.product_id`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.Quantity, &it.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpsertItem adds qty of productID to the list, merging with an existing row.
func (r *Repository) UpsertItem(ctx context.Context, owner shared.Owner, listID, productID int64, qty int) error {
	if err := owns(ctx, r.pool, owner, listID); err != nil {
		return err
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE product_id = $1 AND is_active)`, productID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrInvalidItem
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO shopping_list_items (list_id, product_id, quantity, added_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (list_id, product_id) DO UPDATE SET quantity = shopping_list_items.quantity + EXCLUDED.quantity`,
		listID, productID, qty)
	return err
}

// SetItemQuantity updates one item; qty <= 0 removes it.
func (r *Repository) SetItemQuantity(ctx context.Context, owner shared.Owner, listID, productID int64, qty int) error {
	if qty <= 0 {
		return r.RemoveItem(ctx, owner, listID, productID)
	}
	if err := owns(ctx, r.pool, owner, listID); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE shopping_list_items SET quantity = $1 WHERE list_id = $2 AND product_id = $3`, qty, listID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// RemoveItem deletes one item.
func (r *Repository) RemoveItem(ctx context.Context, owner shared.Owner, listID, productID int64) error {
	if err := owns(ctx, r.pool, owner, listID); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM shopping_list_items WHERE list_id = $1 AND product_id = $2`, listID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ClearItems empties the list.
func (r *Repository) ClearItems(ctx context.Context, owner shared.Owner, listID int64) error {
	if err := owns(ctx, r.pool, owner, listID); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM shopping_list_items WHERE list_id = $1`, listID)
	return err
}

// AddToBag merges every item of the list into the owner's bag atomically.
// Inactive products are skipped.
func (r *Repository) AddToBag(ctx context.Context, owner shared.Owner, listID int64) (int, error) {
	added := 0
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := owns(ctx, tx, owner, listID); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `
			SELECT i.product_id, i.quantity
			FROM shopping_list_items i
			JOIN products p ON p.product_id = i.product_id AND p.is_active
			WHERE i.list_id = $1
			ORDER BY i.product_id`, listID)
		if err != nil {
			return err
		}
		type line struct {
			productID int64
			qty       int
		}
		lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (line, error) {
			var l line
			err := row.Scan(&l.productID, &l.qty)
			return l, err
		})
		if err != nil {
			return err
		}
		for _, l := range lines {
			if _, err := bag.Merge(ctx, tx, owner, l.productID, l.qty); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
