package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/freshmart/freshmart-pos/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	LockLevel(ctx context.Context, productID int64) (Level, error)
	SetStock(ctx context.Context, productID int64, qty int, restocked bool) error
	RaiseAlert(ctx context.Context, productID int64, qty, level int) (bool, error)
	ResolveOpenAlerts(ctx context.Context, productID int64) (int, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// RaiseAlert inserts a reorder alert unless the product already has an open
// one. It reports whether a row was inserted.
func RaiseAlert(ctx context.Context, q db.DBTX, productID int64, qty, level int) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO reorder_alerts (product_id, quantity_at_alert, reorder_level, created_at)
		SELECT $1, $2, $3, NOW()
		WHERE NOT EXISTS (SELECT 1 FROM reorder_alerts WHERE product_id = $1 AND resolved_at IS NULL)
		ON CONFLICT (product_id) WHERE resolved_at IS NULL DO NOTHING`,
		productID, qty, level)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepository) LockLevel(ctx context.Context, productID int64) (Level, error) {
	lvl := Level{ProductID: productID}
	err := t.tx.QueryRow(ctx, `SELECT quantity_in_stock FROM products WHERE product_id = $1 FOR UPDATE`, productID).Scan(&lvl.QuantityInStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return Level{}, ErrProductNotFound
	}
	if err != nil {
		return Level{}, err
	}
	err = t.tx.QueryRow(ctx, `SELECT reorder_level FROM inventory WHERE product_id = $1 FOR UPDATE`, productID).Scan(&lvl.ReorderLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO inventory (product_id, quantity_available, reorder_level, last_restock_date)
			VALUES ($1, $2, $3, NOW())`, productID, lvl.QuantityInStock, DefaultReorderLevel); err != nil {
			return Level{}, err
		}
		lvl.ReorderLevel = DefaultReorderLevel
		return lvl, nil
	}
	return lvl, err
}

func (t *txRepository) SetStock(ctx context.Context, productID int64, qty int, restocked bool) error {
	if _, err := t.tx.Exec(ctx, `UPDATE products SET quantity_in_stock = $1, updated_at = NOW() WHERE product_id = $2`, qty, productID); err != nil {
		return err
	}
	query := `UPDATE inventory SET quantity_available = $1 WHERE product_id = $2`
	if restocked {
		query = `UPDATE inventory SET quantity_available = $1, last_restock_date = NOW() WHERE product_id = $2`
	}
	_, err := t.tx.Exec(ctx, query, qty, productID)
	return err
}

func (t *txRepository) RaiseAlert(ctx context.Context, productID int64, qty, level int) (bool, error) {
	return RaiseAlert(ctx, t.tx, productID, qty, level)
}

func (t *txRepository) ResolveOpenAlerts(ctx context.Context, productID int64) (int, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE reorder_alerts SET resolved_at = NOW() WHERE product_id = $1 AND resolved_at IS NULL`, productID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// LowStock lists active products at or below their reorder level. A
// departmentID of zero means all departments.
func (r *Repository) LowStock(ctx context.Context, departmentID int64) ([]LowStockItem, error) {
	args := []any{}
	query := `
		SELECT p.product_id, p.name, p.quantity_in_stock, i.reorder_level
		FROM products p
		JOIN inventory i ON i.product_id = p.product_id
		WHERE p.is_active AND p.quantity_in_stock <= i.reorder_level`
	if departmentID > 0 {
		args = append(args, departmentID)
		query += ` AND p.department_id = $1`
	}
	query += ` ORDER BY p.quantity_in_stock, p.name`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LowStockItem, error) {
		var it LowStockItem
		err := row.Scan(&it.ProductID, &it.Name, &it.QuantityInStock, &it.ReorderLevel)
		return it, err
	})
}

// Alerts lists reorder alerts, newest first.
func (r *Repository) Alerts(ctx context.Context, openOnly bool) ([]Alert, error) {
	query := `
		SELECT a.alert_id, a.product_id, p.name, a.quantity_at_alert, a.reorder_level, a.created_at, a.resolved_at
		FROM reorder_alerts a
		JOIN products p ON p.product_id = a.product_id`
	if openOnly {
		query += ` WHERE a.resolved_at IS NULL`
	}
	query += ` ORDER BY a.created_at DESC, a.alert_id DESC LIMIT 500`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Alert, error) {
		var a Alert
		err := row.Scan(&a.AlertID, &a.ProductID, &a.ProductName, &a.QuantityAtAlert, &a.ReorderLevel, &a.CreatedAt, &a.ResolvedAt)
		return a, err
	})
}

// ResolveAlert closes one open alert.
func (r *Repository) ResolveAlert(ctx context.Context, alertID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE reorder_alerts SET resolved_at = NOW() WHERE alert_id = $1 AND resolved_at IS NULL`, alertID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// ApplySale locks the active products (optionally one department) and sets
// each sale price to salePrice(price).
func (r *Repository) ApplySale(ctx context.Context, departmentID *int64, salePrice func(price decimal.Decimal) decimal.Decimal) (int64, error) {
	var updated int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{}
		query := `SELECT product_id, price FROM products WHERE is_active`
		if departmentID != nil {
			args = append(args, *departmentID)
			query += ` AND department_id = $1`
		}
		query += ` ORDER BY product_id FOR UPDATE`
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		type priced struct {
			id    int64
			price decimal.Decimal
		}
		products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (priced, error) {
			var p priced
			err := row.Scan(&p.id, &p.price)
			return p, err
		})
		if err != nil {
			return err
		}
		if len(products) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, p := range products {
			batch.Queue(`UPDATE products SET sale_price = $1, on_sale = TRUE, updated_at = NOW() WHERE product_id = $2`,
				salePrice(p.price), p.id)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("apply sale prices: %w", err)
		}
		updated = int64(len(products))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// EndSale clears sale prices.
func (r *Repository) EndSale(ctx context.Context, departmentID *int64) (int64, error) {
	args := []any{}
	query := `UPDATE products SET sale_price = NULL, on_sale = FALSE, updated_at = NOW() WHERE on_sale`
	if departmentID != nil {
		args = append(args, *departmentID)
		query += ` AND department_id = $1`
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ScanReorder raises alerts for every active product at or below its level
// that has no open alert. It returns the number of alerts inserted.
func (r *Repository) ScanReorder(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO reorder_alerts (product_id, quantity_at_alert, reorder_level, created_at)
		SELECT p.product_id, p.quantity_in_stock, i.reorder_level, NOW()
		FROM products p
		JOIN inventory i ON i.product_id = p.product_id
		WHERE p.is_active
		  AND p.quantity_in_stock <= i.reorder_level
		  AND NOT EXISTS (SELECT 1 FROM reorder_alerts a WHERE a.product_id = p.product_id AND a.resolved_at IS NULL)
		ON CONFLICT (product_id) WHERE resolved_at IS NULL DO NOTHING`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
