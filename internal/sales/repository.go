package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmart/freshmart-pos/internal/bag"
	"github.com/freshmart/freshmart-pos/internal/inventory"
	"github.com/freshmart/freshmart-pos/internal/shared"
)

// Repository persists sales data in PostgreSQL.
type Repository struct {
	pool        *pgxpool.Pool
	idempotency *shared.IdempotencyStore
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, idempotency: shared.NewIdempotencyStore("checkout")}
}

// TxRepository exposes transactional operations used by checkout.
type TxRepository interface {
	ClaimIdempotency(ctx context.Context, key string) error
	BagLines(ctx context.Context, owner shared.Owner) ([]BagLine, error)
	LockStock(ctx context.Context, productIDs []int64) (map[int64]StockRow, error)
	DecrementStock(ctx context.Context, productID int64, qty int) error
	InsertTransaction(ctx context.Context, h Header) (int64, error)
	InsertLines(ctx context.Context, txID int64, lines []Line) error
	RaiseReorderAlert(ctx context.Context, productID int64, qty, level int) (bool, error)
	ClearBag(ctx context.Context, owner shared.Owner) error
}

type txRepo struct {
	tx          pgx.Tx
	idempotency *shared.IdempotencyStore
}

// WithTx executes the callback inside a read-committed transaction. Row
// locks taken by LockStock serialize concurrent checkouts.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepo{tx: tx, idempotency: r.idempotency}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (t *txRepo) ClaimIdempotency(ctx context.Context, key string) error {
	return t.idempotency.Claim(ctx, t.tx, key)
}

func (t *txRepo) BagLines(ctx context.Context, owner shared.Owner) ([]BagLine, error) {
	rows, err := t.tx.Query(ctx, fmt.Sprintf(`
		SELECT product_id, quantity FROM bag WHERE %s = $1 ORDER BY product_id`, owner.Column()), owner.ID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (BagLine, error) {
		var l BagLine
		err := row.Scan(&l.ProductID, &l.Quantity)
		return l, err
	})
}

func (t *txRepo) LockStock(ctx context.Context, productIDs []int64) (map[int64]StockRow, error) {
	out := make(map[int64]StockRow, len(productIDs))
	rows, err := t.tx.Query(ctx, `
		SELECT product_id, name, price, sale_price, on_sale, is_active, quantity_in_stock
		FROM products
		WHERE product_id = ANY($1)
		ORDER BY product_id
		FOR UPDATE`, productIDs)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var s StockRow
		if err := rows.Scan(&s.ProductID, &s.Name, &s.Price, &s.SalePrice, &s.OnSale, &s.IsActive, &s.QuantityInStock); err != nil {
			rows.Close()
			return nil, err
		}
		out[s.ProductID] = s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.tx.Query(ctx, `
		SELECT product_id, quantity_available, reorder_level
		FROM inventory
		WHERE product_id = ANY($1)
		ORDER BY product_id
		FOR UPDATE`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var avail, level int
		if err := rows.Scan(&id, &avail, &level); err != nil {
			return nil, err
		}
		if s, ok := out[id]; ok {
			s.QuantityAvailable, s.ReorderLevel, s.HasInventory = avail, level, true
			out[id] = s
		}
	}
	return out, rows.Err()
}

func (t *txRepo) DecrementStock(ctx context.Context, productID int64, qty int) error {
	if _, err := t.tx.Exec(ctx, `
		UPDATE products SET quantity_in_stock = quantity_in_stock - $1, updated_at = NOW()
		WHERE product_id = $2`, qty, productID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE inventory SET quantity_available = GREATEST(quantity_available - $1, 0)
		WHERE product_id = $2`, qty, productID)
	return err
}

func (t *txRepo) InsertTransaction(ctx context.Context, h Header) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO sales_transactions (customer_id, employee_id, transaction_date, total_amount, payment_method, order_status, order_discount, shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING transaction_id`,
		h.CustomerID, h.EmployeeID, h.TransactionDate, h.TotalAmount, h.PaymentMethod, h.OrderStatus, h.OrderDiscount, h.ShippingAddress).Scan(&id)
	return id, err
}

func (t *txRepo) InsertLines(ctx context.Context, txID int64, lines []Line) error {
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`
			INSERT INTO transaction_details (transaction_id, product_id, quantity, price, discount, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)`, txID, l.ProductID, l.Quantity, l.Price, l.Discount, l.Subtotal)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *txRepo) RaiseReorderAlert(ctx context.Context, productID int64, qty, level int) (bool, error) {
	return inventory.RaiseAlert(ctx, t.tx, productID, qty, level)
}

func (t *txRepo) ClearBag(ctx context.Context, owner shared.Owner) error {
	return bag.ClearItems(ctx, t.tx, owner)
}

// CustomerEmail returns the e-mail of a customer, or "" when unknown.
func (r *Repository) CustomerEmail(ctx context.Context, customerID int64) (string, error) {
	var email string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(email, '') FROM customers WHERE customer_id = $1`, customerID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return email, err
}

// CustomerOrders returns one page of a customer's orders, newest first, and the total count.
func (r *Repository) CustomerOrders(ctx context.Context, customerID int64, page shared.Page) ([]OrderSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales_transactions WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT t.transaction_id, t.transaction_date,
		       (SELECT COUNT(*) FROM transaction_details d WHERE d.transaction_id = t.transaction_id),
		       t.total_amount, COALESCE(t.order_discount, 0), t.order_status
		FROM sales_transactions t
		WHERE t.customer_id = $1
		ORDER BY t.transaction_date DESC, t.transaction_id DESC
		LIMIT $2 OFFSET $3`, customerID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderSummary, error) {
		var o OrderSummary
		err := row.Scan(&o.TransactionID, &o.TransactionDate, &o.ItemCount, &o.TotalAmount, &o.OrderDiscount, &o.OrderStatus)
		return o, err
	})
	return orders, total, err
}

// Receipt loads header and lines of a transaction.
func (r *Repository) Receipt(ctx context.Context, txID int64) (Receipt, error) {
	var rc Receipt
	h := &rc.Header
	err := r.pool.QueryRow(ctx, `
		SELECT t.transaction_id, t.transaction_date, t.customer_id,
		       COALESCE(c.name, 'Walk-in'), COALESCE(c.email, ''),
		       t.payment_method, t.order_status, COALESCE(t.shipping_address, '')
		FROM sales_transactions t
		LEFT JOIN customers c ON c.customer_id = t.customer_id
		WHERE t.transaction_id = $1`, txID).
		Scan(&h.TransactionID, &h.TransactionDate, &h.CustomerID, &h.CustomerName, &h.CustomerEmail, &h.PaymentMethod, &h.OrderStatus, &h.ShippingAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return Receipt{}, ErrOrderNotFound
	}
	if err != nil {
		return Receipt{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT p.name, d.quantity, d.price, COALESCE(d.discount, 0), d.subtotal, COALESCE(e.name, '')
		FROM transaction_details d
		JOIN products p ON p.product_id = d.product_id
		JOIN sales_transactions t ON t.transaction_id = d.transaction_id
		LEFT JOIN employees e ON e.employee_id = t.employee_id
		WHERE d.transaction_id = $1
		ORDER BY d.detail_id`, txID)
	if err != nil {
		return Receipt{}, err
	}
	rc.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ReceiptItem, error) {
		var it ReceiptItem
		err := row.Scan(&it.ProductName, &it.Quantity, &it.Price, &it.Discount, &it.Subtotal, &it.EmployeeName)
		return it, err
	})
	if err != nil {
		return Receipt{}, err
	}
	rc.Summarize()
	return rc, nil
}

var transactionSorts = map[string]string{
	"date":   "t.transaction_date",
	"amount": "t.total_amount",
}

// Transactions lists transactions for staff.
func (r *Repository) Transactions(ctx context.Context, f TransactionFilter) ([]TransactionRow, error) {
	var (
		where []string
		args  []any
	)
	if f.Employee != "" {
		args = append(args, "%"+f.Employee+"%")
		where = append(where, fmt.Sprintf("e.name ILIKE $%d", len(args)))
	}
	if f.PaymentMethod != "" {
		args = append(args, f.PaymentMethod)
		where = append(where, fmt.Sprintf("t.payment_method = $%d", len(args)))
	}
	query := `
		SELECT t.transaction_id, t.transaction_date, COALESCE(c.name, ''), COALESCE(e.name, ''), t.payment_method, t.total_amount
		FROM sales_transactions t
		LEFT JOIN customers c ON c.customer_id = t.customer_id
		LEFT JOIN employees e ON e.employee_id = t.employee_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	col, ok := transactionSorts[f.SortBy]
	if !ok {
		col = transactionSorts["date"]
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY %s %s, t.transaction_id %s LIMIT $%d", col, dir, dir, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TransactionRow, error) {
		var t TransactionRow
		err := row.Scan(&t.TransactionID, &t.TransactionDate, &t.CustomerName, &t.EmployeeName, &t.PaymentMethod, &t.TotalAmount)
		return t, err
	})
}
