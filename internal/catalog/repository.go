package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmart/freshmart-pos/internal/platform/db"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `p.product_id, p.name, COALESCE(p.description, ''), p.price, p.sale_price, p.on_sale,
	COALESCE(p.barcode, ''), p.quantity_in_stock, p.department_id, COALESCE(d.name, ''), COALESCE(p.image_url, ''), p.created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.SalePrice, &p.OnSale,
		&p.Barcode, &p.QuantityInStock, &p.DepartmentID, &p.DepartmentName, &p.ImageURL, &p.CreatedAt)
	return p, err
}

// ListDepartments returns all departments ordered by name.
func (r *Repository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT department_id, name FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DepartmentSummaries aggregates active product counts and stock per department.
func (r *Repository) DepartmentSummaries(ctx context.Context) ([]DepartmentSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.department_id, d.name, COUNT(p.product_id), COALESCE(SUM(p.quantity_in_stock), 0)
		FROM departments d
		LEFT JOIN products p ON p.department_id = d.department_id AND p.is_active
		GROUP BY d.department_id, d.name
		ORDER BY d.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DepartmentSummary
	for rows.Next() {
		var s DepartmentSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.ProductCount, &s.UnitsInStock); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListProducts returns active products matching filter.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	var (
		where = []string{"p.is_active"}
		args  []any
	)
	if filter.DepartmentID > 0 {
		args = append(args, filter.DepartmentID)
		where = append(where, fmt.Sprintf("p.department_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}
	if filter.OnSale != nil {
		args = append(args, *filter.OnSale)
		where = append(where, fmt.Sprintf("p.on_sale = $%d", len(args)))
	}
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN departments d ON d.department_id = p.department_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProduct returns an active product.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+`
		FROM products p
		LEFT JOIN departments d ON d.department_id = p.department_id
		WHERE p.product_id = $1 AND p.is_active`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

// DepartmentExists reports whether id is a known department.
func (r *Repository) DepartmentExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM departments WHERE department_id = $1)`, id).Scan(&ok)
	return ok, err
}

// CreateProduct inserts the product and its inventory row in one transaction.
func (r *Repository) CreateProduct(ctx context.Context, in NewProductInput) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now()
		err := tx.QueryRow(ctx, `
			INSERT INTO products (name, description, price, barcode, quantity_in_stock, department_id, image_url, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), TRUE, $8, $8)
			RETURNING product_id`,
			in.Name, in.Description, in.Price, in.Barcode, in.QuantityInStock, in.DepartmentID, in.ImageURL, now).Scan(&id)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO inventory (product_id, quantity_available, reorder_level, last_restock_date)
			VALUES ($1, $2, $3, $4)`, id, in.QuantityInStock, DefaultReorderLevel, now)
		return err
	})
	if db.IsUniqueViolation(err, "products_barcode_key") {
		return 0, ErrBarcodeTaken
	}
	return id, err
}

// UpdateProduct applies the non-nil fields of in.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, in UpdateProductInput) error {
	sets := []string{"updated_at = NOW()"}
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Price != nil {
		add("price", *in.Price)
	}
	if in.DepartmentID != nil {
		add("department_id", *in.DepartmentID)
	}
	if in.ImageURL != nil {
		add("image_url", *in.ImageURL)
	}
	args = append(args, id)
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE products SET %s WHERE product_id = $%d AND is_active`,
		strings.Join(sets, ", "), len(args)), args...)
	return affected(tag, err)
}

// DeactivateProduct soft deletes the product.
func (r *Repository) DeactivateProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE product_id = $1 AND is_active`, id)
	return affected(tag, err)
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
