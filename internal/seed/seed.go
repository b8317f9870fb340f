// Package seed loads demo data for local development.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/freshmart/freshmart-pos/internal/platform/db"
)

// Department is a seeded department.
type Department struct {
	Name     string
	Products []Product
}

// Product is a seeded product.
type Product struct {
	Name        string
	Description string
	Price       string
	Barcode     string
	Stock       int
	Reorder     int
}

// Account is a seeded login.
type Account struct {
	Username   string
	Name       string
	Email      string
	Password   string
	JobTitle   string
	Department string
}

// Data is the full demo dataset.
type Data struct {
	Departments []Department
	Admins      []Account
	Employees   []Account
	Customers   []Account
}

// Demo returns the default demo dataset.
func Demo() Data {
	return Data{
		Departments: []Department{
			{Name: "Produce", Products: []Product{
				{"Gala Apples", "Crisp sweet apples, per lb", "1.49", "100000000011", 120, 20},
				{"Bananas", "Ripe bananas, per lb", "0.59", "100000000028", 200, 30},
				{"Baby Spinach", "Washed baby spinach, 5 oz", "3.99", "100000000035", 8, 10},
			}},
			{Name: "Dairy", Products: []Product{
				{"Whole Milk", "Vitamin D whole milk, 1 gal", "3.79", "200000000017", 60, 15},
				{"Greek Yogurt", "Plain Greek yogurt, 32 oz", "5.49", "200000000024", 25, 10},
				{"Cheddar Cheese", "Sharp cheddar block, 8 oz", "4.29", "200000000031", 5, 10},
			}},
			{Name: "Bakery", Products: []Product{
				{"Sourdough Loaf", "Fresh baked sourdough", "4.99", "300000000016", 18, 6},
				{"Blueberry Muffins", "Four pack", "5.99", "300000000023", 12, 6},
			}},
			{Name: "Beverages", Products: []Product{
				{"Sparkling Water", "Lime sparkling water, 12 pack", "5.29", "400000000015", 45, 12},
				{"Cold Brew Coffee", "Unsweetened, 32 oz", "6.49", "400000000022", 0, 8},
			}},
		},
		Admins: []Account{
			{Username: "admin", Name: "Ada Admin", Email: "admin@freshmart.local", Password: "admin123"},
		},
		Employees: []Account{
			{Username: "eve", Name: "Eve Clerk", Email: "eve@freshmart.local", Password: "employee123", JobTitle: "Cashier", Department: "Produce"},
			{Username: "omar", Name: "Omar Stock", Email: "omar@freshmart.local", Password: "employee123", JobTitle: "Stock Associate", Department: "Dairy"},
		},
		Customers: []Account{
			{Username: "sam", Name: "Sam Shopper", Email: "sam@example.com", Password: "customer123"},
		},
	}
}

// Run upserts data inside a single transaction. It is safe to run twice.
func Run(ctx context.Context, pool db.Beginner, data Data, cost int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		deptIDs := make(map[string]int64, len(data.Departments))
		for _, d := range data.Departments {
			var id int64
			err := tx.QueryRow(ctx, `
				INSERT INTO departments (name) VALUES ($1)
				ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
				RETURNING department_id`, d.Name).Scan(&id)
			if err != nil {
				return fmt.Errorf("department %s: %w", d.Name, err)
			}
			deptIDs[d.Name] = id
			for _, p := range d.Products {
				if err := seedProduct(ctx, tx, id, p); err != nil {
					return fmt.Errorf("product %s: %w", p.Name, err)
				}
			}
			logger.Info("seeded department", slog.String("name", d.Name), slog.Int("products", len(d.Products)))
		}

		for _, a := range data.Admins {
			hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), cost)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO administrators (username, name, email, password_hash)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (username) DO NOTHING`, a.Username, a.Name, a.Email, string(hash)); err != nil {
				return fmt.Errorf("admin %s: %w", a.Username, err)
			}
		}
		for _, a := range data.Employees {
			hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), cost)
			if err != nil {
				return err
			}
			var dept *int64
			if id, ok := deptIDs[a.Department]; ok {
				dept = &id
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO employees (username, name, email, password_hash, job_title, hire_date, department_id, is_active)
				VALUES ($1, $2, $3, $4, $5, CURRENT_DATE, $6, TRUE)
				ON CONFLICT (username) DO NOTHING`, a.Username, a.Name, a.Email, string(hash), a.JobTitle, dept); err != nil {
				return fmt.Errorf("employee %s: %w", a.Username, err)
			}
		}
		for _, a := range data.Customers {
			hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), cost)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO customers (username, name, email, password_hash, created_at)
				VALUES ($1, $2, $3, $4, NOW())
				ON CONFLICT DO NOTHING`, a.Username, a.Name, a.Email, string(hash)); err != nil {
				return fmt.Errorf("customer %s: %w", a.Username, err)
			}
		}
		logger.Info("seeded accounts",
			slog.Int("admins", len(data.Admins)),
			slog.Int("employees", len(data.Employees)),
			slog.Int("customers", len(data.Customers)))
		return nil
	})
}

func seedProduct(ctx context.Context, tx pgx.Tx, deptID int64, p Product) error {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO products (name, description, price, barcode, quantity_in_stock, department_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, TRUE, NOW(), NOW())
		ON CONFLICT ON CONSTRAINT products_barcode_key DO UPDATE SET updated_at = NOW()
		RETURNING product_id`, p.Name, p.Description, p.Price, p.Barcode, p.Stock, deptID).Scan(&id)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO inventory (product_id, quantity_available, reorder_level, last_restock_date)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (product_id) DO NOTHING`, id, p.Stock, p.Reorder)
	return err
}
