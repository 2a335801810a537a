package db

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/SigNoz/techstore-go-app/internal/models"
	"github.com/SigNoz/techstore-go-app/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

//go:embed seed/products.json
var seedProducts []byte

// Demo account created alongside the catalog.
const (
	DemoUserEmail    = "john@example.com"
	DemoUserPhone    = "9876543210"
	DemoUserPassword = "password123"
)

const (
	countProductsQuery = "SELECT COUNT(*) FROM products"
	insertProductQuery = "INSERT INTO products (name, category, price, description, specs, image, stock, on_sale, rating) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	demoUserQuery      = "SELECT EXISTS(SELECT 1 FROM users WHERE email = ? OR phone = ?)"
	insertDemoUser     = "INSERT INTO users (full_name, email, phone, address, pincode, password_hash) VALUES (?, ?, ?, ?, ?, ?)"
)

type seedProduct struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Specs       models.Specs    `json:"specs"`
	Image       string          `json:"image"`
	Stock       int             `json:"stock"`
	OnSale      bool            `json:"on_sale"`
	Rating      float64         `json:"rating"`
}

// Seed loads the starter catalog and the demo account into an empty
// database. A populated products table is left untouched.
func Seed(ctx context.Context, db *DB) error {
	var count int
	if err := db.QueryRowContext(ctx, countProductsQuery).Scan(&count); err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		logger.Debug(ctx).Int("products", count).Msg("catalog already seeded")
		return nil
	}

	var products []seedProduct
	if err := json.Unmarshal(seedProducts, &products); err != nil {
		return fmt.Errorf("failed to decode seed catalog: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, p := range products {
			if _, err := tx.ExecContext(ctx, insertProductQuery,
				p.Name, p.Category, p.Price, p.Description, p.Specs, p.Image, p.Stock, p.OnSale, p.Rating,
			); err != nil {
				return fmt.Errorf("failed to insert product %q: %w", p.Name, err)
			}
		}

		var exists bool
		if err := tx.QueryRowContext(ctx, demoUserQuery, DemoUserEmail, DemoUserPhone).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check demo user: %w", err)
		}
		if exists {
			return nil
		}
		if _, err := tx.ExecContext(ctx, insertDemoUser,
			"John Doe", DemoUserEmail, DemoUserPhone, "123 Main Street, Mumbai, Maharashtra", "400001", string(hash),
		); err != nil {
			return fmt.Errorf("failed to insert demo user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx).Int("products", len(products)).Msg("catalog seeded")
	return nil
}
