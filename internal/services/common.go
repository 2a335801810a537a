package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SigNoz/techstore-go-app/internal/metrics"
	"github.com/SigNoz/techstore-go-app/internal/models"
	"github.com/SigNoz/techstore-go-app/internal/session"
)

// productColumns is the column list scanned by scanProduct, aliased as p.
const productColumns = "p.id, p.name, p.category, p.price, p.description, p.specs, p.image, p.stock, p.on_sale, p.rating"

const (
	lockUserQuery      = "SELECT id FROM users WHERE id = ? FOR UPDATE"
	productExistsQuery = "SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct reads productColumns after any leading extra columns.
func scanProduct(row rowScanner, p *models.Product, extra ...any) error {
	dest := append(extra,
		&p.ID, &p.Name, &p.Category, &p.Price, &p.Description, &p.Specs,
		&p.Image, &p.Stock, &p.OnSale, &p.Rating,
	)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	p.ResolveImageURL()
	return nil
}

// currentUser returns the acting user or ErrLoginRequired.
func currentUser(ctx context.Context) (int64, error) {
	userID, ok := session.UserFromContext(ctx)
	if !ok {
		return 0, ErrLoginRequired
	}
	return userID, nil
}

// lockUser takes the row lock that serializes all cart and order writes of
// one user. A session whose user row is gone is unauthenticated.
func lockUser(ctx context.Context, tx *sql.Tx, m *metrics.AppMetrics, userID int64) error {
	start := time.Now()
	var id int64
	err := tx.QueryRowContext(ctx, lockUserQuery, userID).Scan(&id)
	m.RecordDBQuery(ctx, "SELECT", "users", lockUserQuery, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLoginRequired
	}
	if err != nil {
		return fmt.Errorf("failed to lock user: %w", err)
	}
	return nil
}

func productExists(ctx context.Context, tx *sql.Tx, m *metrics.AppMetrics, productID int64) error {
	start := time.Now()
	var exists bool
	err := tx.QueryRowContext(ctx, productExistsQuery, productID).Scan(&exists)
	m.RecordDBQuery(ctx, "SELECT", "products", productExistsQuery, start, err)
	if err != nil {
		return fmt.Errorf("failed to verify product: %w", err)
	}
	if !exists {
		return ErrProductNotFound
	}
	return nil
}
