package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/SigNoz/techstore-go-app/internal/db"
	"github.com/SigNoz/techstore-go-app/internal/metrics"
	"github.com/SigNoz/techstore-go-app/internal/models"
	"github.com/SigNoz/techstore-go-app/internal/session"
	"go.opentelemetry.io/otel/attribute"
)

const (
	upsertCartItemQuery = "INSERT INTO cart_items (user_id, product_id, quantity) VALUES (?, ?, 1) ON DUPLICATE KEY UPDATE quantity = quantity + 1"
	countCartItemsQuery = "SELECT COUNT(*) FROM cart_items WHERE user_id = ?"
	findCartItemQuery   = "SELECT id FROM cart_items WHERE user_id = ? AND product_id = ?"
	updateCartItemQuery = "UPDATE cart_items SET quantity = ? WHERE id = ?"
	deleteCartItemQuery = "DELETE FROM cart_items WHERE id = ?"
	clearCartQuery      = "DELETE FROM cart_items WHERE user_id = ?"
	listCartQuery       = "SELECT ci.id, ci.quantity, " + productColumns + " FROM cart_items ci JOIN products p ON p.id = ci.product_id WHERE ci.user_id = ? ORDER BY ci.id"
)

// CartService handles cart-related operations. Every mutation runs in one
// transaction holding the user's row lock, so concurrent requests of the
// same user apply one after another.
type CartService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCartService creates a new cart service
func NewCartService(db *db.DB, metrics *metrics.AppMetrics) *CartService {
	return &CartService{
		db:      db,
		metrics: metrics,
	}
}

// Add puts one unit of the product in the cart and returns the number of
// distinct products in it.
func (s *CartService) Add(ctx context.Context, productID int64) (int, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := lockUser(ctx, tx, s.metrics, userID); err != nil {
			return err
		}
		if err := productExists(ctx, tx, s.metrics, productID); err != nil {
			return err
		}

		start := time.Now()
		_, err := tx.ExecContext(ctx, upsertCartItemQuery, userID, productID)
		s.metrics.RecordDBQuery(ctx, "INSERT", "cart_items", upsertCartItemQuery, start, err)
		if err != nil {
			return fmt.Errorf("failed to add item to cart: %w", err)
		}

		count, err = s.count(ctx, tx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.recordCount(ctx, userID, count)
	return count, nil
}

// maxCartQuantity is the largest value the quantity INT column holds.
const maxCartQuantity = math.MaxInt32

// SetQuantity overwrites the quantity of an entry. A quantity below one
// removes the entry.
func (s *CartService) SetQuantity(ctx context.Context, productID int64, quantity int) (*models.CartView, error) {
	if quantity < 1 {
		return s.Remove(ctx, productID)
	}
	if quantity > maxCartQuantity {
		return nil, validationError("Quantity is too large")
	}
	return s.mutateEntry(ctx, productID, "UPDATE", updateCartItemQuery, quantity)
}

// Remove deletes the product's entry from the cart.
func (s *CartService) Remove(ctx context.Context, productID int64) (*models.CartView, error) {
	return s.mutateEntry(ctx, productID, "DELETE", deleteCartItemQuery)
}

// mutateEntry locates the user's entry for productID, applies stmt to it and
// returns the cart as seen by the same transaction. stmt takes args followed
// by the entry id.
func (s *CartService) mutateEntry(ctx context.Context, productID int64, op, stmt string, args ...any) (*models.CartView, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	var view *models.CartView
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := lockUser(ctx, tx, s.metrics, userID); err != nil {
			return err
		}

		start := time.Now()
		var entryID int64
		err := tx.QueryRowContext(ctx, findCartItemQuery, userID, productID).Scan(&entryID)
		s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", findCartItemQuery, start, err)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCartItemNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to find cart item: %w", err)
		}

		start = time.Now()
		_, err = tx.ExecContext(ctx, stmt, append(args, entryID)...)
		s.metrics.RecordDBQuery(ctx, op, "cart_items", stmt, start, err)
		if err != nil {
			return fmt.Errorf("failed to change cart item: %w", err)
		}

		view, err = s.load(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordCount(ctx, userID, view.Count)
	return view, nil
}

// Clear empties the cart. Clearing an empty cart succeeds.
func (s *CartService) Clear(ctx context.Context) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := lockUser(ctx, tx, s.metrics, userID); err != nil {
			return err
		}
		start := time.Now()
		_, err := tx.ExecContext(ctx, clearCartQuery, userID)
		s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", clearCartQuery, start, err)
		if err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recordCount(ctx, userID, 0)
	return nil
}

// List returns the cart in insertion order. Anonymous callers see an
// empty cart.
func (s *CartService) List(ctx context.Context) (*models.CartView, error) {
	userID, ok := session.UserFromContext(ctx)
	if !ok {
		return models.NewCartView(nil), nil
	}
	return s.load(ctx, s.db, userID)
}

func (s *CartService) load(ctx context.Context, q db.Querier, userID int64) (*models.CartView, error) {
	start := time.Now()
	rows, err := q.QueryContext(ctx, listCartQuery, userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", listCartQuery, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		if err := scanProduct(rows, &item.Product, &item.CartItemID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cart items: %w", err)
	}

	return models.NewCartView(items), nil
}

func (s *CartService) count(ctx context.Context, q db.Querier, userID int64) (int, error) {
	start := time.Now()
	var count int
	err := q.QueryRowContext(ctx, countCartItemsQuery, userID).Scan(&count)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", countCartItemsQuery, start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return count, nil
}

// recordCount updates the cart items count gauge metric
func (s *CartService) recordCount(ctx context.Context, userID int64, count int) {
	s.metrics.CartItemsCount.Record(ctx, int64(count), s.metrics.Attrs(attribute.Int64("user_id", userID)))
}
