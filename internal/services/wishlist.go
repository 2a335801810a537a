package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SigNoz/techstore-go-app/internal/db"
	"github.com/SigNoz/techstore-go-app/internal/metrics"
	"github.com/SigNoz/techstore-go-app/internal/models"
	"github.com/SigNoz/techstore-go-app/internal/session"
	"go.opentelemetry.io/otel/attribute"
)

const (
	wishlistEntryExistsQuery = "SELECT EXISTS(SELECT 1 FROM wishlist_items WHERE user_id = ? AND product_id = ?)"
	insertWishlistItemQuery  = "INSERT INTO wishlist_items (user_id, product_id) VALUES (?, ?)"
	deleteWishlistItemQuery  = "DELETE FROM wishlist_items WHERE user_id = ? AND product_id = ?"
	countWishlistItemsQuery  = "SELECT COUNT(*) FROM wishlist_items WHERE user_id = ?"
	listWishlistQuery        = "SELECT wi.id, " + productColumns + " FROM wishlist_items wi JOIN products p ON p.id = wi.product_id WHERE wi.user_id = ? ORDER BY wi.id"
)

// WishlistService keeps the set of products a user saved for later
type WishlistService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

func NewWishlistService(db *db.DB, metrics *metrics.AppMetrics) *WishlistService {
	return &WishlistService{db: db, metrics: metrics}
}

// Add saves a product and returns the wishlist size. A product can be
// saved once.
func (s *WishlistService) Add(ctx context.Context, productID int64) (int, error) {
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
		var exists bool
		err := tx.QueryRowContext(ctx, wishlistEntryExistsQuery, userID, productID).Scan(&exists)
		s.metrics.RecordDBQuery(ctx, "SELECT", "wishlist_items", wishlistEntryExistsQuery, start, err)
		if err != nil {
			return fmt.Errorf("failed to check wishlist: %w", err)
		}
		if exists {
			return ErrAlreadyInWishlist
		}

		start = time.Now()
		_, err = tx.ExecContext(ctx, insertWishlistItemQuery, userID, productID)
		s.metrics.RecordDBQuery(ctx, "INSERT", "wishlist_items", insertWishlistItemQuery, start, err)
		if isDuplicateKey(err) {
			return ErrAlreadyInWishlist
		}
		if err != nil {
			return fmt.Errorf("failed to add to wishlist: %w", err)
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

// Remove drops a saved product and returns the wishlist size.
func (s *WishlistService) Remove(ctx context.Context, productID int64) (int, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := lockUser(ctx, tx, s.metrics, userID); err != nil {
			return err
		}

		start := time.Now()
		result, err := tx.ExecContext(ctx, deleteWishlistItemQuery, userID, productID)
		s.metrics.RecordDBQuery(ctx, "DELETE", "wishlist_items", deleteWishlistItemQuery, start, err)
		if err != nil {
			return fmt.Errorf("failed to remove from wishlist: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return ErrWishlistItemNotFound
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

// List returns saved products in the order they were added.
func (s *WishlistService) List(ctx context.Context) ([]models.WishlistItem, error) {
	userID, ok := session.UserFromContext(ctx)
	if !ok {
		return []models.WishlistItem{}, nil
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, listWishlistQuery, userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "wishlist_items", listWishlistQuery, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist: %w", err)
	}
	defer rows.Close()

	items := []models.WishlistItem{}
	for rows.Next() {
		var item models.WishlistItem
		if err := scanProduct(rows, &item.Product, &item.WishlistItemID); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read wishlist: %w", err)
	}
	return items, nil
}

func (s *WishlistService) count(ctx context.Context, q db.Querier, userID int64) (int, error) {
	start := time.Now()
	var count int
	err := q.QueryRowContext(ctx, countWishlistItemsQuery, userID).Scan(&count)
	s.metrics.RecordDBQuery(ctx, "SELECT", "wishlist_items", countWishlistItemsQuery, start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count wishlist items: %w", err)
	}
	return count, nil
}

func (s *WishlistService) recordCount(ctx context.Context, userID int64, count int) {
	s.metrics.WishlistItemsCount.Record(ctx, int64(count), s.metrics.Attrs(attribute.Int64("user_id", userID)))
}
