package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SigNoz/techstore-go-app/internal/db"
	"github.com/SigNoz/techstore-go-app/internal/events"
	"github.com/SigNoz/techstore-go-app/internal/metrics"
	"github.com/SigNoz/techstore-go-app/internal/models"
	"github.com/SigNoz/techstore-go-app/pkg/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultPaymentMethod = "cod"
	orderEventTimeout    = 2 * time.Second
)

const (
	cartSnapshotQuery = "SELECT ci.product_id, ci.quantity, p.price, p.category FROM cart_items ci JOIN products p ON p.id = ci.product_id WHERE ci.user_id = ? ORDER BY ci.id"
	insertOrderQuery  = "INSERT INTO orders (user_id, total_amount, payment_method, status) VALUES (?, ?, ?, ?)"
	insertOrderItem   = "INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)"

	orderColumns        = "id, user_id, total_amount, payment_method, status, created_at, updated_at"
	listOrdersQuery     = "SELECT " + orderColumns + " FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC"
	getOrderQuery       = "SELECT " + orderColumns + " FROM orders WHERE id = ? AND user_id = ?"
	listOrderItemsQuery = "SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, p.name, p.image FROM order_items oi JOIN products p ON p.id = oi.product_id WHERE oi.order_id = ? ORDER BY oi.id"

	lockOrderStatusQuery   = "SELECT status FROM orders WHERE id = ? AND user_id = ? FOR UPDATE"
	updateOrderStatusQuery = "UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP(6) WHERE id = ? AND status = ?"
)

// snapshotLine is one cart entry priced at the moment the order is placed.
type snapshotLine struct {
	productID int64
	quantity  int
	price     decimal.Decimal
	category  string
}

// OrderService converts carts into orders and serves order history
type OrderService struct {
	db             *db.DB
	metrics        *metrics.AppMetrics
	publisher      events.Publisher
	publishTimeout time.Duration
}

// NewOrderService creates a new order service
func NewOrderService(db *db.DB, metrics *metrics.AppMetrics, publisher events.Publisher) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &OrderService{
		db:             db,
		metrics:        metrics,
		publisher:      publisher,
		publishTimeout: orderEventTimeout,
	}
}

// PlaceOrder turns the acting user's cart into a Pending order. The snapshot,
// the order rows and the cart clear share one transaction under the user's
// lock, so either all of it happens or none of it does.
func (s *OrderService) PlaceOrder(ctx context.Context, paymentMethod string) (*models.PlacedOrder, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentMethod == "" {
		paymentMethod = defaultPaymentMethod
	}

	var (
		placed models.PlacedOrder
		lines  []snapshotLine
	)
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := lockUser(ctx, tx, s.metrics, userID); err != nil {
			return err
		}

		var err error
		lines, err = s.snapshotCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrCartIsEmpty
		}

		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.price.Mul(decimal.NewFromInt(int64(line.quantity))))
		}

		start := time.Now()
		result, err := tx.ExecContext(ctx, insertOrderQuery, userID, total, paymentMethod, string(models.StatusPending))
		s.metrics.RecordDBQuery(ctx, "INSERT", "orders", insertOrderQuery, start, err)
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		orderID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get order ID: %w", err)
		}

		for _, line := range lines {
			start = time.Now()
			_, err = tx.ExecContext(ctx, insertOrderItem, orderID, line.productID, line.quantity, line.price)
			s.metrics.RecordDBQuery(ctx, "INSERT", "order_items", insertOrderItem, start, err)
			if err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		start = time.Now()
		_, err = tx.ExecContext(ctx, clearCartQuery, userID)
		s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", clearCartQuery, start, err)
		if err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		start = time.Now()
		var count int
		err = tx.QueryRowContext(ctx, countCartItemsQuery, userID).Scan(&count)
		s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", countCartItemsQuery, start, err)
		if err != nil {
			return fmt.Errorf("failed to count cart items: %w", err)
		}

		placed = models.PlacedOrder{OrderID: orderID, Total: total, CartCount: count, Items: len(lines)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordPlaced(ctx, paymentMethod, lines)
	s.metrics.CartItemsCount.Record(ctx, int64(placed.CartCount), s.metrics.Attrs(attribute.Int64("user_id", userID)))
	s.publishPlaced(ctx, userID, paymentMethod, &placed, lines)

	logger.Info(ctx).
		Int64("order_id", placed.OrderID).
		Int64("user_id", userID).
		Str("total", placed.Total.StringFixed(2)).
		Str("payment_method", paymentMethod).
		Int("items", placed.Items).
		Msg("order placed")

	return &placed, nil
}

func (s *OrderService) snapshotCart(ctx context.Context, tx *sql.Tx, userID int64) ([]snapshotLine, error) {
	start := time.Now()
	rows, err := tx.QueryContext(ctx, cartSnapshotQuery, userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", cartSnapshotQuery, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	defer rows.Close()

	var lines []snapshotLine
	for rows.Next() {
		var line snapshotLine
		if err := rows.Scan(&line.productID, &line.quantity, &line.price, &line.category); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cart items: %w", err)
	}
	return lines, nil
}

// recordPlaced counts the order and its revenue once per product category.
func (s *OrderService) recordPlaced(ctx context.Context, paymentMethod string, lines []snapshotLine) {
	revenue := make(map[string]decimal.Decimal)
	var categories []string
	for _, line := range lines {
		if _, seen := revenue[line.category]; !seen {
			categories = append(categories, line.category)
		}
		revenue[line.category] = revenue[line.category].Add(line.price.Mul(decimal.NewFromInt(int64(line.quantity))))
	}

	for _, category := range categories {
		opt := s.metrics.Attrs(
			attribute.String("order_status", string(models.StatusPending)),
			attribute.String("payment_method", paymentMethod),
			attribute.String("product_category", category),
		)
		s.metrics.OrdersCreated.Add(ctx, 1, opt)
		s.metrics.RevenueTotal.Add(ctx, revenue[category].InexactFloat64(), opt)
	}
}

// publishPlaced announces the committed order. It waits at most
// publishTimeout so the response never outlives the request. Delivery
// failures are logged and never undo the order.
func (s *OrderService) publishPlaced(ctx context.Context, userID int64, paymentMethod string, placed *models.PlacedOrder, lines []snapshotLine) {
	items := make([]events.OrderPlacedItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, events.OrderPlacedItem{
			ProductID: line.productID,
			Category:  line.category,
			Quantity:  line.quantity,
			Price:     line.price,
		})
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	err := s.publisher.PublishOrderPlaced(pubCtx, events.OrderPlacedEvent{
		OrderID:       placed.OrderID,
		UserID:        userID,
		TotalAmount:   placed.Total,
		PaymentMethod: paymentMethod,
		Status:        string(models.StatusPending),
		Items:         items,
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Int64("order_id", placed.OrderID).Msg("failed to publish order placed event")
	}
}

// ListOrders returns the acting user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, listOrdersQuery, userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", listOrdersQuery, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one of the acting user's orders with its line items.
// Orders of other users are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.OrderDetail, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	order, err := s.getOrder(ctx, s.db, orderID, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, listOrderItemsQuery, orderID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "order_items", listOrderItemsQuery, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.Name, &item.Image); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	return &models.OrderDetail{Order: *order, Items: items}, nil
}

// TransitionStatus moves an owned order forward in its lifecycle. The
// update is conditional on the status read under lock, so a concurrent
// transition cannot be overwritten.
func (s *OrderService) TransitionStatus(ctx context.Context, orderID int64, to models.OrderStatus) (*models.Order, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, validationError("Invalid order status")
	}

	var order *models.Order
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		start := time.Now()
		var current models.OrderStatus
		err := tx.QueryRowContext(ctx, lockOrderStatusQuery, orderID, userID).Scan(&current)
		s.metrics.RecordDBQuery(ctx, "SELECT", "orders", lockOrderStatusQuery, start, err)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if !current.CanTransitionTo(to) {
			return &Error{
				Kind:    ErrConflict,
				Message: fmt.Sprintf("Order cannot move from %s to %s", current, to),
			}
		}

		start = time.Now()
		result, err := tx.ExecContext(ctx, updateOrderStatusQuery, string(to), orderID, string(current))
		s.metrics.RecordDBQuery(ctx, "UPDATE", "orders", updateOrderStatusQuery, start, err)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("failed to update order status: %w", models.ErrInvalidTransition)
		}

		order, err = s.getOrder(ctx, tx, orderID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Int64("order_id", orderID).
		Str("status", string(to)).
		Msg("order status changed")
	return order, nil
}

// CancelOrder cancels a Pending or Processing order of the acting user.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.TransitionStatus(ctx, orderID, models.StatusCancelled)
}

func (s *OrderService) getOrder(ctx context.Context, q db.Querier, orderID, userID int64) (*models.Order, error) {
	start := time.Now()
	var order models.Order
	err := scanOrder(q.QueryRowContext(ctx, getOrderQuery, orderID, userID), &order)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", getOrderQuery, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func scanOrder(row rowScanner, o *models.Order) error {
	return row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.PaymentMethod, &o.Status, &o.CreatedAt, &o.UpdatedAt)
}
