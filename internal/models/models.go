package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices are rendered as JSON numbers, as the storefront frontend expects.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product categories carried by the catalog.
const (
	CategorySmartphones = "Smartphones"
	CategoryLaptops     = "Laptops"
	CategoryHeadphones  = "Headphones"
	CategoryEarbuds     = "Earbuds"
)

const (
	productImageBase    = "/static/images/products/"
	defaultProductImage = productImageBase + "default.png"
)

// Specs is the open attribute map of a product, stored as a JSON column.
type Specs map[string]string

// Scan implements sql.Scanner
func (s *Specs) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = Specs{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported specs column type %T", src)
	}

	out := Specs{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("failed to decode specs: %w", err)
		}
	}
	*s = out
	return nil
}

// Value implements driver.Valuer
func (s Specs) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Product represents a product in the catalog
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Specs       Specs           `json:"specs"`
	Image       string          `json:"image"`
	ImageURL    string          `json:"image_url"`
	Stock       int             `json:"stock"`
	OnSale      bool            `json:"on_sale"`
	Rating      float64         `json:"rating"`
}

// ResolveImageURL fills ImageURL from Image, falling back to the default
// product picture.
func (p *Product) ResolveImageURL() {
	p.ImageURL = ImageURL(p.Image)
}

// ImageURL maps a stored image file name to its public path.
func ImageURL(image string) string {
	if image == "" {
		return defaultProductImage
	}
	return productImageBase + image
}

// User represents a user account. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	Pincode      string    `json:"pincode"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CartItem is one cart entry joined with its product. The embedded product
// keeps the storefront's flat shape where "id" is the product id.
type CartItem struct {
	Product
	CartItemID int64 `json:"cart_item_id"`
	Quantity   int   `json:"quantity"`
}

// Subtotal is price times quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartView is a consistent read of a user's cart.
type CartView struct {
	Items []CartItem      `json:"cart_items"`
	Total decimal.Decimal `json:"cart_total"`
	Count int             `json:"cart_count"`
}

// NewCartView derives total and count from items. The total is never stored.
func NewCartView(items []CartItem) *CartView {
	if items == nil {
		items = []CartItem{}
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return &CartView{Items: items, Total: total, Count: len(items)}
}

// WishlistItem is one wishlist entry joined with its product.
type WishlistItem struct {
	Product
	WishlistItemID int64 `json:"wishlist_item_id"`
}

// Order represents an order
type Order struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem is a line item with the unit price captured at order time.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
}

// OrderDetail is an order with its line items.
type OrderDetail struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}

// PlacedOrder is the outcome of converting a cart into an order.
type PlacedOrder struct {
	OrderID   int64           `json:"order_id"`
	Total     decimal.Decimal `json:"total_amount"`
	CartCount int             `json:"cart_count"`
	Items     int             `json:"-"`
}

// RegisterRequest represents a registration form
type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,store_email"`
	Phone    string `json:"phone" validate:"required,phone10"`
	Address  string `json:"address" validate:"required"`
	Pincode  string `json:"pincode" validate:"required,pincode6"`
	Password string `json:"password" validate:"required,notblank"`
}

// LoginRequest accepts an email or a phone number as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// UpdateProfileRequest represents profile changes of the acting user
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,store_email"`
	Phone    string `json:"phone" validate:"required,phone10"`
	Address  string `json:"address" validate:"required"`
	Pincode  string `json:"pincode" validate:"required,pincode6"`
}

// UpdateCartRequest carries the new quantity of a cart entry.
type UpdateCartRequest struct {
	Quantity *int `json:"quantity"`
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// ChatRequest is a message for the shopping assistant.
type ChatRequest struct {
	Message string `json:"message"`
}
