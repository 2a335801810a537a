package api

import (
	"context"
	"net/http"
	"time"

	"github.com/SigNoz/techstore-go-app/internal/metrics"
	"github.com/SigNoz/techstore-go-app/internal/middleware"
	"github.com/SigNoz/techstore-go-app/internal/models"
	"github.com/SigNoz/techstore-go-app/internal/services"
	"github.com/SigNoz/techstore-go-app/internal/session"
	"github.com/SigNoz/techstore-go-app/pkg/config"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Catalog serves read-only product queries
type Catalog interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	ProductsByCategory(ctx context.Context, category string) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	SearchProducts(ctx context.Context, q string) ([]models.Product, error)
	Deals(ctx context.Context) ([]models.Product, error)
}

// Accounts manages users and credentials
type Accounts interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, identifier, password string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	Counts(ctx context.Context, id int64) (cart, wishlist int, err error)
	UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error)
}

// Carts is the cart ledger of the acting user
type Carts interface {
	Add(ctx context.Context, productID int64) (int, error)
	SetQuantity(ctx context.Context, productID int64, quantity int) (*models.CartView, error)
	Remove(ctx context.Context, productID int64) (*models.CartView, error)
	Clear(ctx context.Context) error
	List(ctx context.Context) (*models.CartView, error)
}

// Wishlists is the wishlist ledger of the acting user
type Wishlists interface {
	Add(ctx context.Context, productID int64) (int, error)
	Remove(ctx context.Context, productID int64) (int, error)
	List(ctx context.Context) ([]models.WishlistItem, error)
}

// Orders places and reads orders of the acting user
type Orders interface {
	PlaceOrder(ctx context.Context, paymentMethod string) (*models.PlacedOrder, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*models.OrderDetail, error)
	CancelOrder(ctx context.Context, orderID int64) (*models.Order, error)
}

// Chatbot answers shopping questions
type Chatbot interface {
	Reply(ctx context.Context, message string) (string, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps groups the collaborators of App. Health and MetricsHandler are
// optional.
type Deps struct {
	Catalog        Catalog
	Accounts       Accounts
	Carts          Carts
	Wishlists      Wishlists
	Orders         Orders
	Chatbot        Chatbot
	Sessions       session.Store
	Health         Pinger
	MetricsHandler http.Handler
}

// App holds application dependencies
type App struct {
	config  *config.Config
	metrics *metrics.AppMetrics
	deps    Deps
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, m *metrics.AppMetrics, deps Deps) *App {
	return &App{
		config:  cfg,
		metrics: m,
		deps:    deps,
	}
}

// Handler returns the router wrapped with CORS handling. Credentials are
// allowed so the session cookie survives cross-origin storefront calls.
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()
	a.SetupRoutes(router)

	return cors.New(cors.Options{
		AllowedOrigins:   a.config.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(router)
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics))
	r.Use(middleware.ErrorHandlerMiddleware)
	r.Use(middleware.SessionMiddleware(a.deps.Sessions, a.config.SessionCookieName))

	api := r.PathPrefix("/api").Subrouter()

	// Catalog
	api.HandleFunc("/products", a.ListProductsHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/search", a.SearchProductsHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/category/{category}", a.ProductsByCategoryHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}", a.GetProductHandler).Methods(http.MethodGet)
	api.HandleFunc("/deals", a.DealsHandler).Methods(http.MethodGet)

	// Auth
	api.HandleFunc("/auth/register", a.RegisterHandler).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", a.LoginHandler).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", a.LogoutHandler).Methods(http.MethodGet)
	api.HandleFunc("/auth/check", a.CheckAuthHandler).Methods(http.MethodGet)
	api.HandleFunc("/auth/update-profile", a.UpdateProfileHandler).Methods(http.MethodPost)

	// Cart
	api.HandleFunc("/cart", a.GetCartHandler).Methods(http.MethodGet)
	api.HandleFunc("/cart/add/{id:[0-9]+}", a.AddToCartHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart/update/{id:[0-9]+}", a.UpdateCartHandler).Methods(http.MethodPut, http.MethodPost)
	api.HandleFunc("/cart/remove/{id:[0-9]+}", a.RemoveFromCartHandler).Methods(http.MethodDelete, http.MethodPost)
	api.HandleFunc("/cart/clear", a.ClearCartHandler).Methods(http.MethodDelete, http.MethodPost)

	// Wishlist
	api.HandleFunc("/wishlist", a.GetWishlistHandler).Methods(http.MethodGet)
	api.HandleFunc("/wishlist/add/{id:[0-9]+}", a.AddToWishlistHandler).Methods(http.MethodPost)
	api.HandleFunc("/wishlist/remove/{id:[0-9]+}", a.RemoveFromWishlistHandler).Methods(http.MethodDelete, http.MethodPost)

	// Orders
	api.HandleFunc("/orders", a.ListOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders", a.CreateOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id:[0-9]+}", a.GetOrderHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}/cancel", a.CancelOrderHandler).Methods(http.MethodPost)

	// Chatbot
	api.HandleFunc("/chatbot", a.ChatbotHandler).Methods(http.MethodPost)

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods(http.MethodGet)
	if a.deps.MetricsHandler != nil {
		r.Handle("/metrics", a.deps.MetricsHandler).Methods(http.MethodGet)
	}
	if a.config.StaticDir != "" {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(a.config.StaticDir))))
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if a.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.deps.Health.PingContext(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, envelope{"status": "unhealthy", "error": "database unreachable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, envelope{"status": "healthy"})
}

// ListProductsHandler handles GET /api/products
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.deps.Catalog.ListProducts(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// SearchProductsHandler handles GET /api/products/search?q=
func (a *App) SearchProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.deps.Catalog.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// ProductsByCategoryHandler handles GET /api/products/category/{category}
func (a *App) ProductsByCategoryHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.deps.Catalog.ProductsByCategory(r.Context(), mux.Vars(r)["category"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GetProductHandler handles GET /api/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondMessage(w, http.StatusNotFound, "Product not found")
		return
	}

	product, err := a.deps.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// DealsHandler handles GET /api/deals
func (a *App) DealsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.deps.Catalog.Deals(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GetCartHandler handles GET /api/cart. The body is the bare item list the
// storefront renders.
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	view, err := a.deps.Carts.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view.Items)
}

// AddToCartHandler handles POST /api/cart/add/{id}
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondMessage(w, http.StatusNotFound, "Product not found")
		return
	}

	count, err := a.deps.Carts.Add(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{
		"success":    true,
		"message":    "Added to cart",
		"cart_count": count,
	})
}

// UpdateCartHandler handles PUT|POST /api/cart/update/{id}
func (a *App) UpdateCartHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.UserFromContext(r.Context()); !ok {
		respondError(w, r, services.ErrLoginRequired)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondMessage(w, http.StatusNotFound, "Item not found in cart")
		return
	}

	var req models.UpdateCartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		respondMessage(w, http.StatusBadRequest, "Quantity is required")
		return
	}

	view, err := a.deps.Carts.SetQuantity(r.Context(), id, *req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCart(w, "Cart updated", view)
}

// RemoveFromCartHandler handles DELETE|POST /api/cart/remove/{id}
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondMessage(w, http.StatusNotFound, "Item not found in cart")
		return
	}

	view, err := a.deps.Carts.Remove(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCart(w, "Removed from cart", view)
}

// ClearCartHandler handles DELETE|POST /api/cart/clear
func (a *App) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Carts.Clear(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	respondCart(w, "Cart cleared", models.NewCartView(nil))
}

func respondCart(w http.ResponseWriter, message string, view *models.CartView) {
	respondJSON(w, http.StatusOK, envelope{
		"success":    true,
		"message":    message,
		"cart_items": view.Items,
		"cart_total": view.Total,
		"cart_count": view.Count,
	})
}

// GetWishlistHandler handles GET /api/wishlist
func (a *App) GetWishlistHandler(w http.ResponseWriter, r *http.Request) {
	items, err := a.deps.Wishlists.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// AddToWishlistHandler handles POST /api/wishlist/add/{id}
func (a *App) AddToWishlistHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondMessage(w, http.StatusNotFound, "Product not found")
		return
	}

	count, err := a.deps.Wishlists.Add(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{
		"success":        true,
		"message":        "Added to wishlist",
		"wishlist_count": count,
	})
}

// RemoveFromWishlistHandler handles DELETE|POST /api/wishlist/remove/{id}
func (a *App) RemoveFromWishlistHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondMessage(w, http.StatusNotFound, "Item not found in wishlist")
		return
	}

	count, err := a.deps.Wishlists.Remove(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{
		"success":        true,
		"message":        "Removed from wishlist",
		"wishlist_count": count,
	})
}

// ListOrdersHandler handles GET /api/orders
func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.deps.Orders.ListOrders(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// CreateOrderHandler handles POST /api/orders. The body is optional and
// only carries the payment method.
func (a *App) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	placed, err := a.deps.Orders.PlaceOrder(r.Context(), req.PaymentMethod)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{
		"success":      true,
		"message":      "Order placed successfully",
		"order_id":     placed.OrderID,
		"total_amount": placed.Total,
		"cart_count":   placed.CartCount,
	})
}

// GetOrderHandler handles GET /api/orders/{id}
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondMessage(w, http.StatusNotFound, "Order not found")
		return
	}

	detail, err := a.deps.Orders.GetOrder(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// CancelOrderHandler handles POST /api/orders/{id}/cancel
func (a *App) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondMessage(w, http.StatusNotFound, "Order not found")
		return
	}

	order, err := a.deps.Orders.CancelOrder(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Order cancelled",
		"order":   order,
	})
}

// ChatbotHandler handles POST /api/chatbot
func (a *App) ChatbotHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if r.ContentLength == 0 {
		respondMessage(w, http.StatusBadRequest, "No message provided")
		return
	}
	if !decodeBody(w, r, &req) {
		return
	}

	response, err := a.deps.Chatbot.Reply(r.Context(), req.Message)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"response": response})
}
