package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SigNoz/techstore-go-app/internal/db"
	"github.com/SigNoz/techstore-go-app/internal/metrics"
	"github.com/SigNoz/techstore-go-app/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

const (
	dealsLimit      = 10
	productCacheTTL = 5 * time.Minute
)

const (
	listProductsQuery       = "SELECT " + productColumns + " FROM products p ORDER BY p.id"
	productsByCategoryQuery = "SELECT " + productColumns + " FROM products p WHERE p.category = ? ORDER BY p.id"
	getProductQuery         = "SELECT " + productColumns + " FROM products p WHERE p.id = ?"
	searchProductsQuery     = "SELECT " + productColumns + " FROM products p WHERE p.name LIKE ? OR p.category LIKE ? OR p.description LIKE ? ORDER BY p.id LIMIT 20"
	onSaleProductsQuery     = "SELECT " + productColumns + " FROM products p WHERE p.on_sale = TRUE ORDER BY p.id"
)

// ProductCache holds recently viewed products. Catalog rows are never
// changed by the application, so entries only age out.
type ProductCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	items map[int64]cachedProduct
}

type cachedProduct struct {
	product models.Product
	expires time.Time
}

func NewProductCache(ttl time.Duration) *ProductCache {
	return &ProductCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[int64]cachedProduct),
	}
}

func (c *ProductCache) get(id int64) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.items[id]
	if !ok || !c.now().Before(cached.expires) {
		return models.Product{}, false
	}
	return cached.product, true
}

func (c *ProductCache) put(p models.Product) {
	c.mu.Lock()
	c.items[p.ID] = cachedProduct{product: p, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// ProductService serves the read-only catalog
type ProductService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
	cache   *ProductCache
	rand    Rand
}

// NewProductService creates a new product service
func NewProductService(db *db.DB, metrics *metrics.AppMetrics, rnd Rand) *ProductService {
	return &ProductService{
		db:      db,
		metrics: metrics,
		cache:   NewProductCache(productCacheTTL),
		rand:    rnd,
	}
}

// ListProducts returns the whole catalog in id order
func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.queryProducts(ctx, listProductsQuery)
}

// ProductsByCategory returns the products of one category. Unknown
// categories yield an empty list.
func (s *ProductService) ProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return s.queryProducts(ctx, productsByCategoryQuery, category)
}

// SearchProducts matches q against name, category and description.
func (s *ProductService) SearchProducts(ctx context.Context, q string) ([]models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.Product{}, nil
	}
	term := "%" + q + "%"
	return s.queryProducts(ctx, searchProductsQuery, term, term, term)
}

// Deals returns up to ten on-sale products in random order.
func (s *ProductService) Deals(ctx context.Context) ([]models.Product, error) {
	products, err := s.queryProducts(ctx, onSaleProductsQuery)
	if err != nil {
		return nil, err
	}
	s.rand.Shuffle(len(products), func(i, j int) {
		products[i], products[j] = products[j], products[i]
	})
	if len(products) > dealsLimit {
		products = products[:dealsLimit]
	}
	return products, nil
}

// GetProduct returns a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if p, ok := s.cache.get(id); ok {
		s.metrics.CacheHits.Add(ctx, 1, s.metrics.Attrs(attribute.String("cache", "product")))
		s.recordView(ctx, p)
		return &p, nil
	}
	s.metrics.CacheMisses.Add(ctx, 1, s.metrics.Attrs(attribute.String("cache", "product")))

	start := time.Now()
	var p models.Product
	err := scanProduct(s.db.QueryRowContext(ctx, getProductQuery, id), &p)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", getProductQuery, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	s.cache.put(p)
	s.recordView(ctx, p)
	return &p, nil
}

func (s *ProductService) recordView(ctx context.Context, p models.Product) {
	s.metrics.ProductsViewed.Add(ctx, 1, s.metrics.Attrs(
		attribute.Int64("product_id", p.ID),
		attribute.String("product_category", p.Category),
	))
}

func (s *ProductService) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return products, nil
}
