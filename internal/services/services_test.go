package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SigNoz/techstore-go-app/internal/db"
	"github.com/SigNoz/techstore-go-app/internal/metrics"
	"github.com/SigNoz/techstore-go-app/internal/models"
	"github.com/SigNoz/techstore-go-app/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

var productCols = []string{"id", "name", "category", "price", "description", "specs", "image", "stock", "on_sale", "rating"}

func newMockDB(t *testing.T) (*db.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db.Wrap(sqlDB), mock
}

func newTestMetrics(t *testing.T) *metrics.AppMetrics {
	t.Helper()
	m, err := metrics.NewAppMetrics(noop.NewMeterProvider().Meter("test"), "techstore-test")
	require.NoError(t, err)
	return m
}

func userCtx(id int64) context.Context {
	return session.WithUser(context.Background(), id)
}

func q(query string) string {
	return regexp.QuoteMeta(query)
}

func expectUserLock(mock sqlmock.Sqlmock, userID int64) {
	mock.ExpectQuery(q(lockUserQuery)).WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID))
}

func expectProductExists(mock sqlmock.Sqlmock, productID int64, exists bool) {
	mock.ExpectQuery(q(productExistsQuery)).WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectCount(mock sqlmock.Sqlmock, query string, userID int64, count int) {
	mock.ExpectQuery(q(query)).WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

// stubRand always picks the same index and leaves order untouched.
type stubRand struct{ pick int }

func (r stubRand) IntN(n int) int {
	if r.pick >= n {
		return n - 1
	}
	return r.pick
}

func (stubRand) Shuffle(int, func(i, j int)) {}

func productFixture(id int64) models.Product {
	p := models.Product{ID: id, Name: "Fixture", Category: models.CategoryLaptops, Price: decimal.NewFromInt(100)}
	p.ResolveImageURL()
	return p
}
