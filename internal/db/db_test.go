package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return Wrap(sqlDB), mock
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM cart_items").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := database.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "DELETE FROM cart_items WHERE user_id = ?", 1)
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	database, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := database.WithTx(context.Background(), func(tx *sql.Tx) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = database.WithTx(context.Background(), func(tx *sql.Tx) error {
			panic("kaboom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginFailure(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := database.WithTx(context.Background(), func(tx *sql.Tx) error {
		called = true
		return nil
	})

	assert.ErrorContains(t, err, "failed to begin transaction")
	assert.False(t, called)
}

func TestWithTx_CommitFailure(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("deadlock"))

	err := database.WithTx(context.Background(), func(tx *sql.Tx) error { return nil })

	assert.ErrorContains(t, err, "failed to commit transaction")
}

func TestSplitSQLStatements(t *testing.T) {
	script := `
-- header comment
CREATE TABLE a (id INT);

  -- indented comment
CREATE TABLE b (
    id INT
);
`
	stmts := splitSQLStatements(script)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (id INT)", stmts[0])
	assert.Contains(t, stmts[1], "CREATE TABLE b")
}

func TestInitSchema_ExecutesEveryTable(t *testing.T) {
	schema, err := os.ReadFile("../../schema.sql")
	require.NoError(t, err)

	database, mock := newMockDB(t)
	for _, table := range []string{"users", "products", "cart_items", "wishlist_items", "orders", "order_items", "chatbot_logs"} {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS " + table + " (")).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, database.InitSchema(context.Background(), string(schema)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchema_ReportsFailingStatement(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE b").WillReturnError(errors.New("syntax error"))

	err := database.InitSchema(context.Background(), "CREATE TABLE a (id INT);\nCREATE TABLE b (id INT);")
	assert.ErrorContains(t, err, "failed to execute statement 2")
}

func TestSeed_SkipsPopulatedCatalog(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(countProductsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(32))

	require.NoError(t, Seed(context.Background(), database))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeed_LoadsCatalogAndDemoUser(t *testing.T) {
	var products []seedProduct
	require.NoError(t, json.Unmarshal(seedProducts, &products))
	require.Len(t, products, 32)

	database, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(countProductsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	for range products {
		mock.ExpectExec(regexp.QuoteMeta(insertProductQuery)).WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectQuery(regexp.QuoteMeta(demoUserQuery)).
		WithArgs(DemoUserEmail, DemoUserPhone).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(insertDemoUser)).
		WithArgs("John Doe", DemoUserEmail, DemoUserPhone, sqlmock.AnyArg(), "400001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, Seed(context.Background(), database))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeed_RollsBackOnInsertFailure(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(countProductsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertProductQuery)).WillReturnError(errors.New("data too long"))
	mock.ExpectRollback()

	err := Seed(context.Background(), database)
	assert.ErrorContains(t, err, "failed to insert product")
	assert.NoError(t, mock.ExpectationsWereMet())
}
