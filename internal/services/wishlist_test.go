package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectWishlistEntry(mock sqlmock.Sqlmock, userID, productID int64, exists bool) {
	mock.ExpectQuery(q(wishlistEntryExistsQuery)).WithArgs(userID, productID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func TestWishlistService_Add(t *testing.T) {
	database, mock := newMockDB(t)
	svc := NewWishlistService(database, newTestMetrics(t))

	mock.ExpectBegin()
	expectUserLock(mock, 4)
	expectProductExists(mock, 9, true)
	expectWishlistEntry(mock, 4, 9, false)
	mock.ExpectExec(q(insertWishlistItemQuery)).WithArgs(int64(4), int64(9)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectCount(mock, countWishlistItemsQuery, 4, 1)
	mock.ExpectCommit()

	count, err := svc.Add(userCtx(4), 9)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistService_AddDuplicate(t *testing.T) {
	database, mock := newMockDB(t)
	svc := NewWishlistService(database, newTestMetrics(t))

	mock.ExpectBegin()
	expectUserLock(mock, 4)
	expectProductExists(mock, 9, true)
	expectWishlistEntry(mock, 4, 9, true)
	mock.ExpectRollback()

	_, err := svc.Add(userCtx(4), 9)

	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "Already in wishlist", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistService_AddRacingDuplicate(t *testing.T) {
	database, mock := newMockDB(t)
	svc := NewWishlistService(database, newTestMetrics(t))

	mock.ExpectBegin()
	expectUserLock(mock, 4)
	expectProductExists(mock, 9, true)
	expectWishlistEntry(mock, 4, 9, false)
	mock.ExpectExec(q(insertWishlistItemQuery)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := svc.Add(userCtx(4), 9)

	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistService_AddUnknownProduct(t *testing.T) {
	database, mock := newMockDB(t)
	svc := NewWishlistService(database, newTestMetrics(t))

	mock.ExpectBegin()
	expectUserLock(mock, 4)
	expectProductExists(mock, 9, false)
	mock.ExpectRollback()

	_, err := svc.Add(userCtx(4), 9)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistService_Remove(t *testing.T) {
	database, mock := newMockDB(t)
	svc := NewWishlistService(database, newTestMetrics(t))

	mock.ExpectBegin()
	expectUserLock(mock, 4)
	mock.ExpectExec(q(deleteWishlistItemQuery)).WithArgs(int64(4), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectCount(mock, countWishlistItemsQuery, 4, 0)
	mock.ExpectCommit()

	count, err := svc.Remove(userCtx(4), 9)

	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistService_RemoveMissing(t *testing.T) {
	database, mock := newMockDB(t)
	svc := NewWishlistService(database, newTestMetrics(t))

	mock.ExpectBegin()
	expectUserLock(mock, 4)
	mock.ExpectExec(q(deleteWishlistItemQuery)).WithArgs(int64(4), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Remove(userCtx(4), 9)

	assert.Equal(t, ErrWishlistItemNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistService_List(t *testing.T) {
	database, mock := newMockDB(t)
	svc := NewWishlistService(database, newTestMetrics(t))

	mock.ExpectQuery(q(listWishlistQuery)).WithArgs(int64(4)).WillReturnRows(
		sqlmock.NewRows(append([]string{"wishlist_item_id"}, productCols...)).
			AddRow(1, 9, "Galaxy Buds", "Earbuds", "9999.00", "", "{}", "buds.jpg", 10, true, 4.2),
	)

	items, err := svc.List(userCtx(4))

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(9), items[0].ID)
	assert.Equal(t, int64(1), items[0].WishlistItemID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistService_ListAnonymous(t *testing.T) {
	database, mock := newMockDB(t)
	svc := NewWishlistService(database, newTestMetrics(t))

	items, err := svc.List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = svc.Remove(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
