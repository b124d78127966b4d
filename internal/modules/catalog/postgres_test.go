package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestBulkUpdateSalesSingleTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("UPDATE products SET quantity_sold_last_month")
	prep.ExpectExec().WithArgs(int64(10), int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(int64(2), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.BulkUpdateSales(context.Background(), []SalesUpdate{
		{ProductID: 1, Quantity: 10},
		{ProductID: 2, Quantity: 2},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpdateRollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("UPDATE products SET price")
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.BulkUpdatePrices(context.Background(), []PriceUpdate{{ProductID: 1, Price: 9.5}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpdateEmptyIsNoop(t *testing.T) {
	repo, mock := newMockRepo(t)
	require.NoError(t, repo.BulkUpdateInventory(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearColumnWhitelist(t *testing.T) {
	repo, mock := newMockRepo(t)

	_, err := repo.ClearColumn(context.Background(), "product_name; DROP TABLE products")
	assert.ErrorIs(t, err, ErrInvalidColumn)

	mock.ExpectExec(`UPDATE products SET price = NULL`).WillReturnResult(sqlmock.NewResult(0, 4))
	n, err := repo.ClearColumn(context.Background(), "price")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM products WHERE id").WithArgs(int64(7)).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM products WHERE id").WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 3), ErrNotFound)
}

func TestMapErrorDuplicate(t *testing.T) {
	assert.ErrorIs(t, mapError(&pq.Error{Code: "23505"}), ErrDuplicateBarcode)
	other := errors.New("other")
	assert.Equal(t, other, mapError(other))
}
