package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderMock(t *testing.T) (*OrderRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewOrderRepo(db), mock, func() { db.Close() }
}

func TestCreateTxInsertsPendingAndReadsBack(t *testing.T) {
	repo, mock, done := newOrderMock(t)
	defer done()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders (product_id, quantity, price, status, buyer_id, farmer_id) VALUES (?,?,?,?,?,?)")).
		WithArgs(1, 3, decimal.RequireFromString("10.00"), StatusPending, 2, 7).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,product_id,quantity,price,status,buyer_id,farmer_id,created_at,updated_at FROM orders WHERE id=?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity", "price", "status", "buyer_id", "farmer_id", "created_at", "updated_at"}).
			AddRow(5, 1, 3, "10.00", "pending", 2, 7, now, now))
	mock.ExpectCommit()

	tx, err := repo.DB.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	o := &Order{ProductID: 1, Quantity: 3, Price: decimal.RequireFromString("10.00"), BuyerID: 2, FarmerID: 7}
	require.NoError(t, repo.CreateTx(context.Background(), tx, o))
	require.NoError(t, tx.Commit())

	assert.Equal(t, uint64(5), o.ID)
	assert.Equal(t, StatusPending, o.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTxFailureLeavesReservationRollbackable(t *testing.T) {
	repo, mock, done := newOrderMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?")).
		WithArgs(3, 1, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders (product_id, quantity, price, status, buyer_id, farmer_id) VALUES (?,?,?,?,?,?)")).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	tx, err := repo.DB.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	products := &ProductRepo{DB: repo.DB}
	require.NoError(t, products.ReserveTx(context.Background(), tx, 1, 3))

	o := &Order{ProductID: 1, Quantity: 3, Price: decimal.New(10, 0), BuyerID: 2, FarmerID: 7}
	err = repo.CreateTx(context.Background(), tx, o)
	require.Error(t, err)
	// The rollback undoes the reservation together with the failed insert.
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForCancelTxScopedToBuyer(t *testing.T) {
	repo, mock, done := newOrderMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT product_id, quantity, status FROM orders WHERE id=? AND buyer_id=? FOR UPDATE")).
		WithArgs(5, 99).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity", "status"}))
	mock.ExpectRollback()

	tx, err := repo.DB.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	_, _, _, err = repo.GetForCancelTx(context.Background(), tx, 5, 99)
	require.NoError(t, tx.Rollback())

	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePendingTxRefusesNonPending(t *testing.T) {
	repo, mock, done := newOrderMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE id=? AND buyer_id=? AND status=?")).
		WithArgs(5, 2, StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := repo.DB.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	err = repo.DeletePendingTx(context.Background(), tx, 5, 2)
	require.NoError(t, tx.Rollback())

	assert.ErrorIs(t, err, ErrOrderNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusWrongFarmer(t *testing.T) {
	repo, mock, done := newOrderMock(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=? WHERE id=? AND farmer_id=?")).
		WithArgs(StatusAccepted, 5, 8).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM orders WHERE id=? AND farmer_id=?)")).
		WithArgs(5, 8).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.UpdateStatus(context.Background(), 5, 8, StatusAccepted)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusNoOpStillReturnsDetail(t *testing.T) {
	repo, mock, done := newOrderMock(t)
	defer done()

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=? WHERE id=? AND farmer_id=?")).
		WithArgs(StatusPending, 5, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM orders WHERE id=? AND farmer_id=?)")).
		WithArgs(5, 7).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT o.id,o.product_id,.* FROM orders o").
		WithArgs(5, 7).
		WillReturnRows(detailRows(now, "pending"))

	d, err := repo.UpdateStatus(context.Background(), 5, 7, StatusPending)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, d.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusTransition(t *testing.T) {
	repo, mock, done := newOrderMock(t)
	defer done()

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=? WHERE id=? AND farmer_id=?")).
		WithArgs(StatusDelivered, 5, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT o.id,o.product_id,.* FROM orders o").
		WithArgs(5, 7).
		WillReturnRows(detailRows(now, "delivered"))

	d, err := repo.UpdateStatus(context.Background(), 5, 7, StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, d.Status)
	assert.Equal(t, "Tomatoes", d.ProductName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByBuyerJoinsFarmerAndProduct(t *testing.T) {
	repo, mock, done := newOrderMock(t)
	defer done()

	now := time.Now()
	mock.ExpectQuery("SELECT o.id,o.product_id,.* FROM orders o").
		WithArgs(2).
		WillReturnRows(detailRows(now, "pending"))

	items, err := repo.ListByBuyer(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Ana", items[0].FarmerName)
	assert.Equal(t, "kg", items[0].ProductUnit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func detailRows(ts time.Time, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "product_id", "quantity", "price", "status", "buyer_id", "farmer_id",
		"created_at", "updated_at", "name", "email", "p_name", "p_image", "p_unit",
	}).AddRow(5, 1, 3, "10.00", status, 2, 7, ts, ts, "Ana", "ana@example.com", "Tomatoes", "", "kg")
}
