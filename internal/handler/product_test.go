package handler

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrilink/farm-market-api/internal/repository"
)

func newProductHandler(t *testing.T) (*ProductHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	h := NewProductHandler(repository.NewProductRepo(db))
	return h, mock, func() { db.Close() }
}

func TestCreateProductDefaults(t *testing.T) {
	h, mock, done := newProductHandler(t)
	defer done()

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products (name, description, price, stock, unit, image, farmer_id, status) VALUES (?,?,?,?,?,?,?,?)")).
		WithArgs("Tomatoes", "", sqlmock.AnyArg(), 10, "kg", "", 7, repository.ProductActive).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT id,name,.* FROM products WHERE id=").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price", "stock", "unit", "image", "farmer_id", "status", "created_at", "updated_at"}).
			AddRow(1, "Tomatoes", "", "4.20", 10, "kg", "", 7, "active", now, now))

	c, rec := orderContext(http.MethodPost, "/api/products",
		`{"name":"Tomatoes","price":"4.20","stock":10}`, 7)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "product published")
	assert.Contains(t, rec.Body.String(), `"unit":"kg"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductMissingPrice(t *testing.T) {
	h, _, done := newProductHandler(t)
	defer done()

	c, rec := orderContext(http.MethodPost, "/api/products",
		`{"name":"Tomatoes","stock":10}`, 7)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name, price and stock are required")
}

func TestCreateProductZeroStockAllowed(t *testing.T) {
	h, mock, done := newProductHandler(t)
	defer done()

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products (name, description, price, stock, unit, image, farmer_id, status) VALUES (?,?,?,?,?,?,?,?)")).
		WithArgs("Eggs", "", sqlmock.AnyArg(), 0, "kg", "", 7, repository.ProductActive).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery("SELECT id,name,.* FROM products WHERE id=").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price", "stock", "unit", "image", "farmer_id", "status", "created_at", "updated_at"}).
			AddRow(2, "Eggs", "", "1.00", 0, "kg", "", 7, "active", now, now))

	// Explicit zero stock is a listing without availability, not an error.
	c, rec := orderContext(http.MethodPost, "/api/products",
		`{"name":"Eggs","price":"1.00","stock":0}`, 7)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductNegativePrice(t *testing.T) {
	h, _, done := newProductHandler(t)
	defer done()

	c, rec := orderContext(http.MethodPost, "/api/products",
		`{"name":"Tomatoes","price":"-1.00","stock":10}`, 7)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "price must not be negative")
}

func TestUpdateProductInvalidStatus(t *testing.T) {
	h, _, done := newProductHandler(t)
	defer done()

	c, rec := orderContext(http.MethodPatch, "/api/products/1", `{"status":"archived"}`, 7)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid status")
}

func TestUpdateProductNotOwned(t *testing.T) {
	h, mock, done := newProductHandler(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock=? WHERE id=? AND farmer_id=?")).
		WithArgs(9, 1, 8).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id,name,.* FROM products WHERE id=").
		WithArgs(1, 8).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := orderContext(http.MethodPatch, "/api/products/1", `{"stock":9}`, 8)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "product not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProduct(t *testing.T) {
	h, mock, done := newProductHandler(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id=? AND farmer_id=?")).
		WithArgs(1, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := orderContext(http.MethodDelete, "/api/products/1", "", 7)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "product deleted")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogPublic(t *testing.T) {
	h, mock, done := newProductHandler(t)
	defer done()

	now := time.Now()
	mock.ExpectQuery("SELECT p.id,p.name,.* FROM products p").
		WithArgs(repository.ProductActive).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "price", "stock", "unit", "image",
			"farmer_id", "status", "created_at", "updated_at", "farmer_name", "farmer_email",
		}).AddRow(1, "Tomatoes", "ripe", "4.20", 10, "kg", "", 7, "active", now, now, "Ana", "ana@example.com"))

	c, rec := orderContext(http.MethodGet, "/api/products", "", 0)
	require.NoError(t, h.Catalog(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"farmer_name":"Ana"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
