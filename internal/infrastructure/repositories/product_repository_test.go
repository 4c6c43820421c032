package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/kayendev-lutech/ecommerce/internal/core/domain/product"
	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/db"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/repositories"
)

var productCols = []string{
	"id", "name", "slug", "description", "price", "discount_price", "currency_code",
	"category_id", "image_url", "is_active", "is_visible", "attributes", "created_at", "updated_at",
}

var variantCols = []string{
	"id", "product_id", "name", "sku", "price", "discount_price", "currency_code",
	"stock_quantity", "is_default", "sort_order", "attributes",
}

func newRepo(t *testing.T) (ports.ProductRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})
	return repositories.NewProductRepository(db.NewFromDB(sqlDB), logrus.New()), mock
}

var ts = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func productRow(rows *sqlmock.Rows, id int64, name string, created time.Time) *sqlmock.Rows {
	return rows.AddRow(id, name, "slug-"+name, "", 10.0, nil, "VND", int64(2), "", true, true, []byte(`{"color":"red"}`), created, created)
}

func TestProductRepository_Create(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO products`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), ts, ts))
	mock.ExpectQuery(`INSERT INTO variants`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(101)))
	mock.ExpectQuery(`INSERT INTO variants`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(102)))
	mock.ExpectCommit()

	p := &product.Product{
		Name: "Shoe", Slug: "shoe", Price: 10, CurrencyCode: "VND", CategoryID: 2,
		Variants: []product.Variant{{Name: "41"}, {Name: "42"}},
	}
	require.NoError(t, repo.Create(context.Background(), p))
	require.Equal(t, int64(11), p.ID)
	require.Equal(t, ts, p.CreatedAt)
	require.Equal(t, int64(101), p.Variants[0].ID)
	require.Equal(t, int64(102), p.Variants[1].ID)
	require.Equal(t, int64(11), p.Variants[1].ProductID)
}

func TestProductRepository_CreateDuplicateSlug(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO products`).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &product.Product{Name: "Shoe", Slug: "shoe"})
	require.ErrorIs(t, err, product.ErrSlugTaken)
}

func TestProductRepository_FindByIDNotFound(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(`FROM products WHERE id = \$1`).WithArgs(int64(9)).WillReturnRows(sqlmock.NewRows(productCols))

	_, err := repo.FindByID(context.Background(), 9)
	require.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestProductRepository_FindDetailByID(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(`FROM products WHERE id = \$1`).WithArgs(int64(4)).
		WillReturnRows(productRow(sqlmock.NewRows(productCols), 4, "boot", ts))
	mock.ExpectQuery(`FROM variants WHERE product_id = \$1 ORDER BY sort_order, id`).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(variantCols).
			AddRow(int64(1), int64(4), "40", "B-40", 10.0, nil, "VND", 3, true, 0, []byte(`{"size":40}`)))

	p, err := repo.FindDetailByID(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, "boot", p.Name)
	require.Equal(t, map[string]any{"color": "red"}, p.Attributes)
	require.Len(t, p.Variants, 1)
	require.Equal(t, "B-40", p.Variants[0].SKU)
	require.Equal(t, map[string]any{"size": float64(40)}, p.Variants[0].Attributes)
}

func TestProductRepository_FindDetailWithoutVariants(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(`FROM products WHERE id = \$1`).
		WillReturnRows(productRow(sqlmock.NewRows(productCols), 4, "boot", ts))
	mock.ExpectQuery(`FROM variants`).WillReturnRows(sqlmock.NewRows(variantCols))

	p, err := repo.FindDetailByID(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, p.Variants)
	require.Empty(t, p.Variants)
}

func TestProductRepository_UpdateBuildsSetClause(t *testing.T) {
	repo, mock := newRepo(t)
	name, price := "New", 12.5
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE products SET name = \$1, price = \$2, updated_at = NOW\(\) WHERE id = \$3`).
		WithArgs("New", 12.5, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), 5, product.Patch{Name: &name, Price: &price}))
}

func TestProductRepository_UpdateReplacesVariants(t *testing.T) {
	repo, mock := newRepo(t)
	variants := []product.Variant{{Name: "XL"}}
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE products SET updated_at = NOW\(\) WHERE id = \$1`).
		WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM variants WHERE product_id = \$1`).WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`INSERT INTO variants`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), 5, product.Patch{Variants: &variants}))
}

func TestProductRepository_UpdateMissing(t *testing.T) {
	repo, mock := newRepo(t)
	active := false
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE products`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), 5, product.Patch{IsActive: &active})
	require.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestProductRepository_UpdateImage(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(`UPDATE products SET image_url = \$2, updated_at = NOW\(\) WHERE id = \$1 RETURNING`).
		WithArgs(int64(3), "http://img/3.png").
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(int64(3), "cap", "cap", "", 5.0, nil, "VND", int64(1), "http://img/3.png", true, true, []byte(`{}`), ts, ts))

	p, err := repo.UpdateImage(context.Background(), 3, "http://img/3.png")
	require.NoError(t, err)
	require.Equal(t, "http://img/3.png", p.ImageURL)
}

func TestProductRepository_Delete(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM variants WHERE product_id = \$1`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM products WHERE id = \$1`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 3))
}

func TestProductRepository_ListWithSearch(t *testing.T) {
	repo, mock := newRepo(t)
	q := product.ListQuery{Page: 2, Limit: 5, Search: "shoe", Order: "desc", SortBy: "price"}.Normalize()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products WHERE name ILIKE \$1`).WithArgs("%shoe%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`FROM products WHERE name ILIKE \$1 ORDER BY price DESC, id DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("%shoe%", 5, 5).
		WillReturnRows(productRow(productRow(sqlmock.NewRows(productCols), 1, "a", ts), 2, "b", ts))

	items, total, err := repo.List(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, 12, total)
	require.Len(t, items, 2)
	require.Equal(t, "b", items[1].Name)
}

func TestProductRepository_ListByCursorFirstPage(t *testing.T) {
	repo, mock := newRepo(t)
	rows := sqlmock.NewRows(productCols)
	productRow(rows, 3, "c", ts.Add(2*time.Hour))
	productRow(rows, 2, "b", ts.Add(time.Hour))
	productRow(rows, 1, "a", ts)
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC LIMIT \$1`).WithArgs(3).WillReturnRows(rows)

	page, err := repo.ListByCursor(context.Background(), product.CursorQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	require.Equal(t, 2, page.Meta.Count)
	require.Empty(t, page.Meta.BeforeCursor)
	require.Equal(t, repositories.EncodeCursor(ts.Add(time.Hour), 2), page.Meta.AfterCursor)
}

func TestProductRepository_ListByCursorAfter(t *testing.T) {
	repo, mock := newRepo(t)
	after := repositories.EncodeCursor(ts.Add(time.Hour), 2)
	mock.ExpectQuery(`WHERE \(created_at, id\) < \(\$1, \$2\) ORDER BY created_at DESC, id DESC LIMIT \$3`).
		WithArgs(ts.Add(time.Hour), int64(2), 3).
		WillReturnRows(productRow(sqlmock.NewRows(productCols), 1, "a", ts))

	page, err := repo.ListByCursor(context.Background(), product.CursorQuery{Limit: 2, AfterCursor: after})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.Empty(t, page.Meta.AfterCursor)
	require.Equal(t, repositories.EncodeCursor(ts, 1), page.Meta.BeforeCursor)
}

func TestProductRepository_ListByCursorRejectsGarbage(t *testing.T) {
	repo, _ := newRepo(t)
	_, err := repo.ListByCursor(context.Background(), product.CursorQuery{Limit: 2, AfterCursor: "%%%"})
	require.ErrorIs(t, err, product.ErrInvalidCursor)
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 123456789, time.UTC)
	created, id, err := repositories.DecodeCursor(repositories.EncodeCursor(at, 42))
	require.NoError(t, err)
	require.True(t, at.Equal(created))
	require.Equal(t, int64(42), id)
}
