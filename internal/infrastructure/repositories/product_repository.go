package repositories

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/kayendev-lutech/ecommerce/internal/core/domain/product"
	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/db"
)

const productColumns = `id, name, slug, COALESCE(description, '') AS description, price, discount_price,
	currency_code, category_id, COALESCE(image_url, '') AS image_url, is_active, is_visible,
	COALESCE(attributes, '{}') AS attributes, created_at, updated_at`

const variantColumns = `id, product_id, COALESCE(name, '') AS name, COALESCE(sku, '') AS sku, price,
	discount_price, currency_code, stock_quantity, is_default, sort_order,
	COALESCE(attributes, '{}') AS attributes`

// pgUniqueViolation is the SQLSTATE Postgres reports for unique constraint failures.
const pgUniqueViolation = "23505"

type productRow struct {
	product.Product
	AttributesJSON []byte `db:"attributes"`
}

func (r productRow) toProduct() (*product.Product, error) {
	p := r.Product
	if len(r.AttributesJSON) > 0 {
		if err := json.Unmarshal(r.AttributesJSON, &p.Attributes); err != nil {
			return nil, fmt.Errorf("failed to parse attributes: %w", err)
		}
	}
	return &p, nil
}

type variantRow struct {
	product.Variant
	AttributesJSON []byte `db:"attributes"`
}

// ProductRepository persists products and their variants in Postgres.
type ProductRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewProductRepository(database *db.Database, logger *logrus.Logger) ports.ProductRepository {
	return &ProductRepository{db: database, logger: logger}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation
}

func marshalAttributes(attrs map[string]any) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]any{}
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}
	return b, nil
}

// Create inserts the product and its variants in one transaction and fills
// the generated ids and timestamps.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	attrs, err := marshalAttributes(p.Attributes)
	if err != nil {
		return err
	}

	err = r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO products (name, slug, description, price, discount_price, currency_code,
				category_id, image_url, is_active, is_visible, attributes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at, updated_at`

		err := tx.QueryRowxContext(ctx, query,
			p.Name, p.Slug, p.Description, p.Price, p.DiscountPrice, p.CurrencyCode,
			p.CategoryID, p.ImageURL, p.IsActive, p.IsVisible, attrs,
		).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return product.ErrSlugTaken
			}
			return fmt.Errorf("failed to create product: %w", err)
		}
		return insertVariants(ctx, tx, p.ID, p.Variants)
	})
	if err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{"product_id": p.ID, "variants": len(p.Variants)}).Info("db: product created")
	return nil
}

func insertVariants(ctx context.Context, tx *sqlx.Tx, productID int64, variants []product.Variant) error {
	query := `
		INSERT INTO variants (product_id, name, sku, price, discount_price, currency_code,
			stock_quantity, is_default, sort_order, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	for i := range variants {
		v := &variants[i]
		attrs, err := marshalAttributes(v.Attributes)
		if err != nil {
			return err
		}
		err = tx.QueryRowxContext(ctx, query,
			productID, v.Name, v.SKU, v.Price, v.DiscountPrice, v.CurrencyCode,
			v.StockQuantity, v.IsDefault, v.SortOrder, attrs,
		).Scan(&v.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: duplicate variant sku %q", product.ErrInvalidProduct, v.SKU)
			}
			return fmt.Errorf("failed to create variant: %w", err)
		}
		v.ProductID = productID
	}
	return nil
}

func (r *ProductRepository) findOne(ctx context.Context, where string, arg any) (*product.Product, error) {
	var row productRow
	query := `SELECT ` + productColumns + ` FROM products WHERE ` + where
	if err := r.db.DB.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, product.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return row.toProduct()
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*product.Product, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return r.findOne(ctx, "slug = $1", slug)
}

// FindDetailByID loads the product together with its ordered variants.
func (r *ProductRepository) FindDetailByID(ctx context.Context, id int64) (*product.Product, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var rows []variantRow
	query := `SELECT ` + variantColumns + ` FROM variants WHERE product_id = $1 ORDER BY sort_order, id`
	if err := r.db.DB.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}

	p.Variants = make([]product.Variant, 0, len(rows))
	for _, row := range rows {
		v := row.Variant
		if len(row.AttributesJSON) > 0 {
			if err := json.Unmarshal(row.AttributesJSON, &v.Attributes); err != nil {
				return nil, fmt.Errorf("failed to parse variant attributes: %w", err)
			}
		}
		p.Variants = append(p.Variants, v)
	}
	return p, nil
}

// Update applies the fields present in patch. When the patch carries
// variants they replace the stored ones.
func (r *ProductRepository) Update(ctx context.Context, id int64, patch product.Patch) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		add("name", strings.TrimSpace(*patch.Name))
	}
	if patch.Slug != nil {
		add("slug", strings.TrimSpace(*patch.Slug))
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.DiscountPrice != nil {
		add("discount_price", *patch.DiscountPrice)
	}
	if patch.CurrencyCode != nil {
		add("currency_code", *patch.CurrencyCode)
	}
	if patch.CategoryID != nil {
		add("category_id", *patch.CategoryID)
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if patch.IsVisible != nil {
		add("is_visible", *patch.IsVisible)
	}
	if patch.Attributes != nil {
		attrs, err := marshalAttributes(*patch.Attributes)
		if err != nil {
			return err
		}
		add("attributes", attrs)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return product.ErrSlugTaken
			}
			return fmt.Errorf("failed to update product: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return product.ErrProductNotFound
		}

		if patch.Variants != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM variants WHERE product_id = $1`, id); err != nil {
				return fmt.Errorf("failed to clear variants: %w", err)
			}
			if err := insertVariants(ctx, tx, id, *patch.Variants); err != nil {
				return err
			}
		}

		r.logger.WithFields(logrus.Fields{"product_id": id, "fields": patch.ChangedFields()}).Info("db: product updated")
		return nil
	})
}

func (r *ProductRepository) UpdateImage(ctx context.Context, id int64, imageURL string) (*product.Product, error) {
	var row productRow
	query := `UPDATE products SET image_url = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + productColumns
	if err := r.db.DB.GetContext(ctx, &row, query, id, imageURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, product.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product image: %w", err)
	}
	return row.toProduct()
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM variants WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete variants: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return product.ErrProductNotFound
		}
		return nil
	})
}

// List returns one offset page and the total number of matching products.
// q must be normalized: SortBy and Order are interpolated into the query.
func (r *ProductRepository) List(ctx context.Context, q product.ListQuery) ([]product.Product, int, error) {
	where := ""
	var args []any
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = " WHERE name ILIKE $1"
	}

	var total int
	if err := r.db.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM products`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		productColumns, where, q.SortBy, q.Order, q.Order, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset())

	var rows []productRow
	if err := r.db.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	items, err := toProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListByCursor pages through products newest first, keyed on (created_at, id).
func (r *ProductRepository) ListByCursor(ctx context.Context, q product.CursorQuery) (*product.CursorPage, error) {
	var (
		query   string
		args    []any
		reverse bool
	)
	switch {
	case q.AfterCursor != "":
		c, err := decodeCursor(q.AfterCursor)
		if err != nil {
			return nil, err
		}
		query = `SELECT ` + productColumns + ` FROM products
			WHERE (created_at, id) < ($1, $2) ORDER BY created_at DESC, id DESC LIMIT $3`
		args = []any{c.createdAt, c.id, q.Limit + 1}
	case q.BeforeCursor != "":
		c, err := decodeCursor(q.BeforeCursor)
		if err != nil {
			return nil, err
		}
		query = `SELECT ` + productColumns + ` FROM products
			WHERE (created_at, id) > ($1, $2) ORDER BY created_at ASC, id ASC LIMIT $3`
		args = []any{c.createdAt, c.id, q.Limit + 1}
		reverse = true
	default:
		query = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC LIMIT $1`
		args = []any{q.Limit + 1}
	}

	var rows []productRow
	if err := r.db.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products by cursor: %w", err)
	}

	more := len(rows) > q.Limit
	if more {
		rows = rows[:q.Limit]
	}
	if reverse {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	items, err := toProducts(rows)
	if err != nil {
		return nil, err
	}

	page := &product.CursorPage{
		Data: items,
		Meta: product.CursorMeta{Limit: q.Limit, Count: len(items)},
	}
	if len(items) == 0 {
		return page, nil
	}
	first, last := items[0], items[len(items)-1]
	// A before-cursor page always has a next page: the one it was requested from.
	hasNext := more || reverse
	hasPrev := q.AfterCursor != "" || (reverse && more)
	if hasNext {
		page.Meta.AfterCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	if hasPrev {
		page.Meta.BeforeCursor = encodeCursor(first.CreatedAt, first.ID)
	}
	return page, nil
}

func toProducts(rows []productRow) ([]product.Product, error) {
	items := make([]product.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toProduct()
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	return items, nil
}

type cursor struct {
	createdAt time.Time
	id        int64
}

func encodeCursor(createdAt time.Time, id int64) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + strconv.FormatInt(id, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, product.ErrInvalidCursor
	}
	ts, idStr, ok := strings.Cut(string(raw), "|")
	if !ok {
		return cursor{}, product.ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return cursor{}, product.ErrInvalidCursor
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return cursor{}, product.ErrInvalidCursor
	}
	return cursor{createdAt: createdAt, id: id}, nil
}
