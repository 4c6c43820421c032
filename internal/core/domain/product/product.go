package product

import (
	"errors"
	"time"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrSlugTaken       = errors.New("slug already exists")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidCursor   = errors.New("invalid cursor")
)

type Product struct {
	ID            int64          `json:"id" db:"id"`
	Name          string         `json:"name" db:"name"`
	Slug          string         `json:"slug" db:"slug"`
	Description   string         `json:"description,omitempty" db:"description"`
	Price         float64        `json:"price" db:"price"`
	DiscountPrice *float64       `json:"discount_price,omitempty" db:"discount_price"`
	CurrencyCode  string         `json:"currency_code" db:"currency_code"`
	CategoryID    int64          `json:"category_id" db:"category_id"`
	ImageURL      string         `json:"image_url,omitempty" db:"image_url"`
	IsActive      bool           `json:"is_active" db:"is_active"`
	IsVisible     bool           `json:"is_visible" db:"is_visible"`
	Attributes    map[string]any `json:"attributes,omitempty" db:"-"`
	Variants      []Variant      `json:"variants,omitempty" db:"-"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

type Variant struct {
	ID            int64          `json:"id" db:"id"`
	ProductID     int64          `json:"product_id,omitempty" db:"product_id"`
	Name          string         `json:"name,omitempty" db:"name"`
	SKU           string         `json:"sku,omitempty" db:"sku"`
	Price         float64        `json:"price,omitempty" db:"price"`
	DiscountPrice *float64       `json:"discount_price,omitempty" db:"discount_price"`
	CurrencyCode  string         `json:"currency_code,omitempty" db:"currency_code"`
	StockQuantity int            `json:"stock_quantity,omitempty" db:"stock_quantity"`
	IsDefault     bool           `json:"is_default,omitempty" db:"is_default"`
	SortOrder     int            `json:"sort_order,omitempty" db:"sort_order"`
	Attributes    map[string]any `json:"attributes,omitempty" db:"-"`
}

// ProductMeta is the rarely changing part of a product.
type ProductMeta struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description,omitempty"`
	CurrencyCode string    `json:"currency_code"`
	CategoryID   int64     `json:"category_id"`
	ImageURL     string    `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProductPrice is the volatile part of a product.
type ProductPrice struct {
	Price         float64  `json:"price"`
	DiscountPrice *float64 `json:"discount_price,omitempty"`
	IsActive      bool     `json:"is_active"`
	IsVisible     bool     `json:"is_visible"`
}

func (p *Product) Meta() ProductMeta {
	return ProductMeta{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		CurrencyCode: p.CurrencyCode,
		CategoryID:   p.CategoryID,
		ImageURL:     p.ImageURL,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (p *Product) PriceSnapshot() ProductPrice {
	return ProductPrice{
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		IsActive:      p.IsActive,
		IsVisible:     p.IsVisible,
	}
}

// MetaPatch returns a patch carrying every meta field of p.
func (p *Product) MetaPatch() MetaPatch {
	m := p.Meta()
	return MetaPatch{
		ID:           &m.ID,
		Name:         &m.Name,
		Slug:         &m.Slug,
		Description:  &m.Description,
		CurrencyCode: &m.CurrencyCode,
		CategoryID:   &m.CategoryID,
		ImageURL:     &m.ImageURL,
		CreatedAt:    &m.CreatedAt,
		UpdatedAt:    &m.UpdatedAt,
	}
}

// Compose rebuilds a product from its cached parts.
func Compose(meta ProductMeta, price ProductPrice, variants []Variant) *Product {
	if variants == nil {
		variants = []Variant{}
	}
	return &Product{
		ID:            meta.ID,
		Name:          meta.Name,
		Slug:          meta.Slug,
		Description:   meta.Description,
		CurrencyCode:  meta.CurrencyCode,
		CategoryID:    meta.CategoryID,
		ImageURL:      meta.ImageURL,
		CreatedAt:     meta.CreatedAt,
		UpdatedAt:     meta.UpdatedAt,
		Price:         price.Price,
		DiscountPrice: price.DiscountPrice,
		IsActive:      price.IsActive,
		IsVisible:     price.IsVisible,
		Variants:      variants,
	}
}

// MetaPatch is a partial meta update; nil fields are left untouched.
type MetaPatch struct {
	ID           *int64
	Name         *string
	Slug         *string
	Description  *string
	CurrencyCode *string
	CategoryID   *int64
	ImageURL     *string
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
}

// Complete reports whether the patch alone describes a whole meta snapshot.
func (mp MetaPatch) Complete() bool {
	return mp.ID != nil && mp.Name != nil && mp.Slug != nil && mp.CurrencyCode != nil &&
		mp.CategoryID != nil && mp.CreatedAt != nil && mp.UpdatedAt != nil
}

func (mp MetaPatch) ApplyTo(m *ProductMeta) {
	if mp.ID != nil {
		m.ID = *mp.ID
	}
	if mp.Name != nil {
		m.Name = *mp.Name
	}
	if mp.Slug != nil {
		m.Slug = *mp.Slug
	}
	if mp.Description != nil {
		m.Description = *mp.Description
	}
	if mp.CurrencyCode != nil {
		m.CurrencyCode = *mp.CurrencyCode
	}
	if mp.CategoryID != nil {
		m.CategoryID = *mp.CategoryID
	}
	if mp.ImageURL != nil {
		m.ImageURL = *mp.ImageURL
	}
	if mp.CreatedAt != nil {
		m.CreatedAt = *mp.CreatedAt
	}
	if mp.UpdatedAt != nil {
		m.UpdatedAt = *mp.UpdatedAt
	}
}
