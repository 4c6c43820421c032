package product

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire names of product columns, shared by patches and the cache classifier.
const (
	FieldName          = "name"
	FieldSlug          = "slug"
	FieldDescription   = "description"
	FieldPrice         = "price"
	FieldDiscountPrice = "discount_price"
	FieldCurrencyCode  = "currency_code"
	FieldCategoryID    = "category_id"
	FieldImageURL      = "image_url"
	FieldIsActive      = "is_active"
	FieldIsVisible     = "is_visible"
	FieldAttributes    = "attributes"
	FieldVariants      = "variants"
)

const (
	DefaultPage     = 1
	DefaultLimit    = 10
	MaxLimit        = 100
	DefaultOrder    = "ASC"
	DefaultSortBy   = "created_at"
	DefaultCurrency = "VND"
)

var sortableColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"price":      true,
	"name":       true,
}

type CreateProductRequest struct {
	Name          string         `json:"name"`
	Slug          string         `json:"slug"`
	Description   string         `json:"description,omitempty"`
	Price         float64        `json:"price"`
	DiscountPrice *float64       `json:"discount_price,omitempty"`
	CurrencyCode  string         `json:"currency_code,omitempty"`
	CategoryID    int64          `json:"category_id"`
	ImageURL      string         `json:"image_url,omitempty"`
	IsActive      *bool          `json:"is_active,omitempty"`
	IsVisible     *bool          `json:"is_visible,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	Variants      []Variant      `json:"variants,omitempty"`
}

// Validate performs the structural checks persistence relies on.
func (r *CreateProductRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if strings.TrimSpace(r.Slug) == "" {
		return fmt.Errorf("%w: slug is required", ErrInvalidProduct)
	}
	if r.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if r.CategoryID <= 0 {
		return fmt.Errorf("%w: category_id is required", ErrInvalidProduct)
	}
	return nil
}

// ToProduct builds the entity to persist, filling defaults.
func (r *CreateProductRequest) ToProduct() *Product {
	p := &Product{
		Name:          strings.TrimSpace(r.Name),
		Slug:          strings.TrimSpace(r.Slug),
		Description:   r.Description,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		CurrencyCode:  r.CurrencyCode,
		CategoryID:    r.CategoryID,
		ImageURL:      r.ImageURL,
		IsActive:      true,
		IsVisible:     true,
		Attributes:    r.Attributes,
	}
	if p.CurrencyCode == "" {
		p.CurrencyCode = DefaultCurrency
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	if r.IsVisible != nil {
		p.IsVisible = *r.IsVisible
	}
	p.Variants = make([]Variant, len(r.Variants))
	for i, v := range r.Variants {
		if v.CurrencyCode == "" {
			v.CurrencyCode = p.CurrencyCode
		}
		if v.Price == 0 {
			v.Price = p.Price
		}
		if i == 0 && !hasDefault(r.Variants) {
			v.IsDefault = true
		}
		if v.SortOrder == 0 {
			v.SortOrder = i
		}
		p.Variants[i] = v
	}
	return p
}

func hasDefault(vs []Variant) bool {
	for _, v := range vs {
		if v.IsDefault {
			return true
		}
	}
	return false
}

// Patch is a partial product update. A non-nil field means the caller sent it.
type Patch struct {
	Name          *string         `json:"name,omitempty"`
	Slug          *string         `json:"slug,omitempty"`
	Description   *string         `json:"description,omitempty"`
	Price         *float64        `json:"price,omitempty"`
	DiscountPrice *float64        `json:"discount_price,omitempty"`
	CurrencyCode  *string         `json:"currency_code,omitempty"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	ImageURL      *string         `json:"image_url,omitempty"`
	IsActive      *bool           `json:"is_active,omitempty"`
	IsVisible     *bool           `json:"is_visible,omitempty"`
	Attributes    *map[string]any `json:"attributes,omitempty"`
	Variants      *[]Variant      `json:"variants,omitempty"`
}

// ChangedFields lists the wire names of the fields present in the patch.
func (p Patch) ChangedFields() []string {
	var fields []string
	add := func(present bool, name string) {
		if present {
			fields = append(fields, name)
		}
	}
	add(p.Name != nil, FieldName)
	add(p.Slug != nil, FieldSlug)
	add(p.Description != nil, FieldDescription)
	add(p.Price != nil, FieldPrice)
	add(p.DiscountPrice != nil, FieldDiscountPrice)
	add(p.CurrencyCode != nil, FieldCurrencyCode)
	add(p.CategoryID != nil, FieldCategoryID)
	add(p.ImageURL != nil, FieldImageURL)
	add(p.IsActive != nil, FieldIsActive)
	add(p.IsVisible != nil, FieldIsVisible)
	add(p.Attributes != nil, FieldAttributes)
	add(p.Variants != nil, FieldVariants)
	return fields
}

func (p Patch) IsEmpty() bool {
	return len(p.ChangedFields()) == 0
}

func (p Patch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidProduct)
	}
	if p.Slug != nil && strings.TrimSpace(*p.Slug) == "" {
		return fmt.Errorf("%w: slug must not be empty", ErrInvalidProduct)
	}
	if p.Price != nil && *p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	return nil
}

// ListQuery is an offset-paginated product listing request.
type ListQuery struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Search string `query:"search"`
	Order  string `query:"order"`
	SortBy string `query:"sort_by"`
}

// Normalize fills defaults and clamps values to what the store accepts.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Order = strings.ToUpper(q.Order)
	if q.Order != "ASC" && q.Order != "DESC" {
		q.Order = DefaultOrder
	}
	if !sortableColumns[q.SortBy] {
		q.SortBy = DefaultSortBy
	}
	return q
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Params returns the query as name/value pairs for cache fingerprinting.
func (q ListQuery) Params() map[string]string {
	return map[string]string{
		"page":   strconv.Itoa(q.Page),
		"limit":  strconv.Itoa(q.Limit),
		"search": q.Search,
		"order":  q.Order,
		"sort":   q.SortBy,
	}
}

// CursorQuery is a keyset ("load more") listing request.
type CursorQuery struct {
	Limit        int    `query:"limit"`
	AfterCursor  string `query:"after_cursor"`
	BeforeCursor string `query:"before_cursor"`
}

func (q CursorQuery) Normalize() CursorQuery {
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

func (q CursorQuery) Params() map[string]string {
	return map[string]string{
		"limit":  strconv.Itoa(q.Limit),
		"after":  q.AfterCursor,
		"before": q.BeforeCursor,
	}
}

type OffsetMeta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

func NewOffsetMeta(total int, q ListQuery) OffsetMeta {
	pages := 0
	if q.Limit > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	return OffsetMeta{
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    q.Page < pages,
		HasPrev:    q.Page > 1,
	}
}

type OffsetPage struct {
	Data []Product  `json:"data"`
	Meta OffsetMeta `json:"meta"`
}

type CursorMeta struct {
	Limit        int    `json:"limit"`
	Count        int    `json:"count"`
	AfterCursor  string `json:"after_cursor,omitempty"`
	BeforeCursor string `json:"before_cursor,omitempty"`
}

type CursorPage struct {
	Data []Product  `json:"data"`
	Meta CursorMeta `json:"meta"`
}
