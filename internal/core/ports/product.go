package ports

import (
	"context"

	"github.com/kayendev-lutech/ecommerce/internal/core/domain/product"
)

// ProductRepository is the relational source of truth for products and their variants.
type ProductRepository interface {
	Create(ctx context.Context, p *product.Product) error
	FindByID(ctx context.Context, id int64) (*product.Product, error)
	FindDetailByID(ctx context.Context, id int64) (*product.Product, error)
	FindBySlug(ctx context.Context, slug string) (*product.Product, error)
	Update(ctx context.Context, id int64, patch product.Patch) error
	UpdateImage(ctx context.Context, id int64, imageURL string) (*product.Product, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, q product.ListQuery) ([]product.Product, int, error)
	ListByCursor(ctx context.Context, q product.CursorQuery) (*product.CursorPage, error)
}

// ProductService defines the product use cases exposed to transports.
type ProductService interface {
	List(ctx context.Context, q product.ListQuery) (*product.OffsetPage, error)
	LoadMore(ctx context.Context, q product.CursorQuery) (*product.CursorPage, error)
	GetByID(ctx context.Context, id int64) (*product.Product, error)
	Create(ctx context.Context, req *product.CreateProductRequest) (*product.Product, error)
	Update(ctx context.Context, id int64, patch product.Patch) (*product.Product, error)
	Delete(ctx context.Context, id int64) error
	UpdateImage(ctx context.Context, id int64, imageURL string) (*product.Product, error)
	UploadImageAsync(ctx context.Context, id int64, upload ImageUpload) (*ImageUploadReceipt, error)
}

// ImageUpload is a raw image received from a client.
type ImageUpload struct {
	Data         []byte
	OriginalName string
	MimeType     string
}

type ImageUploadReceipt struct {
	Message   string `json:"message"`
	JobID     string `json:"job_id"`
	ProductID int64  `json:"product_id"`
}
