package mocks

import (
	"context"
	"time"

	"github.com/kayendev-lutech/ecommerce/internal/core/domain/job"
	"github.com/kayendev-lutech/ecommerce/internal/core/domain/product"
	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
)

// ProductRepositoryMock is a lightweight mock for ProductRepository
type ProductRepositoryMock struct {
	CreateFn         func(ctx context.Context, p *product.Product) error
	FindByIDFn       func(ctx context.Context, id int64) (*product.Product, error)
	FindDetailByIDFn func(ctx context.Context, id int64) (*product.Product, error)
	FindBySlugFn     func(ctx context.Context, slug string) (*product.Product, error)
	UpdateFn         func(ctx context.Context, id int64, patch product.Patch) error
	UpdateImageFn    func(ctx context.Context, id int64, imageURL string) (*product.Product, error)
	DeleteFn         func(ctx context.Context, id int64) error
	ListFn           func(ctx context.Context, q product.ListQuery) ([]product.Product, int, error)
	ListByCursorFn   func(ctx context.Context, q product.CursorQuery) (*product.CursorPage, error)
}

func (m *ProductRepositoryMock) Create(ctx context.Context, p *product.Product) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return nil
}
func (m *ProductRepositoryMock) FindByID(ctx context.Context, id int64) (*product.Product, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return nil, product.ErrProductNotFound
}
func (m *ProductRepositoryMock) FindDetailByID(ctx context.Context, id int64) (*product.Product, error) {
	if m.FindDetailByIDFn != nil {
		return m.FindDetailByIDFn(ctx, id)
	}
	return nil, product.ErrProductNotFound
}
func (m *ProductRepositoryMock) FindBySlug(ctx context.Context, slug string) (*product.Product, error) {
	if m.FindBySlugFn != nil {
		return m.FindBySlugFn(ctx, slug)
	}
	return nil, product.ErrProductNotFound
}
func (m *ProductRepositoryMock) Update(ctx context.Context, id int64, patch product.Patch) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, patch)
	}
	return nil
}
func (m *ProductRepositoryMock) UpdateImage(ctx context.Context, id int64, imageURL string) (*product.Product, error) {
	if m.UpdateImageFn != nil {
		return m.UpdateImageFn(ctx, id, imageURL)
	}
	return nil, product.ErrProductNotFound
}
func (m *ProductRepositoryMock) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}
func (m *ProductRepositoryMock) List(ctx context.Context, q product.ListQuery) ([]product.Product, int, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, q)
	}
	return []product.Product{}, 0, nil
}
func (m *ProductRepositoryMock) ListByCursor(ctx context.Context, q product.CursorQuery) (*product.CursorPage, error) {
	if m.ListByCursorFn != nil {
		return m.ListByCursorFn(ctx, q)
	}
	return &product.CursorPage{Data: []product.Product{}, Meta: product.CursorMeta{Limit: q.Limit}}, nil
}

// ProductServiceMock is a lightweight mock for ProductService
type ProductServiceMock struct {
	ListFn             func(ctx context.Context, q product.ListQuery) (*product.OffsetPage, error)
	LoadMoreFn         func(ctx context.Context, q product.CursorQuery) (*product.CursorPage, error)
	GetByIDFn          func(ctx context.Context, id int64) (*product.Product, error)
	CreateFn           func(ctx context.Context, req *product.CreateProductRequest) (*product.Product, error)
	UpdateFn           func(ctx context.Context, id int64, patch product.Patch) (*product.Product, error)
	DeleteFn           func(ctx context.Context, id int64) error
	UpdateImageFn      func(ctx context.Context, id int64, imageURL string) (*product.Product, error)
	UploadImageAsyncFn func(ctx context.Context, id int64, upload ports.ImageUpload) (*ports.ImageUploadReceipt, error)
}

func (m *ProductServiceMock) List(ctx context.Context, q product.ListQuery) (*product.OffsetPage, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, q)
	}
	return &product.OffsetPage{Data: []product.Product{}}, nil
}
func (m *ProductServiceMock) LoadMore(ctx context.Context, q product.CursorQuery) (*product.CursorPage, error) {
	if m.LoadMoreFn != nil {
		return m.LoadMoreFn(ctx, q)
	}
	return &product.CursorPage{Data: []product.Product{}}, nil
}
func (m *ProductServiceMock) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, product.ErrProductNotFound
}
func (m *ProductServiceMock) Create(ctx context.Context, req *product.CreateProductRequest) (*product.Product, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, req)
	}
	return req.ToProduct(), nil
}
func (m *ProductServiceMock) Update(ctx context.Context, id int64, patch product.Patch) (*product.Product, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, patch)
	}
	return nil, product.ErrProductNotFound
}
func (m *ProductServiceMock) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}
func (m *ProductServiceMock) UpdateImage(ctx context.Context, id int64, imageURL string) (*product.Product, error) {
	if m.UpdateImageFn != nil {
		return m.UpdateImageFn(ctx, id, imageURL)
	}
	return &product.Product{ID: id, ImageURL: imageURL}, nil
}
func (m *ProductServiceMock) UploadImageAsync(ctx context.Context, id int64, upload ports.ImageUpload) (*ports.ImageUploadReceipt, error) {
	if m.UploadImageAsyncFn != nil {
		return m.UploadImageAsyncFn(ctx, id, upload)
	}
	return &ports.ImageUploadReceipt{Message: "queued", JobID: "job", ProductID: id}, nil
}

// JobQueueMock records enqueued jobs unless EnqueueFn overrides it.
type JobQueueMock struct {
	EnqueueFn func(ctx context.Context, queue string, j *job.Job) error
	ConsumeFn func(ctx context.Context, queue string, handler ports.JobHandler) error
	Enqueued  []*job.Job
}

func (m *JobQueueMock) Enqueue(ctx context.Context, queue string, j *job.Job) error {
	if m.EnqueueFn != nil {
		return m.EnqueueFn(ctx, queue, j)
	}
	m.Enqueued = append(m.Enqueued, j)
	return nil
}
func (m *JobQueueMock) Consume(ctx context.Context, queue string, handler ports.JobHandler) error {
	if m.ConsumeFn != nil {
		return m.ConsumeFn(ctx, queue, handler)
	}
	<-ctx.Done()
	return nil
}

// ImageStoreMock is a lightweight mock for ImageStore
type ImageStoreMock struct {
	SaveFn   func(ctx context.Context, name string, data []byte) (string, error)
	DeleteFn func(ctx context.Context, url string) error
}

func (m *ImageStoreMock) Save(ctx context.Context, name string, data []byte) (string, error) {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, name, data)
	}
	return "http://localhost/uploads/" + name, nil
}
func (m *ImageStoreMock) Delete(ctx context.Context, url string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, url)
	}
	return nil
}

// RateLimiterServiceMock allows every request unless AllowFn overrides it.
type RateLimiterServiceMock struct {
	AllowFn func(ctx context.Context, clientKey string) (bool, int, int, time.Time, error)
}

func (m *RateLimiterServiceMock) Allow(ctx context.Context, clientKey string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, clientKey)
	}
	return true, 100, 1000, time.Now().Add(time.Minute), nil
}

// RateLimitRepositoryMock is a lightweight mock for RateLimitRepository
type RateLimitRepositoryMock struct {
	IncrementWindowFn func(ctx context.Context, clientKey string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error)
}

func (m *RateLimitRepositoryMock) IncrementWindow(ctx context.Context, clientKey string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, clientKey, window, keyPrefix, ttl)
	}
	return 1, time.Now().Truncate(window), nil
}

// HealthCheckerMock reports CheckFn's result under Label.
type HealthCheckerMock struct {
	Label   string
	CheckFn func(ctx context.Context) error
}

func (m *HealthCheckerMock) Name() string { return m.Label }
func (m *HealthCheckerMock) Check(ctx context.Context) error {
	if m.CheckFn != nil {
		return m.CheckFn(ctx)
	}
	return nil
}

var (
	_ ports.ProductRepository   = (*ProductRepositoryMock)(nil)
	_ ports.ProductService      = (*ProductServiceMock)(nil)
	_ ports.JobQueue            = (*JobQueueMock)(nil)
	_ ports.ImageStore          = (*ImageStoreMock)(nil)
	_ ports.RateLimiterService  = (*RateLimiterServiceMock)(nil)
	_ ports.RateLimitRepository = (*RateLimitRepositoryMock)(nil)
	_ ports.HealthChecker       = (*HealthCheckerMock)(nil)
)
