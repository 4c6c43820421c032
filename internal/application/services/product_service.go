package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kayendev-lutech/ecommerce/internal/application/cache"
	"github.com/kayendev-lutech/ecommerce/internal/core/domain/job"
	"github.com/kayendev-lutech/ecommerce/internal/core/domain/product"
	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
)

// ProductServiceConfig names the queue image uploads are sent to.
type ProductServiceConfig struct {
	ImageUploadQueue string
	MaxRetries       int
}

type ProductService struct {
	repo   ports.ProductRepository
	cache  *cache.SplitProductCache
	queue  ports.JobQueue
	cfg    ProductServiceConfig
	logger *logrus.Logger
}

func NewProductService(repo ports.ProductRepository, pc *cache.SplitProductCache, queue ports.JobQueue, cfg ProductServiceConfig, logger *logrus.Logger) ports.ProductService {
	if cfg.ImageUploadQueue == "" {
		cfg.ImageUploadQueue = "image-upload"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = job.DefaultMaxRetries
	}
	return &ProductService{repo: repo, cache: pc, queue: queue, cfg: cfg, logger: logger}
}

// List serves offset pages through the list cache.
func (s *ProductService) List(ctx context.Context, q product.ListQuery) (*product.OffsetPage, error) {
	q = q.Normalize()
	key := cache.ListKey(cache.Fingerprint(q.Params()))

	page, err := cache.GetOrSet(ctx, s.cache.Guard(), key, s.cache.Config().ListTTL, func(ctx context.Context) (*product.OffsetPage, error) {
		s.logger.WithField("key", key).Debug("product list cache miss")
		items, total, err := s.repo.List(ctx, q)
		if err != nil {
			return nil, err
		}
		return &product.OffsetPage{Data: items, Meta: product.NewOffsetMeta(total, q)}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if page == nil {
		page = &product.OffsetPage{Meta: product.NewOffsetMeta(0, q)}
	}
	if page.Data == nil {
		page.Data = []product.Product{}
	}
	return page, nil
}

// LoadMore serves keyset pages through the list cache.
func (s *ProductService) LoadMore(ctx context.Context, q product.CursorQuery) (*product.CursorPage, error) {
	q = q.Normalize()
	key := cache.CursorListKey(cache.Fingerprint(q.Params()))

	page, err := cache.GetOrSet(ctx, s.cache.Guard(), key, s.cache.Config().ListTTL, func(ctx context.Context) (*product.CursorPage, error) {
		s.logger.WithField("key", key).Debug("cursor product list cache miss")
		return s.repo.ListByCursor(ctx, q)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	if page == nil {
		page = &product.CursorPage{Meta: product.CursorMeta{Limit: q.Limit}}
	}
	if page.Data == nil {
		page.Data = []product.Product{}
	}
	return page, nil
}

// GetByID reads the split cache first and falls back to a guarded reload
// that repopulates it.
func (s *ProductService) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	if p, ok := s.cache.Get(ctx, id); ok {
		return p, nil
	}

	p, err := cache.GetOrSet(ctx, s.cache.Guard(), cache.DetailKey(id), s.cache.Config().GetOrSetTTL, func(ctx context.Context) (*product.Product, error) {
		p, err := s.repo.FindDetailByID(ctx, id)
		if errors.Is(err, product.ErrProductNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, id, p, 0)
		return p, nil
	})
	if err != nil {
		s.logger.WithField("product_id", id).WithError(err).Error("failed to load product")
		return nil, err
	}
	if p == nil {
		return nil, product.ErrProductNotFound
	}
	return p, nil
}

func (s *ProductService) Create(ctx context.Context, req *product.CreateProductRequest) (*product.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, req.Slug, 0); err != nil {
		return nil, err
	}

	p := req.ToProduct()
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.cache.Set(ctx, p.ID, p, 0)
	s.cache.InvalidateList(ctx)
	s.logger.WithField("product_id", p.ID).Info("product created")
	return p, nil
}

// Update persists patch and refreshes only the cache entries it touched.
func (s *ProductService) Update(ctx context.Context, id int64, patch product.Patch) (*product.Product, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", product.ErrInvalidProduct)
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if patch.Slug != nil {
		if err := s.ensureSlugFree(ctx, *patch.Slug, id); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, id, patch); err != nil {
		return nil, err
	}
	current, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.SmartUpdate(ctx, id, patch.ChangedFields(), current)
	s.logger.WithFields(logrus.Fields{"product_id": id, "fields": patch.ChangedFields()}).Info("product updated")
	return current, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	s.cache.InvalidateList(ctx)
	s.logger.WithField("product_id", id).Info("product deleted and cache invalidated")
	return nil
}

func (s *ProductService) UpdateImage(ctx context.Context, id int64, imageURL string) (*product.Product, error) {
	p, err := s.repo.UpdateImage(ctx, id, imageURL)
	if err != nil {
		return nil, err
	}
	s.cache.UpdateMeta(ctx, id, product.MetaPatch{ImageURL: &p.ImageURL, UpdatedAt: &p.UpdatedAt})
	s.cache.InvalidateList(ctx)
	s.logger.WithFields(logrus.Fields{"product_id": id, "image_url": imageURL}).Info("product image updated")
	return p, nil
}

// UploadImageAsync validates the image and hands it to the image worker.
func (s *ProductService) UploadImageAsync(ctx context.Context, id int64, upload ports.ImageUpload) (*ports.ImageUploadReceipt, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("%w: image file is empty", product.ErrInvalidProduct)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported image", product.ErrInvalidProduct)
	}
	if upload.MimeType == "" {
		upload.MimeType = "image/" + format
	}

	j, err := job.New(job.TypeUploadProductImage, job.UploadImagePayload{
		ProductID:    id,
		ImageBase64:  base64.StdEncoding.EncodeToString(upload.Data),
		OriginalName: upload.OriginalName,
		MimeType:     upload.MimeType,
		Size:         len(upload.Data),
		OldImageURL:  p.ImageURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build image job: %w", err)
	}
	j.MaxRetries = s.cfg.MaxRetries

	if err := s.queue.Enqueue(ctx, s.cfg.ImageUploadQueue, j); err != nil {
		return nil, fmt.Errorf("failed to queue image upload: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"product_id": id, "job_id": j.ID}).Info("image upload job queued")

	return &ports.ImageUploadReceipt{
		Message:   "Image upload job queued successfully",
		JobID:     j.ID,
		ProductID: id,
	}, nil
}

// ensureSlugFree fails with ErrSlugTaken when slug belongs to a product other than self.
func (s *ProductService) ensureSlugFree(ctx context.Context, slug string, self int64) error {
	existing, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if errors.Is(err, product.ErrProductNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		return product.ErrSlugTaken
	}
	return nil
}
