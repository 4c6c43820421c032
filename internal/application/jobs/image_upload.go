package jobs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kayendev-lutech/ecommerce/internal/core/domain/job"
	"github.com/kayendev-lutech/ecommerce/internal/core/domain/product"
	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
)

// ImageUploadProcessor stores queued product images and points the product at them.
type ImageUploadProcessor struct {
	products ports.ProductService
	store    ports.ImageStore
	logger   *logrus.Logger
}

func NewImageUploadProcessor(products ports.ProductService, store ports.ImageStore, logger *logrus.Logger) *ImageUploadProcessor {
	return &ImageUploadProcessor{products: products, store: store, logger: logger}
}

// Handle is a ports.JobHandler. Returned errors are retried by the queue;
// jobs that can never succeed are logged and dropped.
func (p *ImageUploadProcessor) Handle(ctx context.Context, j *job.Job) error {
	log := p.logger.WithFields(logrus.Fields{"job_id": j.ID, "type": j.Type})
	if j.Type != job.TypeUploadProductImage {
		return fmt.Errorf("unsupported job type %q", j.Type)
	}

	var payload job.UploadImagePayload
	if err := json.Unmarshal(j.Payload, &payload); err != nil {
		log.WithError(err).Error("dropping job with malformed payload")
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(payload.ImageBase64)
	if err != nil {
		log.WithError(err).Error("dropping job with malformed image data")
		return nil
	}
	log = log.WithField("product_id", payload.ProductID)

	url, err := p.store.Save(ctx, payload.OriginalName, data)
	if err != nil {
		return fmt.Errorf("failed to store image: %w", err)
	}

	if _, err := p.products.UpdateImage(ctx, payload.ProductID, url); err != nil {
		if derr := p.store.Delete(ctx, url); derr != nil {
			log.WithError(derr).Warn("failed to remove orphaned image")
		}
		if errors.Is(err, product.ErrProductNotFound) {
			log.Warn("product gone before its image was stored, dropping job")
			return nil
		}
		return fmt.Errorf("failed to update product image: %w", err)
	}

	if payload.OldImageURL != "" && payload.OldImageURL != url {
		if err := p.store.Delete(ctx, payload.OldImageURL); err != nil {
			log.WithError(err).WithField("old_image_url", payload.OldImageURL).Warn("failed to delete previous image")
		}
	}
	log.WithField("image_url", url).Info("product image uploaded")
	return nil
}
