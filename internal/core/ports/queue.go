package ports

import (
	"context"

	"github.com/kayendev-lutech/ecommerce/internal/core/domain/job"
)

// JobHandler processes one job. A returned error schedules a retry.
type JobHandler func(ctx context.Context, j *job.Job) error

// JobQueue is an at-least-once, durable job sink.
type JobQueue interface {
	Enqueue(ctx context.Context, queue string, j *job.Job) error
	// Consume blocks, handing jobs to handler until ctx is done.
	Consume(ctx context.Context, queue string, handler JobHandler) error
}

// ImageStore persists product images and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte) (url string, err error)
	Delete(ctx context.Context, url string) error
}
