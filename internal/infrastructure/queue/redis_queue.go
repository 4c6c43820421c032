package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	config "github.com/kayendev-lutech/ecommerce/configs"
	"github.com/kayendev-lutech/ecommerce/internal/core/domain/job"
	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
)

// RedisQueue is an at-least-once job queue on Redis lists. A job stays in a
// processing list while its handler runs; failed jobs wait in a sorted set
// until their backoff elapses and are moved to "<queue>-dlq" once exhausted.
type RedisQueue struct {
	r           redis.Cmdable
	backoff     time.Duration
	pollTimeout time.Duration
	logger      *logrus.Logger
	now         func() time.Time
}

func NewRedisQueue(r redis.Cmdable, cfg *config.QueueConfig, logger *logrus.Logger) *RedisQueue {
	q := &RedisQueue{r: r, backoff: 5 * time.Second, pollTimeout: 2 * time.Second, logger: logger, now: time.Now}
	if cfg != nil {
		if cfg.RetryBackoff > 0 {
			q.backoff = cfg.RetryBackoff
		}
		if cfg.PollTimeout > 0 {
			q.pollTimeout = cfg.PollTimeout
		}
	}
	return q
}

func readyKey(queue string) string      { return "queue:" + queue }
func processingKey(queue string) string { return "queue:" + queue + ":processing" }
func delayedKey(queue string) string    { return "queue:" + queue + ":delayed" }

// DeadLetterQueue names the queue exhausted jobs of queue are moved to.
func DeadLetterQueue(queue string) string { return queue + "-dlq" }

func (q *RedisQueue) Enqueue(ctx context.Context, queue string, j *job.Job) error {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = q.now().UTC()
	}
	if j.MaxRetries <= 0 {
		j.MaxRetries = job.DefaultMaxRetries
	}
	if err := q.push(ctx, queue, j); err != nil {
		return err
	}
	q.logger.WithFields(logrus.Fields{"queue": queue, "job_id": j.ID, "type": j.Type}).Info("job queued")
	return nil
}

func (q *RedisQueue) push(ctx context.Context, queue string, j *job.Job) error {
	b, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := q.r.LPush(ctx, readyKey(queue), b).Err(); err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

// Consume processes jobs one at a time until ctx is cancelled. Jobs left in
// the processing list by a crashed consumer are requeued first.
func (q *RedisQueue) Consume(ctx context.Context, queue string, handler ports.JobHandler) error {
	if err := q.Recover(ctx, queue); err != nil {
		return err
	}
	q.logger.WithField("queue", queue).Info("queue consumer started")
	for {
		if ctx.Err() != nil {
			q.logger.WithField("queue", queue).Info("queue consumer stopped")
			return nil
		}
		if _, err := q.ProcessOne(ctx, queue, handler); err != nil {
			if ctx.Err() != nil {
				continue
			}
			q.logger.WithField("queue", queue).WithError(err).Error("queue poll failed")
			select {
			case <-ctx.Done():
			case <-time.After(q.pollTimeout):
			}
		}
	}
}

// Recover moves every job from the processing list back to the ready list.
func (q *RedisQueue) Recover(ctx context.Context, queue string) error {
	for {
		_, err := q.r.RPopLPush(ctx, processingKey(queue), readyKey(queue)).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to recover in-flight jobs: %w", err)
		}
	}
}

// ProcessOne promotes due retries, then waits up to the poll timeout for one
// job and runs handler on it. It reports whether a job was handled.
func (q *RedisQueue) ProcessOne(ctx context.Context, queue string, handler ports.JobHandler) (bool, error) {
	if err := q.promoteDue(ctx, queue); err != nil {
		return false, err
	}

	raw, err := q.r.BRPopLPush(ctx, readyKey(queue), processingKey(queue), q.pollTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to pop job: %w", err)
	}
	// Writes after the pop must outlive a shutdown, and the job leaves the
	// processing list only once it is recorded somewhere else.
	bg := context.WithoutCancel(ctx)

	var j job.Job
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		q.logger.WithField("queue", queue).WithError(err).Error("undecodable job moved to dead letter queue")
		if err := q.r.LPush(bg, readyKey(DeadLetterQueue(queue)), raw).Err(); err != nil {
			return true, fmt.Errorf("failed to dead-letter job: %w", err)
		}
		return true, q.ack(bg, queue, raw)
	}

	log := q.logger.WithFields(logrus.Fields{"queue": queue, "job_id": j.ID, "type": j.Type})
	log.Info("processing job")

	if herr := runHandler(ctx, handler, &j); herr != nil {
		if err := q.fail(bg, queue, &j, herr, log); err != nil {
			log.WithError(err).Error("job left in processing list for recovery")
			return true, err
		}
		return true, q.ack(bg, queue, raw)
	}
	log.Info("job completed")
	return true, q.ack(bg, queue, raw)
}

// ack drops raw from the processing list.
func (q *RedisQueue) ack(ctx context.Context, queue, raw string) error {
	if err := q.r.LRem(ctx, processingKey(queue), 1, raw).Err(); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

func runHandler(ctx context.Context, handler ports.JobHandler, j *job.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return handler(ctx, j)
}

func (q *RedisQueue) fail(ctx context.Context, queue string, j *job.Job, cause error, log *logrus.Entry) error {
	j.Retries++
	j.LastError = cause.Error()

	if j.Exhausted() {
		log.WithError(cause).WithField("retries", j.Retries).Error("job failed permanently, moved to dead letter queue")
		return q.push(ctx, DeadLetterQueue(queue), j)
	}

	delay := q.backoff * time.Duration(j.Retries)
	b, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	due := q.now().Add(delay).UnixMilli()
	if err := q.r.ZAdd(ctx, delayedKey(queue), &redis.Z{Score: float64(due), Member: b}).Err(); err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}
	log.WithError(cause).WithFields(logrus.Fields{"retries": j.Retries, "delay": delay}).Warn("job failed, retry scheduled")
	return nil
}

// promoteDue moves retries whose backoff has elapsed back to the ready list.
// ZREM decides ownership when several consumers race for the same entry.
func (q *RedisQueue) promoteDue(ctx context.Context, queue string) error {
	max := strconv.FormatInt(q.now().UnixMilli(), 10)
	due, err := q.r.ZRangeByScore(ctx, delayedKey(queue), &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return fmt.Errorf("failed to read delayed jobs: %w", err)
	}
	for _, member := range due {
		removed, err := q.r.ZRem(ctx, delayedKey(queue), member).Result()
		if err != nil {
			return fmt.Errorf("failed to claim delayed job: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := q.r.LPush(ctx, readyKey(queue), member).Err(); err != nil {
			return fmt.Errorf("failed to requeue delayed job: %w", err)
		}
	}
	return nil
}

var _ ports.JobQueue = (*RedisQueue)(nil)
