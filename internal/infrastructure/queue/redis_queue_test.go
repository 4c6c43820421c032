package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	config "github.com/kayendev-lutech/ecommerce/configs"
	"github.com/kayendev-lutech/ecommerce/internal/core/domain/job"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/queue"
)

const q = "image-upload"

type fixture struct {
	mr    *miniredis.Miniredis
	queue *queue.RedisQueue
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{mr: mr, now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.queue = queue.NewRedisQueue(client, &config.QueueConfig{RetryBackoff: 5 * time.Second, PollTimeout: time.Second}, logrus.New())
	queue.SetClock(f.queue, func() time.Time { return f.now })
	return f
}

func newJob(t *testing.T, maxRetries int) *job.Job {
	t.Helper()
	j, err := job.New(job.TypeUploadProductImage, job.UploadImagePayload{ProductID: 1})
	require.NoError(t, err)
	j.MaxRetries = maxRetries
	return j
}

func listLen(t *testing.T, mr *miniredis.Miniredis, key string) int {
	t.Helper()
	if !mr.Exists(key) {
		return 0
	}
	items, err := mr.List(key)
	require.NoError(t, err)
	return len(items)
}

func zLen(t *testing.T, mr *miniredis.Miniredis, key string) int {
	t.Helper()
	if !mr.Exists(key) {
		return 0
	}
	members, err := mr.ZMembers(key)
	require.NoError(t, err)
	return len(members)
}

func TestRedisQueue_EnqueueAndProcess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	j := newJob(t, 3)
	require.NoError(t, f.queue.Enqueue(ctx, q, j))

	var got *job.Job
	handled, err := f.queue.ProcessOne(ctx, q, func(_ context.Context, in *job.Job) error {
		got = in
		return nil
	})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, j.ID, got.ID)
	require.Equal(t, 0, listLen(t, f.mr, "queue:"+q))
	require.Equal(t, 0, listLen(t, f.mr, "queue:"+q+":processing"))
}

func TestRedisQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first, second := newJob(t, 3), newJob(t, 3)
	require.NoError(t, f.queue.Enqueue(ctx, q, first))
	require.NoError(t, f.queue.Enqueue(ctx, q, second))

	var order []string
	record := func(_ context.Context, in *job.Job) error {
		order = append(order, in.ID)
		return nil
	}
	for i := 0; i < 2; i++ {
		_, err := f.queue.ProcessOne(ctx, q, record)
		require.NoError(t, err)
	}
	require.Equal(t, []string{first.ID, second.ID}, order)
}

func TestRedisQueue_RetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.queue.Enqueue(ctx, q, newJob(t, 3)))

	calls := 0
	handler := func(_ context.Context, in *job.Job) error {
		calls++
		if calls == 1 {
			return errors.New("upload failed")
		}
		require.Equal(t, 1, in.Retries)
		require.Equal(t, "upload failed", in.LastError)
		return nil
	}

	handled, err := f.queue.ProcessOne(ctx, q, handler)
	require.NoError(t, err)
	require.True(t, handled)

	members, err := f.mr.ZMembers("queue:" + q + ":delayed")
	require.NoError(t, err)
	require.Len(t, members, 1)
	score, err := f.mr.ZScore("queue:"+q+":delayed", members[0])
	require.NoError(t, err)
	require.Equal(t, float64(f.now.Add(5*time.Second).UnixMilli()), score)

	f.now = f.now.Add(5 * time.Second)
	handled, err = f.queue.ProcessOne(ctx, q, handler)
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, 2, calls)
	require.Zero(t, zLen(t, f.mr, "queue:"+q+":delayed"))
}

func TestRedisQueue_ExhaustedJobGoesToDLQ(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	j := newJob(t, 2)
	require.NoError(t, f.queue.Enqueue(ctx, q, j))
	failing := func(context.Context, *job.Job) error { return errors.New("boom") }

	_, err := f.queue.ProcessOne(ctx, q, failing)
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	_, err = f.queue.ProcessOne(ctx, q, failing)
	require.NoError(t, err)

	dlq, err := f.mr.List("queue:" + queue.DeadLetterQueue(q))
	require.NoError(t, err)
	require.Len(t, dlq, 1)
	var dead job.Job
	require.NoError(t, json.Unmarshal([]byte(dlq[0]), &dead))
	require.Equal(t, j.ID, dead.ID)
	require.Equal(t, 2, dead.Retries)
	require.Zero(t, zLen(t, f.mr, "queue:"+q+":delayed"))
}

func TestRedisQueue_HandlerPanicIsRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.queue.Enqueue(ctx, q, newJob(t, 3)))

	_, err := f.queue.ProcessOne(ctx, q, func(context.Context, *job.Job) error { panic("nil map") })
	require.NoError(t, err)
	require.Equal(t, 1, zLen(t, f.mr, "queue:"+q+":delayed"))
}

func TestRedisQueue_RecoverRequeuesInFlight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.mr.Lpush("queue:"+q+":processing", `{"id":"stuck","type":"UPLOAD_PRODUCT_IMAGE"}`)
	require.NoError(t, err)

	require.NoError(t, f.queue.Recover(ctx, q))
	require.Equal(t, 1, listLen(t, f.mr, "queue:"+q))
	require.Equal(t, 0, listLen(t, f.mr, "queue:"+q+":processing"))
}

func TestRedisQueue_FailureDuringShutdownIsRetried(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.queue.Enqueue(ctx, q, newJob(t, 3)))

	handled, err := f.queue.ProcessOne(ctx, q, func(ctx context.Context, _ *job.Job) error {
		cancel()
		return ctx.Err()
	})
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, 1, zLen(t, f.mr, "queue:"+q+":delayed"))
	require.Equal(t, 0, listLen(t, f.mr, "queue:"+q+":processing"))
}

func TestRedisQueue_UnrecordedFailureStaysInProcessing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.queue.Enqueue(ctx, q, newJob(t, 3)))

	handled, err := f.queue.ProcessOne(ctx, q, func(context.Context, *job.Job) error {
		f.mr.SetError("LOADING server is loading")
		return errors.New("upload failed")
	})
	require.True(t, handled)
	require.Error(t, err)

	f.mr.SetError("")
	require.Equal(t, 1, listLen(t, f.mr, "queue:"+q+":processing"))
	require.Equal(t, 0, zLen(t, f.mr, "queue:"+q+":delayed"))

	require.NoError(t, f.queue.Recover(ctx, q))
	require.Equal(t, 1, listLen(t, f.mr, "queue:"+q))
}

func TestRedisQueue_ConsumeStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.queue.Enqueue(ctx, q, newJob(t, 3)))

	done := make(chan error, 1)
	go func() {
		done <- f.queue.Consume(ctx, q, func(context.Context, *job.Job) error {
			cancel()
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
