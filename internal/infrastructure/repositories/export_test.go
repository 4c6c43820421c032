package repositories

import "time"

func SetRateLimitClock(r *RateLimitRedisRepository, now func() time.Time) { r.now = now }

var (
	EncodeCursor = encodeCursor
	DecodeCursor = func(s string) (time.Time, int64, error) {
		c, err := decodeCursor(s)
		return c.createdAt, c.id, err
	}
)
