package queue

import "time"

func SetClock(q *RedisQueue, now func() time.Time) { q.now = now }
