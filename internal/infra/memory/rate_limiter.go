package memory

import (
	"context"
	"sync"
	"time"
)

// RateLimiter counts game creations per key per UTC day.
type RateLimiter struct {
	max   int
	clock func() time.Time

	mu     sync.Mutex
	day    string
	counts map[string]int
}

func NewRateLimiter(maxPerDay int) *RateLimiter {
	return &RateLimiter{
		max:    maxPerDay,
		clock:  time.Now,
		counts: make(map[string]int),
	}
}

func (l *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := l.clock().UTC().Format("2006-01-02")
	if day != l.day {
		l.day = day
		l.counts = make(map[string]int)
	}
	if l.counts[key] >= l.max {
		return false, nil
	}
	l.counts[key]++
	return true, nil
}
