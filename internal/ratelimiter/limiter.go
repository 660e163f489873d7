package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RobotLimiters holds one token bucket per chat robot URL.
// DingTalk throttles each robot to a fixed number of messages per minute,
// so buckets are keyed by target URL and created lazily on first use.
type RobotLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// New creates a RobotLimiters allowing perMinute messages per robot per minute.
func New(perMinute int) *RobotLimiters {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RobotLimiters{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the robot's limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (rl *RobotLimiters) Wait(ctx context.Context, robot string) error {
	return rl.get(robot).Wait(ctx)
}

// Allow reports whether a message to robot may be sent right now.
func (rl *RobotLimiters) Allow(robot string) bool {
	return rl.get(robot).Allow()
}

func (rl *RobotLimiters) get(robot string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[robot]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[robot] = l
	}
	return l
}
