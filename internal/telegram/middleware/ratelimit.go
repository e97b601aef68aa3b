package middleware

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	warningInterval   = 30 * time.Second
	inactiveThreshold = time.Hour
	rateLimitedReply  = "You are sending messages too fast. Please wait a moment."
)

// userLimit tracks rate limit state for a single user
type userLimit struct {
	tokens        float64
	lastRefill    time.Time
	lastWarningAt time.Time
}

// RateLimiter is a per-user token bucket. The bucket holds one minute
// worth of tokens.
type RateLimiter struct {
	mu         sync.Mutex
	limits     map[int64]*userLimit
	maxTokens  float64
	refillRate float64 // tokens per second
	sender     Sender
	now        func() time.Time
}

func NewRateLimiter(requestsPerMinute int, sender Sender) *RateLimiter {
	return &RateLimiter{
		limits:     make(map[int64]*userLimit),
		maxTokens:  float64(requestsPerMinute),
		refillRate: float64(requestsPerMinute) / 60.0,
		sender:     sender,
		now:        time.Now,
	}
}

func (rl *RateLimiter) Handle(ctx context.Context, update tgbotapi.Update, next Next) {
	userID, chatID := ids(update)
	if userID == 0 {
		next(ctx, update)
		return
	}

	allowed, warn := rl.allow(userID)
	if !allowed {
		ctxzap.Warn(ctx, "rate limit exceeded", zap.Int64("user_id", userID))
		if warn && chatID != 0 {
			if _, err := rl.sender.Send(tgbotapi.NewMessage(chatID, rateLimitedReply)); err != nil {
				ctxzap.Error(ctx, "failed to send rate limit warning", zap.Error(err))
			}
		}
		return
	}

	next(ctx, update)
}

// allow takes a token for userID. warn reports whether the user should be
// told about the limit; warnings are spaced by warningInterval.
func (rl *RateLimiter) allow(userID int64) (allowed, warn bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	limit, ok := rl.limits[userID]
	if !ok {
		limit = &userLimit{tokens: rl.maxTokens, lastRefill: now}
		rl.limits[userID] = limit
	}

	limit.tokens = min(rl.maxTokens, limit.tokens+now.Sub(limit.lastRefill).Seconds()*rl.refillRate)
	limit.lastRefill = now

	if limit.tokens >= 1 {
		limit.tokens--
		return true, false
	}

	if now.Sub(limit.lastWarningAt) > warningInterval {
		limit.lastWarningAt = now
		return false, true
	}
	return false, false
}

// Cleanup drops idle users every interval until ctx is done.
func (rl *RateLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for userID, limit := range rl.limits {
		if now.Sub(limit.lastRefill) > inactiveThreshold {
			delete(rl.limits, userID)
		}
	}
}
