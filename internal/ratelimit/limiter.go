package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	obsmetrics "github.com/smallbiznis/journalpay/internal/observability/metrics"
	"go.uber.org/zap"
)

var ErrRateLimited = errors.New("rate_limited")

// LimitedError matches ErrRateLimited and carries the suggested wait.
type LimitedError struct {
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string { return ErrRateLimited.Error() }

func (e *LimitedError) Is(target error) bool { return target == ErrRateLimited }

// SubmissionLimiter throttles paid submissions per user.
type SubmissionLimiter struct {
	bucket  *TokenBucket
	rate    float64
	burst   int
	log     *zap.Logger
	metrics *obsmetrics.Metrics
}

func NewSubmissionLimiter(bucket *TokenBucket, rate float64, burst int, log *zap.Logger, m *obsmetrics.Metrics) *SubmissionLimiter {
	if bucket == nil || rate <= 0 || burst <= 0 {
		return nil
	}
	return &SubmissionLimiter{
		bucket:  bucket,
		rate:    rate,
		burst:   burst,
		log:     log.Named("submission.limiter"),
		metrics: m,
	}
}

// Allow fails open when Redis is unreachable.
func (l *SubmissionLimiter) Allow(ctx context.Context, userID snowflake.ID, route string) (time.Duration, error) {
	if l == nil {
		return 0, nil
	}
	res, err := l.bucket.Allow(ctx, "journalpay:submit:"+userID.String(), l.rate, l.burst)
	if err != nil {
		l.log.Warn("submission limiter unavailable", zap.String("route", route), zap.Error(err))
		return 0, nil
	}
	if !res.Allowed {
		l.metrics.RecordRateLimited(ctx, route)
		return res.RetryAfter, &LimitedError{RetryAfter: res.RetryAfter}
	}
	return 0, nil
}
