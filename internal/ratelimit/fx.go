package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/journalpay/internal/config"
	obsmetrics "github.com/smallbiznis/journalpay/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(func(c redis.UniversalClient) *Locker { return NewLocker(c) }),
	fx.Provide(func(c redis.UniversalClient) *TokenBucket { return NewTokenBucket(c) }),
	fx.Provide(func(cfg config.Config, l *Locker, log *zap.Logger) *CallbackGuard {
		return NewCallbackGuard(l,
			time.Duration(cfg.Redis.CallbackLockTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.CallbackLockWaitMillis)*time.Millisecond,
			log,
		)
	}),
	fx.Provide(func(cfg config.Config, b *TokenBucket, log *zap.Logger, m *obsmetrics.Metrics) *SubmissionLimiter {
		return NewSubmissionLimiter(b, cfg.Redis.SubmissionRate, cfg.Redis.SubmissionBurst, log, m)
	}),
)

// NewRedisClient returns nil when no address is configured.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) redis.UniversalClient {
	if !cfg.Redis.Enabled() {
		log.Info("redis not configured, callback guard and submission limiter disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}
