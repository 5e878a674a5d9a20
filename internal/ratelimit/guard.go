package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const callbackLockPrefix = "journalpay:click:callback:"

// CallbackGuard serializes duplicate gateway callbacks for one merchant
// transaction across instances. It never rejects: once the wait budget is
// spent the caller proceeds and the database decides.
type CallbackGuard struct {
	locker *Locker
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
	log    *zap.Logger
}

func NewCallbackGuard(locker *Locker, ttl, wait time.Duration, log *zap.Logger) *CallbackGuard {
	if locker == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &CallbackGuard{
		locker: locker,
		ttl:    ttl,
		wait:   wait,
		poll:   25 * time.Millisecond,
		log:    log.Named("click.guard"),
	}
}

// Acquire blocks for at most the wait budget and returns the release func.
func (g *CallbackGuard) Acquire(ctx context.Context, merchantTransID string) func() {
	noop := func() {}
	if g == nil || merchantTransID == "" {
		return noop
	}

	key := callbackLockPrefix + merchantTransID
	deadline := time.Now().Add(g.wait)
	for {
		token, ok, err := g.locker.TryLock(ctx, key, g.ttl)
		if err != nil {
			g.log.Warn("callback lock unavailable", zap.String("merchant_trans_id", merchantTransID), zap.Error(err))
			return noop
		}
		if ok {
			return func() {
				// Release on a fresh context so a cancelled request still frees the key.
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := g.locker.Release(releaseCtx, key, token); err != nil {
					g.log.Warn("callback lock release failed", zap.String("merchant_trans_id", merchantTransID), zap.Error(err))
				}
			}
		}
		if !time.Now().Before(deadline) {
			g.log.Info("callback lock contended, proceeding", zap.String("merchant_trans_id", merchantTransID))
			return noop
		}

		timer := time.NewTimer(g.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return noop
		case <-timer.C:
		}
	}
}
