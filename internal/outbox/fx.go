package outbox

import (
	"context"
	"time"

	"github.com/smallbiznis/journalpay/internal/clock"
	"github.com/smallbiznis/journalpay/internal/config"
	obsmetrics "github.com/smallbiznis/journalpay/internal/observability/metrics"
	"github.com/smallbiznis/journalpay/internal/outbox/dispatcher"
	"github.com/smallbiznis/journalpay/internal/outbox/domain"
	"github.com/smallbiznis/journalpay/internal/outbox/repository"
	"github.com/smallbiznis/journalpay/internal/outbox/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("outbox",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Invoke(registerDispatcher),
)

type dispatcherParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func registerDispatcher(p dispatcherParams) {
	kafkaCfg := p.Config.Kafka
	if !kafkaCfg.Enabled() {
		p.Log.Info("kafka brokers not configured, outbox rows stay pending")
		return
	}

	d := dispatcher.New(p.DB, p.Log, p.Repo, dispatcher.NewKafkaPublisher(kafkaCfg.Brokers), p.Clock, p.ObsMetrics, dispatcher.Options{
		BatchSize:  kafkaCfg.BatchSize,
		Interval:   time.Duration(kafkaCfg.IntervalMillis) * time.Millisecond,
		MaxRetries: kafkaCfg.MaxRetries,
		Backoff:    time.Duration(kafkaCfg.BackoffMillis) * time.Millisecond,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			return d.Stop()
		},
	})
}
