package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/journalpay/internal/clock"
	"github.com/smallbiznis/journalpay/internal/config"
	"github.com/smallbiznis/journalpay/internal/outbox/domain"
	"github.com/smallbiznis/journalpay/internal/outbox/repository"
	"github.com/smallbiznis/journalpay/internal/outbox/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event domain.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

func setupOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:outbox_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE outbox_events (
		id INTEGER PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at DATETIME NOT NULL,
		sent_at DATETIME
	)`).Error)
	return db
}

func enqueue(t *testing.T, db *gorm.DB, fake clock.Clock, aggregateID string) {
	t.Helper()
	node, err := snowflake.NewNode(10)
	require.NoError(t, err)
	cfg := config.Config{Kafka: config.KafkaConfig{Topic: "journalpay.payments"}}
	w := service.NewService(service.Params{Config: cfg, GenID: node, Clock: fake, Repo: repository.Provide()})
	require.NoError(t, w.Enqueue(context.Background(), db, domain.Message{
		EventType:   domain.EventPaymentCompleted,
		AggregateID: aggregateID,
		Data:        map[string]any{"merchant_trans_id": aggregateID},
	}))
}

func assertCount(t *testing.T, db *gorm.DB, query string, expected int64, args ...any) {
	t.Helper()
	var count int64
	require.NoError(t, db.Raw(query, args...).Scan(&count).Error)
	assert.Equal(t, expected, count)
}

func TestProcessBatchMarksSent(t *testing.T) {
	db := setupOutboxDB(t)
	fake := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	enqueue(t, db, fake, "article_1_1717243200")

	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.Topic == "journalpay.payments" && e.AggregateID == "article_1_1717243200" && len(e.EventID) == 26
	})).Return(nil).Once()

	d := New(db, zap.NewNop(), repository.Provide(), pub, fake, nil, Options{MaxRetries: 2})
	require.NoError(t, d.ProcessBatch(context.Background()))

	pub.AssertExpectations(t)
	assertCount(t, db, `SELECT COUNT(*) FROM outbox_events WHERE status = 'sent' AND sent_at IS NOT NULL AND attempts = 1`, 1)
}

func TestProcessBatchRetriesThenKeepsPending(t *testing.T) {
	db := setupOutboxDB(t)
	fake := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	enqueue(t, db, fake, "service_order_9_1717243200")

	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Times(2)

	d := New(db, zap.NewNop(), repository.Provide(), pub, fake, nil, Options{MaxRetries: 2, Backoff: time.Millisecond})
	require.NoError(t, d.ProcessBatch(context.Background()))

	pub.AssertExpectations(t)
	assertCount(t, db, `SELECT COUNT(*) FROM outbox_events WHERE status = 'pending' AND attempts = 1 AND last_error = 'broker down'`, 1)
}

func TestProcessBatchParksAfterMaxCycles(t *testing.T) {
	db := setupOutboxDB(t)
	fake := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	enqueue(t, db, fake, "article_2_1717243200")
	require.NoError(t, db.Exec(`UPDATE outbox_events SET attempts = ?`, maxDispatchCycles-1).Error)

	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	d := New(db, zap.NewNop(), repository.Provide(), pub, fake, nil, Options{MaxRetries: 1})
	require.NoError(t, d.ProcessBatch(context.Background()))

	assertCount(t, db, `SELECT COUNT(*) FROM outbox_events WHERE status = 'failed'`, 1)

	// parked rows are not picked up again
	require.NoError(t, d.ProcessBatch(context.Background()))
	pub.AssertNumberOfCalls(t, "Publish", 1)
}
