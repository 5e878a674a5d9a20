package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentCancelled = "payment.cancelled"
)

// Event is a row of the transactional outbox.
type Event struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	EventID     string         `json:"event_id"`
	EventType   string         `json:"event_type"`
	AggregateID string         `json:"aggregate_id"`
	Topic       string         `json:"topic"`
	Payload     datatypes.JSON `json:"payload"`
	Status      Status         `json:"status"`
	Attempts    int            `json:"attempts"`
	LastError   *string        `json:"last_error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`
}

func (Event) TableName() string { return "outbox_events" }

// Message is what a producer hands to the outbox.
type Message struct {
	EventType   string
	AggregateID string
	Data        any
}

// Envelope is the JSON published to the broker.
type Envelope struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	ListPending(ctx context.Context, db *gorm.DB, limit int) ([]Event, error)
	MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, sentAt time.Time) error
	RecordFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, lastErr string, giveUp bool) error
}

// Writer stores a message on the caller's transaction handle.
type Writer interface {
	Enqueue(ctx context.Context, db *gorm.DB, msg Message) error
}

// Publisher delivers one stored event to the broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

var (
	ErrInvalidMessage = errors.New("invalid_outbox_message")
)
