package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/journalpay/internal/clock"
	"github.com/smallbiznis/journalpay/internal/config"
	"github.com/smallbiznis/journalpay/internal/outbox/domain"
	"go.uber.org/fx"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config config.Config
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
}

type Service struct {
	topic string
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Writer {
	return &Service{
		topic: p.Config.Kafka.Topic,
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Enqueue wraps msg in an envelope and stores it as pending.
func (s *Service) Enqueue(ctx context.Context, db *gorm.DB, msg domain.Message) error {
	msg.EventType = strings.TrimSpace(msg.EventType)
	msg.AggregateID = strings.TrimSpace(msg.AggregateID)
	if msg.EventType == "" || msg.AggregateID == "" {
		return domain.ErrInvalidMessage
	}

	now := s.clock.Now()
	eventID := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	payload, err := json.Marshal(domain.Envelope{
		EventID:    eventID,
		EventType:  msg.EventType,
		OccurredAt: now,
		Data:       msg.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	return s.repo.Insert(ctx, db, &domain.Event{
		ID:          s.genID.Generate(),
		EventID:     eventID,
		EventType:   msg.EventType,
		AggregateID: msg.AggregateID,
		Topic:       s.topic,
		Payload:     datatypes.JSON(payload),
		Status:      domain.StatusPending,
		CreatedAt:   now,
	})
}
