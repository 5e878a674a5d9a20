package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/journalpay/internal/payable"
	"gorm.io/datatypes"
)

// Status is the lifecycle state of a Click transaction.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusPrepared  Status = "prepared"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition encodes waiting -> prepared -> {completed | cancelled}.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusWaiting:
		return to == StatusPrepared
	case StatusPrepared:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

// Transaction is one payment attempt for a payable.
type Transaction struct {
	ID              snowflake.ID      `json:"id" gorm:"primaryKey"`
	ExternalTransID *string           `json:"external_trans_id,omitempty" gorm:"uniqueIndex"`
	MerchantTransID string            `json:"merchant_trans_id" gorm:"uniqueIndex;not null"`
	Amount          decimal.Decimal   `json:"amount" gorm:"type:numeric(12,2);not null"`
	Status          Status            `json:"status" gorm:"type:varchar(20);not null"`
	PayableType     payable.Type      `json:"payable_type" gorm:"not null"`
	PayableID       snowflake.ID      `json:"payable_id" gorm:"not null"`
	UserID          *snowflake.ID     `json:"user_id,omitempty"`
	ExtraData       datatypes.JSONMap `json:"extra_data" gorm:"type:jsonb"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (Transaction) TableName() string { return "click_transactions" }

func (t Transaction) Payable() payable.Ref {
	return payable.Ref{Type: t.PayableType, ID: t.PayableID}
}

// TransitionUpdates are written together with a status change.
type TransitionUpdates struct {
	ExternalTransID *string
	ExtraData       map[string]any
}
