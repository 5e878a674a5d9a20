package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/journalpay/internal/payable"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tx *Transaction) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Transaction, error)
	FindByMerchantTransID(ctx context.Context, db *gorm.DB, merchantTransID string, forUpdate bool) (*Transaction, error)
	FindByIDAndMerchantTransID(ctx context.Context, db *gorm.DB, id snowflake.ID, merchantTransID string, forUpdate bool) (*Transaction, error)
	FindByExternalTransID(ctx context.Context, db *gorm.DB, externalTransID string) (*Transaction, error)
	TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, updates TransitionUpdates, now time.Time) (bool, error)
	ListByPayable(ctx context.Context, db *gorm.DB, ref payable.Ref) ([]Transaction, error)
}

// OpenRequest creates a waiting transaction for a freshly created payable.
type OpenRequest struct {
	Kind    string
	Payable payable.Ref
	Amount  decimal.Decimal
	UserID  *snowflake.ID
}

// PaymentStatus is the read model behind the payment return page.
type PaymentStatus struct {
	MerchantTransID string          `json:"merchant_trans_id"`
	Status          Status          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	PayableType     payable.Type    `json:"payable_type"`
	PayableID       snowflake.ID    `json:"payable_id"`
	Final           bool            `json:"final"`
	UpdatedAt       string          `json:"updated_at"`
}

type Service interface {
	Prepare(ctx context.Context, req PrepareRequest) PrepareResponse
	Complete(ctx context.Context, req CompleteRequest) CompleteResponse
	Open(ctx context.Context, db *gorm.DB, req OpenRequest) (*Transaction, error)
	PaymentURL(tx *Transaction) string
	Status(ctx context.Context, merchantTransID string) (*PaymentStatus, error)
	History(ctx context.Context, ref payable.Ref) ([]PaymentStatus, error)
}

var (
	ErrSignatureInvalid    = errors.New("signature_invalid")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidKind         = errors.New("invalid_kind")
	ErrPayableNotFound     = errors.New("payable_not_found")
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrInvalidTransition   = errors.New("invalid_transaction_transition")
)
