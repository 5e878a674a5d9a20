package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending       Status = "pending"
	StatusReviewing     Status = "reviewing"
	StatusNeedsRevision Status = "needs_revision"
	StatusAccepted      Status = "accepted"
	StatusRejected      Status = "rejected"
	StatusPublished     Status = "published"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "payment_pending"
	PaymentCompleted PaymentStatus = "payment_completed"
	PaymentFailed    PaymentStatus = "payment_failed"
)

type Article struct {
	ID                      snowflake.ID    `json:"id" gorm:"primaryKey"`
	Title                   string          `json:"title"`
	AuthorID                snowflake.ID    `json:"author_id"`
	JournalID               snowflake.ID    `json:"journal_id"`
	Category                string          `json:"category"`
	Abstract                string          `json:"abstract"`
	Keywords                string          `json:"keywords"`
	Status                  Status          `json:"status"`
	SubmissionPaymentStatus PaymentStatus   `json:"submission_payment_status"`
	AssignedEditorID        *snowflake.ID   `json:"assigned_editor_id,omitempty"`
	ManagerNotes            string          `json:"manager_notes"`
	SubmissionFee           decimal.Decimal `json:"submission_fee"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

func (Article) TableName() string { return "articles" }

type SubmitRequest struct {
	AuthorID  snowflake.ID `json:"-"`
	JournalID snowflake.ID `json:"journal_id"`
	Title     string       `json:"title"`
	Category  string       `json:"category"`
	Abstract  string       `json:"abstract"`
	Keywords  string       `json:"keywords"`
}

type SubmitResult struct {
	Article         *Article `json:"article"`
	PaymentURL      string   `json:"payment_url"`
	MerchantTransID string   `json:"merchant_trans_id"`
}

// StatusUpdate is a guarded status change; the row must be in one of From.
type StatusUpdate struct {
	From  []Status
	To    Status
	Notes *string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, article *Article) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Article, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, update StatusUpdate, now time.Time) (bool, error)
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	CountByStatus(ctx context.Context, db *gorm.DB, authorID snowflake.ID) (map[Status]int64, error)
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	Get(ctx context.Context, id snowflake.ID) (*Article, error)
	RequestRevision(ctx context.Context, id snowflake.ID, notes string) (*Article, error)
	Reject(ctx context.Context, id snowflake.ID, notes string) (*Article, error)
	Accept(ctx context.Context, id snowflake.ID) (*Article, error)
	SubmitRevision(ctx context.Context, id snowflake.ID, authorID snowflake.ID) (*Article, error)
}

var (
	ErrNotFound          = errors.New("article_not_found")
	ErrInvalidTitle      = errors.New("invalid_title")
	ErrJournalRequired   = errors.New("journal_required")
	ErrInvalidAuthor     = errors.New("invalid_author")
	ErrNotAuthor         = errors.New("not_article_author")
	ErrNotAssignedEditor = errors.New("not_assigned_editor")
	ErrInvalidTransition = errors.New("invalid_status_transition")
)
