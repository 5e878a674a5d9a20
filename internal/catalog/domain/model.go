package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Journal struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	Name         string          `json:"name"`
	ManagerID    *snowflake.ID   `json:"manager_id,omitempty"`
	PartnerPrice decimal.Decimal `json:"partner_price"`
	RegularPrice decimal.Decimal `json:"regular_price"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (Journal) TableName() string { return "journals" }

type Service struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Price     decimal.Decimal `json:"price"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

func (Service) TableName() string { return "services" }

type Repository interface {
	FindJournal(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Journal, error)
	FindService(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Service, error)
	FindServiceBySlug(ctx context.Context, db *gorm.DB, slug string) (*Service, error)
	InsertService(ctx context.Context, db *gorm.DB, svc *Service) error
}

type Catalog interface {
	Journal(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Journal, error)
	ActiveService(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Service, error)
	ServiceBySlug(ctx context.Context, db *gorm.DB, slug string) (*Service, error)
}

var (
	ErrJournalNotFound = errors.New("journal_not_found")
	ErrServiceNotFound = errors.New("service_not_found")
	ErrServiceInactive = errors.New("service_inactive")
)
