package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/journalpay/internal/click/domain"
	"github.com/smallbiznis/journalpay/internal/payable"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error {
	if tx.ExtraData == nil {
		tx.ExtraData = datatypes.JSONMap{}
	}
	return db.WithContext(ctx).Create(tx).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Transaction, error) {
	return r.findOne(ctx, db, false, "id = ?", id)
}

func (r *repo) FindByMerchantTransID(ctx context.Context, db *gorm.DB, merchantTransID string, forUpdate bool) (*domain.Transaction, error) {
	return r.findOne(ctx, db, forUpdate, "merchant_trans_id = ?", merchantTransID)
}

func (r *repo) FindByIDAndMerchantTransID(ctx context.Context, db *gorm.DB, id snowflake.ID, merchantTransID string, forUpdate bool) (*domain.Transaction, error) {
	return r.findOne(ctx, db, forUpdate, "id = ? AND merchant_trans_id = ?", id, merchantTransID)
}

func (r *repo) FindByExternalTransID(ctx context.Context, db *gorm.DB, externalTransID string) (*domain.Transaction, error) {
	return r.findOne(ctx, db, false, "external_trans_id = ?", externalTransID)
}

// findOne returns nil, nil when no row matches. Row locks are dropped by
// dialects without SELECT ... FOR UPDATE.
func (r *repo) findOne(ctx context.Context, db *gorm.DB, forUpdate bool, query string, args ...any) (*domain.Transaction, error) {
	var item domain.Transaction
	stmt := db.WithContext(ctx).Model(&domain.Transaction{})
	if forUpdate {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := stmt.Where(query, args...).Limit(1).Find(&item).Error; err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// TransitionStatus moves a row from one status to another only if it is
// still in the expected status. It reports false when another writer won.
func (r *repo) TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, updates domain.TransitionUpdates, now time.Time) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, domain.ErrInvalidTransition
	}
	values := map[string]any{
		"status":     to,
		"updated_at": now,
	}
	if updates.ExternalTransID != nil {
		values["external_trans_id"] = *updates.ExternalTransID
	}
	if updates.ExtraData != nil {
		values["extra_data"] = datatypes.JSONMap(updates.ExtraData)
	}

	res := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListByPayable(ctx context.Context, db *gorm.DB, ref payable.Ref) ([]domain.Transaction, error) {
	var items []domain.Transaction
	err := db.WithContext(ctx).
		Where("payable_type = ? AND payable_id = ?", ref.Type, ref.ID).
		Order("created_at desc, id desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
