package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/journalpay/internal/article/domain"
	"github.com/smallbiznis/journalpay/internal/clock"
	"github.com/smallbiznis/journalpay/internal/payable"
	"gorm.io/gorm"
)

// Variant lets click transactions point at articles.
type Variant struct {
	repo  domain.Repository
	clock clock.Clock
}

func NewVariant(repo domain.Repository, clk clock.Clock) *Variant {
	return &Variant{repo: repo, clock: clk}
}

func (v *Variant) Type() payable.Type { return payable.TypeArticle }

func (v *Variant) Exists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	article, err := v.repo.FindByID(ctx, db, id)
	if err != nil {
		return false, err
	}
	return article != nil, nil
}

// MarkPaid settles the submission fee and hands the article to its editor.
func (v *Variant) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	ok, err := v.repo.MarkPaid(ctx, db, id, v.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return payable.ErrNotFound
	}
	return nil
}
