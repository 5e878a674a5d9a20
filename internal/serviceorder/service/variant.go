package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/journalpay/internal/clock"
	"github.com/smallbiznis/journalpay/internal/payable"
	"github.com/smallbiznis/journalpay/internal/serviceorder/domain"
	"gorm.io/gorm"
)

type Variant struct {
	repo  domain.Repository
	clock clock.Clock
}

func NewVariant(repo domain.Repository, clk clock.Clock) *Variant {
	return &Variant{repo: repo, clock: clk}
}

func (v *Variant) Type() payable.Type { return payable.TypeServiceOrder }

func (v *Variant) Exists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	order, err := v.repo.FindByID(ctx, db, id)
	if err != nil {
		return false, err
	}
	return order != nil, nil
}

// MarkPaid releases the order to the team that fulfils it.
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
