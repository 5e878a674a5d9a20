package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/journalpay/internal/catalog/domain"
	"github.com/smallbiznis/journalpay/internal/catalog/repository"
	"gorm.io/gorm"
)

type seedService struct {
	name  string
	price int64
}

// Printed publications are priced per order; the listed price is unused.
var defaultServices = []seedService{
	{name: "UDC Classification", price: 50000},
	{name: "Printed Publications", price: 0},
}

// EnsureServices inserts the built-in paid services when their slug is missing.
func EnsureServices(ctx context.Context, db *gorm.DB, genID *snowflake.Node) error {
	if db == nil || genID == nil {
		return errors.New("seed requires database and id generator")
	}
	repo := repository.Provide()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range defaultServices {
			s := slug.Make(def.name)
			existing, err := repo.FindServiceBySlug(ctx, tx, s)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if err := repo.InsertService(ctx, tx, &domain.Service{
				ID:        genID.Generate(),
				Name:      def.name,
				Slug:      s,
				Price:     decimal.NewFromInt(def.price),
				IsActive:  true,
				CreatedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
