package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/journalpay/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindJournal(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Journal, error) {
	var item domain.Journal
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, manager_id, partner_price, regular_price, created_at
		 FROM journals
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindService(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Service, error) {
	return r.findService(ctx, db, "id = ?", id)
}

func (r *repo) FindServiceBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Service, error) {
	return r.findService(ctx, db, "slug = ?", slug)
}

func (r *repo) findService(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Service, error) {
	var item domain.Service
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, price, is_active, created_at
		 FROM services
		 WHERE `+where+`
		 LIMIT 1`,
		arg,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertService(ctx context.Context, db *gorm.DB, svc *domain.Service) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO services (id, name, slug, price, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		svc.ID,
		svc.Name,
		svc.Slug,
		svc.Price,
		svc.IsActive,
		svc.CreatedAt,
	).Error
}
