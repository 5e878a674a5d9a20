package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/journalpay/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	repo domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{db: p.DB, repo: p.Repo}
}

func (s *Service) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	u, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u, nil
}
