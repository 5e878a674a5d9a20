package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/journalpay/internal/catalog/domain"
	"gorm.io/gorm"
)

type Service struct {
	repo domain.Repository
}

func NewService(repo domain.Repository) domain.Catalog {
	return &Service{repo: repo}
}

func (s *Service) Journal(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Journal, error) {
	j, err := s.repo.FindJournal(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, domain.ErrJournalNotFound
	}
	return j, nil
}

// ActiveService returns ErrServiceInactive for a service that exists but is switched off.
func (s *Service) ActiveService(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Service, error) {
	svc, err := s.repo.FindService(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, domain.ErrServiceNotFound
	}
	if !svc.IsActive {
		return nil, domain.ErrServiceInactive
	}
	return svc, nil
}

func (s *Service) ServiceBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Service, error) {
	svc, err := s.repo.FindServiceBySlug(ctx, db, strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, domain.ErrServiceNotFound
	}
	return svc, nil
}
