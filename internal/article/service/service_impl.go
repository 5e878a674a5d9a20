package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/journalpay/internal/article/domain"
	auditdomain "github.com/smallbiznis/journalpay/internal/audit/domain"
	"github.com/smallbiznis/journalpay/internal/authorization"
	catalogdomain "github.com/smallbiznis/journalpay/internal/catalog/domain"
	clickdomain "github.com/smallbiznis/journalpay/internal/click/domain"
	"github.com/smallbiznis/journalpay/internal/clock"
	"github.com/smallbiznis/journalpay/internal/payable"
	"github.com/smallbiznis/journalpay/internal/pricing"
	"github.com/smallbiznis/journalpay/internal/ratelimit"
	userdomain "github.com/smallbiznis/journalpay/internal/user/domain"
	"github.com/smallbiznis/journalpay/internal/usercontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	paymentKind     = "article"
	submitRoute     = "articles.submit"
	auditTargetType = "article"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Users    userdomain.Service
	Catalog  catalogdomain.Catalog
	Pricing  *pricing.Calculator
	ClickSvc clickdomain.Service
	AuditSvc auditdomain.Service
	Limiter  *ratelimit.SubmissionLimiter `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	users    userdomain.Service
	catalog  catalogdomain.Catalog
	pricing  *pricing.Calculator
	clickSvc clickdomain.Service
	auditSvc auditdomain.Service
	limiter  *ratelimit.SubmissionLimiter
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("article.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		users:    p.Users,
		catalog:  p.Catalog,
		pricing:  p.Pricing,
		clickSvc: p.ClickSvc,
		auditSvc: p.AuditSvc,
		limiter:  p.Limiter,
	}
}

// Submit stores a pending article and opens its submission fee payment in
// the same transaction.
func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.SubmitResult, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || len(req.Title) > 500 {
		return nil, domain.ErrInvalidTitle
	}
	if req.JournalID == 0 {
		return nil, domain.ErrJournalRequired
	}
	if req.AuthorID == 0 {
		return nil, domain.ErrInvalidAuthor
	}

	if _, err := s.limiter.Allow(ctx, req.AuthorID, submitRoute); err != nil {
		return nil, err
	}

	author, err := s.users.FindByID(ctx, req.AuthorID)
	if err != nil {
		if errors.Is(err, userdomain.ErrNotFound) {
			return nil, domain.ErrInvalidAuthor
		}
		return nil, err
	}

	var result *domain.SubmitResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		journal, err := s.catalog.Journal(ctx, tx, req.JournalID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		fee := s.pricing.ArticlePrice(*journal, author.FullName())
		article := &domain.Article{
			ID:                      s.genID.Generate(),
			Title:                   req.Title,
			AuthorID:                author.ID,
			JournalID:               journal.ID,
			Category:                strings.TrimSpace(req.Category),
			Abstract:                strings.TrimSpace(req.Abstract),
			Keywords:                strings.TrimSpace(req.Keywords),
			Status:                  domain.StatusPending,
			SubmissionPaymentStatus: domain.PaymentPending,
			AssignedEditorID:        journal.ManagerID,
			SubmissionFee:           fee,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		if err := s.repo.Insert(ctx, tx, article); err != nil {
			return err
		}

		txn, err := s.clickSvc.Open(ctx, tx, clickdomain.OpenRequest{
			Kind:    paymentKind,
			Payable: payable.Ref{Type: payable.TypeArticle, ID: article.ID},
			Amount:  fee,
			UserID:  &author.ID,
		})
		if err != nil {
			return fmt.Errorf("open submission payment: %w", err)
		}

		result = &domain.SubmitResult{
			Article:         article,
			PaymentURL:      s.clickSvc.PaymentURL(txn),
			MerchantTransID: txn.MerchantTransID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, "article.submitted", result.Article, map[string]any{
		"journal_id":        result.Article.JournalID.String(),
		"submission_fee":    result.Article.SubmissionFee.StringFixed(2),
		"merchant_trans_id": result.MerchantTransID,
	})
	return result, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Article, error) {
	article, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, domain.ErrNotFound
	}
	return article, nil
}

func (s *Service) RequestRevision(ctx context.Context, id snowflake.ID, notes string) (*domain.Article, error) {
	notes = strings.TrimSpace(notes)
	return s.review(ctx, id, "article.revision_requested", domain.StatusUpdate{
		From:  []domain.Status{domain.StatusReviewing},
		To:    domain.StatusNeedsRevision,
		Notes: &notes,
	})
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID, notes string) (*domain.Article, error) {
	notes = strings.TrimSpace(notes)
	return s.review(ctx, id, "article.rejected", domain.StatusUpdate{
		From:  []domain.Status{domain.StatusReviewing, domain.StatusNeedsRevision},
		To:    domain.StatusRejected,
		Notes: &notes,
	})
}

func (s *Service) Accept(ctx context.Context, id snowflake.ID) (*domain.Article, error) {
	return s.review(ctx, id, "article.accepted", domain.StatusUpdate{
		From: []domain.Status{domain.StatusReviewing, domain.StatusNeedsRevision},
		To:   domain.StatusAccepted,
	})
}

// SubmitRevision is the author's answer to a revision request.
func (s *Service) SubmitRevision(ctx context.Context, id snowflake.ID, authorID snowflake.ID) (*domain.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.AuthorID != authorID {
		return nil, domain.ErrNotAuthor
	}
	return s.transition(ctx, article, "article.revision_submitted", domain.StatusUpdate{
		From: []domain.Status{domain.StatusNeedsRevision},
		To:   domain.StatusReviewing,
	})
}

// review applies an editor decision. A journal manager may only act on
// articles assigned to them.
func (s *Service) review(ctx context.Context, id snowflake.ID, action string, update domain.StatusUpdate) (*domain.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor, ok := usercontext.ActorFromContext(ctx); ok && actor.Role == authorization.RoleJournalManager {
		if article.AssignedEditorID == nil || *article.AssignedEditorID != actor.ID {
			return nil, domain.ErrNotAssignedEditor
		}
	}
	return s.transition(ctx, article, action, update)
}

func (s *Service) transition(ctx context.Context, article *domain.Article, action string, update domain.StatusUpdate) (*domain.Article, error) {
	if !allowed(article.Status, update.From) {
		return nil, domain.ErrInvalidTransition
	}

	from := article.Status
	now := s.clock.Now()
	ok, err := s.repo.UpdateStatus(ctx, s.db, article.ID, update, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	article.Status = update.To
	article.UpdatedAt = now
	if update.Notes != nil {
		article.ManagerNotes = *update.Notes
	}

	meta := map[string]any{
		"from_status": string(from),
		"to_status":   string(update.To),
	}
	if update.Notes != nil && *update.Notes != "" {
		meta["notes"] = *update.Notes
	}
	s.writeAudit(ctx, action, article, meta)
	return article, nil
}

func (s *Service) writeAudit(ctx context.Context, action string, article *domain.Article, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := article.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, auditTargetType, &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func allowed(current domain.Status, from []domain.Status) bool {
	for _, status := range from {
		if current == status {
			return true
		}
	}
	return false
}
