package report

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	articledomain "github.com/smallbiznis/journalpay/internal/article/domain"
	clickdomain "github.com/smallbiznis/journalpay/internal/click/domain"
	"github.com/smallbiznis/journalpay/internal/payable"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Articles articledomain.Repository
}

type reportService struct {
	db       *gorm.DB
	log      *zap.Logger
	articles articledomain.Repository
}

func NewService(p Params) Service {
	return &reportService{
		db:       p.DB,
		log:      p.Log.Named("report.service"),
		articles: p.Articles,
	}
}

// Financial sums completed submission fee payments per calendar month of
// completion. Months are bucketed in Go so the query stays portable.
func (s *reportService) Financial(ctx context.Context) (*FinancialReport, error) {
	var rows []struct {
		Amount    decimal.Decimal
		UpdatedAt time.Time
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT amount, updated_at
		 FROM click_transactions
		 WHERE status = ? AND payable_type = ?`,
		clickdomain.StatusCompleted,
		payable.TypeArticle,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	buckets := map[string]*MonthlyRevenue{}
	total := decimal.Zero
	for _, row := range rows {
		month := row.UpdatedAt.UTC().Format("2006-01")
		bucket, ok := buckets[month]
		if !ok {
			bucket = &MonthlyRevenue{Month: month, Total: decimal.Zero}
			buckets[month] = bucket
		}
		bucket.Total = bucket.Total.Add(row.Amount)
		bucket.Payments++
		total = total.Add(row.Amount)
	}

	monthly := make([]MonthlyRevenue, 0, len(buckets))
	for _, bucket := range buckets {
		monthly = append(monthly, *bucket)
	}
	sort.Slice(monthly, func(i, j int) bool { return monthly[i].Month < monthly[j].Month })

	var accepted int64
	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM articles WHERE status = ?`,
		articledomain.StatusAccepted,
	).Scan(&accepted).Error
	if err != nil {
		return nil, err
	}

	return &FinancialReport{
		MonthlyRevenue:   monthly,
		TotalRevenue:     total,
		AcceptedArticles: accepted,
	}, nil
}

func (s *reportService) Dashboard(ctx context.Context, authorID snowflake.ID) (*AuthorDashboard, error) {
	counts, err := s.articles.CountByStatus(ctx, s.db, authorID)
	if err != nil {
		return nil, err
	}
	return &AuthorDashboard{
		Pending:   counts[articledomain.StatusPending],
		Reviewing: counts[articledomain.StatusReviewing],
		Revision:  counts[articledomain.StatusNeedsRevision],
		Accepted:  counts[articledomain.StatusAccepted],
		Rejected:  counts[articledomain.StatusRejected],
		Published: counts[articledomain.StatusPublished],
	}, nil
}
