package report

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type MonthlyRevenue struct {
	Month    string          `json:"month"`
	Total    decimal.Decimal `json:"total"`
	Payments int64           `json:"payments"`
}

type FinancialReport struct {
	MonthlyRevenue   []MonthlyRevenue `json:"monthly_revenue"`
	TotalRevenue     decimal.Decimal  `json:"total_revenue"`
	AcceptedArticles int64            `json:"accepted_articles"`
}

// AuthorDashboard counts an author's articles per status.
type AuthorDashboard struct {
	Pending   int64 `json:"pending"`
	Reviewing int64 `json:"reviewing"`
	Revision  int64 `json:"revision"`
	Accepted  int64 `json:"accepted"`
	Rejected  int64 `json:"rejected"`
	Published int64 `json:"published"`
}

type Service interface {
	Financial(ctx context.Context) (*FinancialReport, error)
	Dashboard(ctx context.Context, authorID snowflake.ID) (*AuthorDashboard, error)
}
