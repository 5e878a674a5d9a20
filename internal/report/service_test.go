package report

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	articlerepository "github.com/smallbiznis/journalpay/internal/article/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupReportDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:report_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE articles (
			id INTEGER PRIMARY KEY,
			author_id INTEGER NOT NULL,
			status TEXT NOT NULL
		)`,
		`CREATE TABLE click_transactions (
			id INTEGER PRIMARY KEY,
			merchant_trans_id TEXT NOT NULL UNIQUE,
			amount NUMERIC NOT NULL,
			status TEXT NOT NULL,
			payable_type TEXT NOT NULL,
			payable_id INTEGER NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`INSERT INTO articles (id, author_id, status) VALUES
			(1, 10, 'accepted'), (2, 10, 'pending'), (3, 10, 'pending'),
			(4, 10, 'needs_revision'), (5, 11, 'accepted')`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	insert := func(id int, status, payableType string, amount int64, at time.Time) {
		require.NoError(t, db.Exec(
			`INSERT INTO click_transactions (id, merchant_trans_id, amount, status, payable_type, payable_id, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, fmt.Sprintf("m_%d", id), amount, status, payableType, id, at,
		).Error)
	}
	insert(1, "completed", "article", 50000, time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC))
	insert(2, "completed", "article", 100000, time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC))
	insert(3, "completed", "article", 100000, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	insert(4, "cancelled", "article", 100000, time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC))
	insert(5, "completed", "service_order", 130000, time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC))
	return db
}

func TestFinancialReport(t *testing.T) {
	db := setupReportDB(t)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), Articles: articlerepository.Provide()})

	report, err := svc.Financial(context.Background())
	require.NoError(t, err)

	require.Len(t, report.MonthlyRevenue, 2)
	assert.Equal(t, "2024-05", report.MonthlyRevenue[0].Month)
	assert.True(t, decimal.NewFromInt(150000).Equal(report.MonthlyRevenue[0].Total))
	assert.Equal(t, int64(2), report.MonthlyRevenue[0].Payments)
	assert.Equal(t, "2024-06", report.MonthlyRevenue[1].Month)
	assert.True(t, decimal.NewFromInt(100000).Equal(report.MonthlyRevenue[1].Total))
	assert.True(t, decimal.NewFromInt(250000).Equal(report.TotalRevenue))
	assert.Equal(t, int64(2), report.AcceptedArticles)
}

func TestAuthorDashboard(t *testing.T) {
	db := setupReportDB(t)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), Articles: articlerepository.Provide()})

	dash, err := svc.Dashboard(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), dash.Pending)
	assert.Equal(t, int64(1), dash.Revision)
	assert.Equal(t, int64(1), dash.Accepted)
	assert.Zero(t, dash.Reviewing)
}
