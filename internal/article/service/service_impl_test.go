package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/journalpay/internal/article/domain"
	"github.com/smallbiznis/journalpay/internal/article/repository"
	auditrepository "github.com/smallbiznis/journalpay/internal/audit/repository"
	auditservice "github.com/smallbiznis/journalpay/internal/audit/service"
	"github.com/smallbiznis/journalpay/internal/authorization"
	catalogdomain "github.com/smallbiznis/journalpay/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/journalpay/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/journalpay/internal/catalog/service"
	clickdomain "github.com/smallbiznis/journalpay/internal/click/domain"
	clickrepository "github.com/smallbiznis/journalpay/internal/click/repository"
	clickservice "github.com/smallbiznis/journalpay/internal/click/service"
	"github.com/smallbiznis/journalpay/internal/click/signature"
	"github.com/smallbiznis/journalpay/internal/clock"
	"github.com/smallbiznis/journalpay/internal/config"
	outboxrepository "github.com/smallbiznis/journalpay/internal/outbox/repository"
	outboxservice "github.com/smallbiznis/journalpay/internal/outbox/service"
	"github.com/smallbiznis/journalpay/internal/payable"
	"github.com/smallbiznis/journalpay/internal/pricing"
	userrepository "github.com/smallbiznis/journalpay/internal/user/repository"
	userservice "github.com/smallbiznis/journalpay/internal/user/service"
	"github.com/smallbiznis/journalpay/internal/usercontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	authorID   = 100
	partnerID  = 101
	managerID  = 200
	otherMgrID = 201
	journalID  = 300
)

type fixture struct {
	db       *gorm.DB
	svc      domain.Service
	clickSvc clickdomain.Service
	verifier *signature.Verifier
	repo     domain.Repository
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:article_svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			phone TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			surname TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'client',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE journals (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			manager_id INTEGER,
			partner_price NUMERIC NOT NULL DEFAULT 50000,
			regular_price NUMERIC NOT NULL DEFAULT 100000,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE articles (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			author_id INTEGER NOT NULL,
			journal_id INTEGER NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			abstract TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			submission_payment_status TEXT NOT NULL DEFAULT 'payment_pending',
			assigned_editor_id INTEGER,
			manager_notes TEXT NOT NULL DEFAULT '',
			submission_fee NUMERIC NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE click_transactions (
			id INTEGER PRIMARY KEY,
			external_trans_id TEXT UNIQUE,
			merchant_trans_id TEXT NOT NULL UNIQUE,
			amount NUMERIC NOT NULL,
			status TEXT NOT NULL DEFAULT 'waiting',
			payable_type TEXT NOT NULL,
			payable_id INTEGER NOT NULL,
			user_id INTEGER,
			extra_data TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE audit_logs (
			id INTEGER PRIMARY KEY,
			actor_type TEXT NOT NULL,
			actor_id TEXT,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			request_id TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE outbox_events (
			id INTEGER PRIMARY KEY,
			event_id TEXT NOT NULL UNIQUE,
			event_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			payload TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at DATETIME NOT NULL,
			sent_at DATETIME
		)`,
		`INSERT INTO users (id, phone, name, surname, role) VALUES
			(100, '+998900000001', 'Aziz', 'Karimov', 'client'),
			(101, '+998900000002', 'Hamkor', 'Bank', 'client'),
			(200, '+998900000003', 'Dilnoza', 'Rahimova', 'journal_manager'),
			(201, '+998900000004', 'Bobur', 'Aliyev', 'journal_manager')`,
		`INSERT INTO journals (id, name, manager_id, partner_price, regular_price) VALUES
			(300, 'Economics Review', 200, 30000, 90000)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	node, err := snowflake.NewNode(10)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{
		Click: config.ClickConfig{
			ServiceID:  "101",
			MerchantID: "202",
			SecretKey:  "s3cret",
			PayURL:     "https://my.click.uz/services/pay",
			ReturnURL:  "http://localhost/return",
		},
		Kafka: config.KafkaConfig{Topic: "journalpay.payments"},
	}

	repo := repository.Provide()
	registry, err := payable.NewRegistry(payable.RegistryParams{
		Log:      zap.NewNop(),
		Variants: []payable.Variant{NewVariant(repo, fake)},
	})
	require.NoError(t, err)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  auditrepository.Provide(),
	})
	verifier := signature.NewVerifier(cfg.Click.SecretKey)
	clickSvc := clickservice.NewService(clickservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Config:   cfg,
		Verifier: verifier,
		Repo:     clickrepository.Provide(),
		Registry: registry,
		Outbox: outboxservice.NewService(outboxservice.Params{
			Config: cfg,
			GenID:  node,
			Clock:  fake,
			Repo:   outboxrepository.Provide(),
		}),
		AuditSvc: auditSvc,
	})

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     repo,
		Users:    userservice.NewService(userservice.Params{DB: db, Repo: userrepository.Provide()}),
		Catalog:  catalogservice.NewService(catalogrepository.Provide()),
		Pricing:  pricing.NewCalculator(config.NewStaticPricingConfigHolder(config.DefaultPricingConfig())),
		ClickSvc: clickSvc,
		AuditSvc: auditSvc,
	})

	return &fixture{db: db, svc: svc, clickSvc: clickSvc, verifier: verifier, repo: repo}
}

func (f *fixture) insertArticle(t *testing.T, id int64, status domain.Status) {
	t.Helper()
	editor := snowflake.ID(managerID)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.repo.Insert(context.Background(), f.db, &domain.Article{
		ID:                      snowflake.ID(id),
		Title:                   "On Markets",
		AuthorID:                authorID,
		JournalID:               journalID,
		Status:                  status,
		SubmissionPaymentStatus: domain.PaymentCompleted,
		AssignedEditorID:        &editor,
		SubmissionFee:           decimal.NewFromInt(90000),
		CreatedAt:               now,
		UpdatedAt:               now,
	}))
}

func TestSubmitOpensPayment(t *testing.T) {
	f := setup(t)

	res, err := f.svc.Submit(context.Background(), domain.SubmitRequest{
		AuthorID:  partnerID,
		JournalID: journalID,
		Title:     "  Banking in Central Asia ",
		Keywords:  "banking",
	})
	require.NoError(t, err)

	assert.Equal(t, "Banking in Central Asia", res.Article.Title)
	assert.Equal(t, domain.StatusPending, res.Article.Status)
	assert.Equal(t, domain.PaymentPending, res.Article.SubmissionPaymentStatus)
	require.NotNil(t, res.Article.AssignedEditorID)
	assert.Equal(t, snowflake.ID(managerID), *res.Article.AssignedEditorID)
	assert.True(t, decimal.NewFromInt(30000).Equal(res.Article.SubmissionFee), "partner price applies")
	assert.True(t, strings.HasPrefix(res.MerchantTransID, "article_"+res.Article.ID.String()+"_"))
	assert.Contains(t, res.PaymentURL, "amount=30000.00")
	assert.Contains(t, res.PaymentURL, "transaction_param="+res.MerchantTransID)

	status, err := f.clickSvc.Status(context.Background(), res.MerchantTransID)
	require.NoError(t, err)
	assert.Equal(t, clickdomain.StatusWaiting, status.Status)
	assert.Equal(t, payable.TypeArticle, status.PayableType)
}

func TestSubmitRegularPrice(t *testing.T) {
	f := setup(t)

	res, err := f.svc.Submit(context.Background(), domain.SubmitRequest{AuthorID: authorID, JournalID: journalID, Title: "Tax Policy"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(90000).Equal(res.Article.SubmissionFee))
}

func TestSubmitValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, domain.SubmitRequest{AuthorID: authorID, JournalID: journalID})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)

	_, err = f.svc.Submit(ctx, domain.SubmitRequest{AuthorID: authorID, Title: "x"})
	assert.ErrorIs(t, err, domain.ErrJournalRequired)

	_, err = f.svc.Submit(ctx, domain.SubmitRequest{AuthorID: 999, JournalID: journalID, Title: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidAuthor)

	_, err = f.svc.Submit(ctx, domain.SubmitRequest{AuthorID: authorID, JournalID: 999, Title: "x"})
	assert.ErrorIs(t, err, catalogdomain.ErrJournalNotFound)

	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM articles`).Scan(&count).Error)
	assert.Zero(t, count)
}

func TestPaidSubmissionMovesToReviewing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Submit(ctx, domain.SubmitRequest{AuthorID: authorID, JournalID: journalID, Title: "Tax Policy"})
	require.NoError(t, err)

	prepare := clickdomain.PrepareRequest{
		ClickTransID:    "555",
		ServiceID:       "101",
		MerchantTransID: res.MerchantTransID,
		Amount:          "90000",
		Action:          clickdomain.ActionPrepare,
		SignTime:        "2024-06-01 12:00:00",
	}
	prepare.SignString = f.verifier.PrepareDigest(prepare)
	prepared := f.clickSvc.Prepare(ctx, prepare)
	require.Equal(t, clickdomain.CodeSuccess, prepared.Error)

	complete := clickdomain.CompleteRequest{
		ClickTransID:      "555",
		ServiceID:         "101",
		MerchantTransID:   res.MerchantTransID,
		MerchantPrepareID: fmt.Sprint(prepared.MerchantPrepareID),
		Amount:            "90000",
		Action:            clickdomain.ActionComplete,
		Error:             "0",
		SignTime:          "2024-06-01 12:01:00",
	}
	complete.SignString = f.verifier.CompleteDigest(complete)
	require.Equal(t, clickdomain.CodeSuccess, f.clickSvc.Complete(ctx, complete).Error)

	article, err := f.svc.Get(ctx, res.Article.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReviewing, article.Status)
	assert.Equal(t, domain.PaymentCompleted, article.SubmissionPaymentStatus)
}

func TestEditorTransitions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.insertArticle(t, 1, domain.StatusReviewing)

	article, err := f.svc.RequestRevision(ctx, 1, " fix references ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNeedsRevision, article.Status)
	assert.Equal(t, "fix references", article.ManagerNotes)

	_, err = f.svc.RequestRevision(ctx, 1, "again")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.SubmitRevision(ctx, 1, partnerID)
	assert.ErrorIs(t, err, domain.ErrNotAuthor)

	article, err = f.svc.SubmitRevision(ctx, 1, authorID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReviewing, article.Status)

	article, err = f.svc.Accept(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, article.Status)

	_, err = f.svc.Reject(ctx, 1, "too late")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := f.svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, stored.Status)
}

func TestEditorActionsRequireReviewing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.insertArticle(t, 1, domain.StatusPending)

	_, err := f.svc.Accept(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.Reject(ctx, 1, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Accept(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJournalManagerMustBeAssignedEditor(t *testing.T) {
	f := setup(t)
	f.insertArticle(t, 1, domain.StatusReviewing)

	other := usercontext.WithActor(context.Background(), usercontext.Actor{ID: otherMgrID, Role: authorization.RoleJournalManager})
	_, err := f.svc.Reject(other, 1, "no")
	assert.ErrorIs(t, err, domain.ErrNotAssignedEditor)

	assigned := usercontext.WithActor(context.Background(), usercontext.Actor{ID: managerID, Role: authorization.RoleJournalManager})
	article, err := f.svc.Reject(assigned, 1, "out of scope")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, article.Status)

	var actor string
	require.NoError(t, f.db.Raw(`SELECT actor_id FROM audit_logs WHERE action = 'article.rejected'`).Scan(&actor).Error)
	assert.Equal(t, fmt.Sprint(managerID), actor)
}
