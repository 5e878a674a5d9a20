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
	auditrepository "github.com/smallbiznis/journalpay/internal/audit/repository"
	auditservice "github.com/smallbiznis/journalpay/internal/audit/service"
	"github.com/smallbiznis/journalpay/internal/catalog"
	catalogdomain "github.com/smallbiznis/journalpay/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/journalpay/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/journalpay/internal/catalog/service"
	clickrepository "github.com/smallbiznis/journalpay/internal/click/repository"
	clickservice "github.com/smallbiznis/journalpay/internal/click/service"
	"github.com/smallbiznis/journalpay/internal/click/signature"
	"github.com/smallbiznis/journalpay/internal/clock"
	"github.com/smallbiznis/journalpay/internal/config"
	outboxrepository "github.com/smallbiznis/journalpay/internal/outbox/repository"
	outboxservice "github.com/smallbiznis/journalpay/internal/outbox/service"
	"github.com/smallbiznis/journalpay/internal/payable"
	"github.com/smallbiznis/journalpay/internal/pricing"
	"github.com/smallbiznis/journalpay/internal/serviceorder/domain"
	"github.com/smallbiznis/journalpay/internal/serviceorder/repository"
	userrepository "github.com/smallbiznis/journalpay/internal/user/repository"
	"github.com/smallbiznis/journalpay/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	clientID = 100
	writerID = 110
)

type fixture struct {
	db      *gorm.DB
	svc     domain.Service
	repo    domain.Repository
	variant *Variant
	clock   *clock.FakeClock
	udc     *catalogdomain.Service
	printed *catalogdomain.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:serviceorder_svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		`CREATE TABLE services (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			price NUMERIC NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE service_orders (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			service_id INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending_payment',
			form_data TEXT NOT NULL DEFAULT '{}',
			udc_code TEXT NOT NULL DEFAULT '',
			assigned_writer_id INTEGER,
			printing_status TEXT NOT NULL DEFAULT '',
			tracking_number TEXT NOT NULL DEFAULT '',
			shipped_date DATETIME,
			calculated_price NUMERIC NOT NULL DEFAULT 0,
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
		`INSERT INTO users (id, phone, name, surname, role) VALUES
			(100, '+998900000001', 'Aziz', 'Karimov', 'client'),
			(110, '+998900000002', 'Malika', 'Tursunova', 'writer')`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	node, err := snowflake.NewNode(10)
	require.NoError(t, err)
	require.NoError(t, catalog.EnsureServices(context.Background(), db, node))

	fake := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{
		Click: config.ClickConfig{ServiceID: "101", MerchantID: "202", SecretKey: "s3cret", PayURL: "https://my.click.uz/services/pay"},
		Kafka: config.KafkaConfig{Topic: "journalpay.payments"},
	}
	rates := config.NewStaticPricingConfigHolder(config.DefaultPricingConfig())

	repo := repository.Provide()
	variant := NewVariant(repo, fake)
	registry, err := payable.NewRegistry(payable.RegistryParams{Log: zap.NewNop(), Variants: []payable.Variant{variant}})
	require.NoError(t, err)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  auditrepository.Provide(),
	})
	clickSvc := clickservice.NewService(clickservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Config:   cfg,
		Verifier: signature.NewVerifier(cfg.Click.SecretKey),
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
	cat := catalogservice.NewService(catalogrepository.Provide())

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Rates:    rates,
		Repo:     repo,
		Users:    userrepository.Provide(),
		Catalog:  cat,
		Pricing:  pricing.NewCalculator(rates),
		ClickSvc: clickSvc,
		AuditSvc: auditSvc,
	})

	udc, err := cat.ServiceBySlug(context.Background(), db, "udc-classification")
	require.NoError(t, err)
	printed, err := cat.ServiceBySlug(context.Background(), db, "printed-publications")
	require.NoError(t, err)

	return &fixture{db: db, svc: svc, repo: repo, variant: variant, clock: fake, udc: udc, printed: printed}
}

func (f *fixture) placePaid(t *testing.T, serviceID snowflake.ID, form map[string]any) *domain.ServiceOrder {
	t.Helper()
	res, err := f.svc.Place(context.Background(), domain.PlaceRequest{UserID: clientID, ServiceID: serviceID, FormData: form})
	require.NoError(t, err)
	require.NoError(t, f.variant.MarkPaid(context.Background(), f.db, res.Order.ID))
	f.clock.Advance(time.Minute)
	return res.Order
}

func printedForm() map[string]any {
	return map[string]any{
		"bookTitle": "Collected Poems",
		"bookPages": 100,
		"quantity":  2,
		"coverType": "hard",
	}
}

func TestPlacePrintedPublication(t *testing.T) {
	f := setup(t)

	res, err := f.svc.Place(context.Background(), domain.PlaceRequest{
		UserID:    clientID,
		ServiceID: f.printed.ID,
		FormData:  printedForm(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendingPayment, res.Order.Status)
	assert.True(t, decimal.NewFromInt(130000).Equal(res.Order.CalculatedPrice))
	assert.True(t, strings.HasPrefix(res.MerchantTransID, "service_"+res.Order.ID.String()+"_"))
	assert.Contains(t, res.PaymentURL, "amount=130000.00")

	stored, err := f.svc.Get(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Collected Poems", stored.FormData["bookTitle"])
}

func TestPlaceRejectsInvalidForm(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Place(context.Background(), domain.PlaceRequest{
		UserID:    clientID,
		ServiceID: f.printed.ID,
		FormData:  map[string]any{"bookPages": 10, "coverType": "leather"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidForm)

	var formErr *domain.FormError
	require.ErrorAs(t, err, &formErr)
	assert.Contains(t, formErr.Fields, "bookTitle")
	assert.Contains(t, formErr.Fields, "coverType")

	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM service_orders`).Scan(&count).Error)
	assert.Zero(t, count)
}

func TestPlacePrintedPublicationQuantity(t *testing.T) {
	f := setup(t)

	form := printedForm()
	form["quantity"] = 0
	res, err := f.svc.Place(context.Background(), domain.PlaceRequest{
		UserID:    clientID,
		ServiceID: f.printed.ID,
		FormData:  form,
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4000).Equal(res.Order.CalculatedPrice), "got %s", res.Order.CalculatedPrice)

	form = printedForm()
	form["quantity"] = -3
	_, err = f.svc.Place(context.Background(), domain.PlaceRequest{
		UserID:    clientID,
		ServiceID: f.printed.ID,
		FormData:  form,
	})
	var formErr *domain.FormError
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, "must be at least 0", formErr.Fields["quantity"])
}

func TestPlaceFlatPricedService(t *testing.T) {
	f := setup(t)

	res, err := f.svc.Place(context.Background(), domain.PlaceRequest{UserID: clientID, ServiceID: f.udc.ID})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50000).Equal(res.Order.CalculatedPrice))

	_, err = f.svc.Place(context.Background(), domain.PlaceRequest{UserID: clientID, ServiceID: 12345})
	assert.ErrorIs(t, err, catalogdomain.ErrServiceNotFound)
}

func TestUDCQueueAndAssignment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.placePaid(t, f.udc.ID, nil)
	second := f.placePaid(t, f.udc.ID, nil)
	f.placePaid(t, f.printed.ID, printedForm())
	unpaid, err := f.svc.Place(ctx, domain.PlaceRequest{UserID: clientID, ServiceID: f.udc.ID})
	require.NoError(t, err)

	page, err := f.svc.ListUDCQueue(ctx, domain.ListUDCQueueRequest{Pagination: pagination.Pagination{PageSize: 1}})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, second.ID, page.Orders[0].ID)
	assert.True(t, page.PageInfo.HasMore)

	page, err = f.svc.ListUDCQueue(ctx, domain.ListUDCQueueRequest{Pagination: pagination.Pagination{PageSize: 1, PageToken: page.PageInfo.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, first.ID, page.Orders[0].ID)
	assert.False(t, page.PageInfo.HasMore)

	_, err = f.svc.AssignUDC(ctx, first.ID, writerID, "  ")
	assert.ErrorIs(t, err, domain.ErrUDCCodeRequired)

	_, err = f.svc.AssignUDC(ctx, unpaid.Order.ID, writerID, "336.7")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	order, err := f.svc.AssignUDC(ctx, first.ID, writerID, "336.7")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUDCAssigned, order.Status)
	assert.Equal(t, "336.7", order.UDCCode)
	require.NotNil(t, order.AssignedWriterID)
	assert.Equal(t, snowflake.ID(writerID), *order.AssignedWriterID)

	page, err = f.svc.ListUDCQueue(ctx, domain.ListUDCQueueRequest{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, second.ID, page.Orders[0].ID)

	_, err = f.svc.ListUDCQueue(ctx, domain.ListUDCQueueRequest{Pagination: pagination.Pagination{PageToken: "!!"}})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

func TestUpdatePrinting(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	udcOrder := f.placePaid(t, f.udc.ID, nil)
	_, err := f.svc.UpdatePrinting(ctx, udcOrder.ID, domain.UpdatePrintingRequest{Status: "printing"})
	assert.ErrorIs(t, err, domain.ErrNotPrintedPublication)

	order := f.placePaid(t, f.printed.ID, printedForm())

	_, err = f.svc.UpdatePrinting(ctx, order.ID, domain.UpdatePrintingRequest{Status: "lost"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	updated, err := f.svc.UpdatePrinting(ctx, order.ID, domain.UpdatePrintingRequest{Status: "printing", PrintingStatus: "plates ready"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPrinting, updated.Status)
	assert.Equal(t, "plates ready", updated.PrintingStatus)
	assert.Nil(t, updated.ShippedDate)

	updated, err = f.svc.UpdatePrinting(ctx, order.ID, domain.UpdatePrintingRequest{Status: "shipped", TrackingNumber: "UZ123"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, updated.Status)
	assert.Equal(t, "UZ123", updated.TrackingNumber)
	assert.Equal(t, "plates ready", updated.PrintingStatus)
	require.NotNil(t, updated.ShippedDate)
	assert.True(t, f.clock.Now().Equal(*updated.ShippedDate))
}

func TestUpdatePrintingRequiresPayment(t *testing.T) {
	f := setup(t)

	res, err := f.svc.Place(context.Background(), domain.PlaceRequest{UserID: clientID, ServiceID: f.printed.ID, FormData: printedForm()})
	require.NoError(t, err)

	_, err = f.svc.UpdatePrinting(context.Background(), res.Order.ID, domain.UpdatePrintingRequest{Status: "printing"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAssignWriter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	order := f.placePaid(t, f.printed.ID, printedForm())

	_, err := f.svc.AssignWriter(ctx, order.ID, clientID)
	assert.ErrorIs(t, err, domain.ErrWriterNotFound)

	_, err = f.svc.AssignWriter(ctx, order.ID, 999)
	assert.ErrorIs(t, err, domain.ErrWriterNotFound)

	updated, err := f.svc.AssignWriter(ctx, order.ID, writerID)
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedWriterID)
	assert.Equal(t, snowflake.ID(writerID), *updated.AssignedWriterID)

	_, err = f.svc.AssignWriter(ctx, 404, writerID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
