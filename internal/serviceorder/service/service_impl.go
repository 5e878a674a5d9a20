package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/journalpay/internal/audit/domain"
	"github.com/smallbiznis/journalpay/internal/authorization"
	catalogdomain "github.com/smallbiznis/journalpay/internal/catalog/domain"
	clickdomain "github.com/smallbiznis/journalpay/internal/click/domain"
	"github.com/smallbiznis/journalpay/internal/clock"
	"github.com/smallbiznis/journalpay/internal/config"
	"github.com/smallbiznis/journalpay/internal/payable"
	"github.com/smallbiznis/journalpay/internal/pricing"
	"github.com/smallbiznis/journalpay/internal/ratelimit"
	"github.com/smallbiznis/journalpay/internal/serviceorder/domain"
	userdomain "github.com/smallbiznis/journalpay/internal/user/domain"
	"github.com/smallbiznis/journalpay/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	paymentKind     = "service"
	placeRoute      = "service_orders.place"
	auditTargetType = "service_order"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Rates    *config.PricingConfigHolder
	Repo     domain.Repository
	Users    userdomain.Repository
	Catalog  catalogdomain.Catalog
	Pricing  *pricing.Calculator
	ClickSvc clickdomain.Service
	AuditSvc auditdomain.Service
	Limiter  *ratelimit.SubmissionLimiter `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	rates     *config.PricingConfigHolder
	repo      domain.Repository
	users     userdomain.Repository
	catalog   catalogdomain.Catalog
	pricing   *pricing.Calculator
	clickSvc  clickdomain.Service
	auditSvc  auditdomain.Service
	limiter   *ratelimit.SubmissionLimiter
	validator *validator.Validate
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("serviceorder.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		rates:     p.Rates,
		repo:      p.Repo,
		users:     p.Users,
		catalog:   p.Catalog,
		pricing:   p.Pricing,
		clickSvc:  p.ClickSvc,
		auditSvc:  p.AuditSvc,
		limiter:   p.Limiter,
		validator: newValidator(),
	}
}

// Place stores a pending_payment order and opens its payment in the same
// transaction.
func (s *Service) Place(ctx context.Context, req domain.PlaceRequest) (*domain.PlaceResult, error) {
	if req.UserID == 0 {
		return nil, domain.ErrInvalidUser
	}
	if req.ServiceID == 0 {
		return nil, domain.ErrInvalidService
	}

	if _, err := s.limiter.Allow(ctx, req.UserID, placeRoute); err != nil {
		return nil, err
	}

	var result *domain.PlaceResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		svc, err := s.catalog.ActiveService(ctx, tx, req.ServiceID)
		if err != nil {
			return err
		}

		var form *pricing.PrintedPublicationForm
		if s.pricing.IsPrintedPublication(*svc) {
			form, err = decodePrintedForm(s.validator, req.FormData)
			if err != nil {
				return err
			}
		}
		price := s.pricing.ServicePrice(*svc, form)
		if !price.IsPositive() {
			return fmt.Errorf("service %s has no price: %w", svc.Slug, clickdomain.ErrInvalidAmount)
		}

		now := s.clock.Now()
		order := &domain.ServiceOrder{
			ID:              s.genID.Generate(),
			UserID:          req.UserID,
			ServiceID:       svc.ID,
			Status:          domain.StatusPendingPayment,
			FormData:        datatypes.JSONMap(req.FormData),
			CalculatedPrice: price,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repo.Insert(ctx, tx, order); err != nil {
			return err
		}

		userID := req.UserID
		txn, err := s.clickSvc.Open(ctx, tx, clickdomain.OpenRequest{
			Kind:    paymentKind,
			Payable: payable.Ref{Type: payable.TypeServiceOrder, ID: order.ID},
			Amount:  price,
			UserID:  &userID,
		})
		if err != nil {
			return fmt.Errorf("open service payment: %w", err)
		}

		result = &domain.PlaceResult{
			Order:           order,
			PaymentURL:      s.clickSvc.PaymentURL(txn),
			MerchantTransID: txn.MerchantTransID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, "service_order.placed", result.Order, map[string]any{
		"service_id":        result.Order.ServiceID.String(),
		"calculated_price":  result.Order.CalculatedPrice.StringFixed(2),
		"merchant_trans_id": result.MerchantTransID,
	})
	return result, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.ServiceOrder, error) {
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// ListUDCQueue returns paid classification orders waiting for a code, newest first.
func (s *Service) ListUDCQueue(ctx context.Context, req domain.ListUDCQueueRequest) (domain.ListUDCQueueResponse, error) {
	cursor, err := pagination.DecodeToken(req.PageToken)
	if err != nil {
		return domain.ListUDCQueueResponse{}, domain.ErrInvalidPageToken
	}

	svc, err := s.catalog.ServiceBySlug(ctx, s.db, s.rates.Get().PrintedPublication.UDCServiceSlug)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrServiceNotFound) {
			return domain.ListUDCQueueResponse{Orders: []domain.ServiceOrder{}}, nil
		}
		return domain.ListUDCQueueResponse{}, err
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		ServiceID: svc.ID,
		Status:    domain.StatusInProgress,
		Cursor:    cursor,
		Limit:     limit,
	})
	if err != nil {
		return domain.ListUDCQueueResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(item *domain.ServiceOrder) pagination.Position {
		return pagination.Position{ID: item.ID, CreatedAt: item.CreatedAt}
	})
	orders := make([]domain.ServiceOrder, 0, len(items))
	for _, item := range items {
		orders = append(orders, *item)
	}
	return domain.ListUDCQueueResponse{PageInfo: pageInfo, Orders: orders}, nil
}

func (s *Service) AssignUDC(ctx context.Context, orderID, writerID snowflake.ID, code string) (*domain.ServiceOrder, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrUDCCodeRequired
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	svc, err := s.catalog.ServiceBySlug(ctx, s.db, s.rates.Get().PrintedPublication.UDCServiceSlug)
	if err != nil {
		return nil, err
	}
	if order.ServiceID != svc.ID {
		return nil, domain.ErrNotUDCOrder
	}
	if order.Status != domain.StatusInProgress {
		return nil, domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	ok, err := s.repo.Update(ctx, s.db, order.ID, domain.StatusInProgress, map[string]any{
		"udc_code":           code,
		"status":             domain.StatusUDCAssigned,
		"assigned_writer_id": writerID,
		"updated_at":         now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	order.UDCCode = code
	order.Status = domain.StatusUDCAssigned
	order.AssignedWriterID = &writerID
	order.UpdatedAt = now

	s.writeAudit(ctx, "service_order.udc_assigned", order, map[string]any{"udc_code": code})
	return order, nil
}

// UpdatePrinting moves a printed publication order through fulfilment.
// Setting the status to shipped stamps shipped_date.
func (s *Service) UpdatePrinting(ctx context.Context, orderID snowflake.ID, req domain.UpdatePrintingRequest) (*domain.ServiceOrder, error) {
	order, err := s.printedOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	values := map[string]any{"updated_at": now}
	meta := map[string]any{"from_status": string(order.Status)}

	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return nil, domain.ErrInvalidStatus
		}
		if order.Status == domain.StatusPendingPayment {
			return nil, domain.ErrInvalidTransition
		}
		values["status"] = status
		meta["to_status"] = string(status)
		if status == domain.StatusShipped {
			values["shipped_date"] = now
		}
	}
	if printing := strings.TrimSpace(req.PrintingStatus); printing != "" {
		values["printing_status"] = printing
		meta["printing_status"] = printing
	}
	if tracking := strings.TrimSpace(req.TrackingNumber); tracking != "" {
		values["tracking_number"] = tracking
		meta["tracking_number"] = tracking
	}

	ok, err := s.repo.Update(ctx, s.db, order.ID, order.Status, values)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.Get(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.writeAudit(ctx, "service_order.printing_updated", updated, meta)
	return updated, nil
}

func (s *Service) AssignWriter(ctx context.Context, orderID, writerID snowflake.ID) (*domain.ServiceOrder, error) {
	if writerID == 0 {
		return nil, domain.ErrWriterNotFound
	}
	order, err := s.printedOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	writer, err := s.users.FindByID(ctx, s.db, writerID)
	if err != nil {
		return nil, err
	}
	if writer == nil || writer.Role != authorization.RoleWriter {
		return nil, domain.ErrWriterNotFound
	}

	now := s.clock.Now()
	ok, err := s.repo.Update(ctx, s.db, order.ID, order.Status, map[string]any{
		"assigned_writer_id": writer.ID,
		"updated_at":         now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	order.AssignedWriterID = &writer.ID
	order.UpdatedAt = now
	s.writeAudit(ctx, "service_order.writer_assigned", order, map[string]any{"writer_id": writer.ID.String()})
	return order, nil
}

func (s *Service) printedOrder(ctx context.Context, orderID snowflake.ID) (*domain.ServiceOrder, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	svc, err := s.catalog.ServiceBySlug(ctx, s.db, s.rates.Get().PrintedPublication.ServiceSlug)
	if err != nil {
		return nil, err
	}
	if order.ServiceID != svc.ID {
		return nil, domain.ErrNotPrintedPublication
	}
	return order, nil
}

func (s *Service) writeAudit(ctx context.Context, action string, order *domain.ServiceOrder, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := order.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, auditTargetType, &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
