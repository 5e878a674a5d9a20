package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/journalpay/internal/audit/domain"
	"github.com/smallbiznis/journalpay/internal/click/domain"
	"github.com/smallbiznis/journalpay/internal/click/signature"
	"github.com/smallbiznis/journalpay/internal/clock"
	"github.com/smallbiznis/journalpay/internal/config"
	obsmetrics "github.com/smallbiznis/journalpay/internal/observability/metrics"
	outboxdomain "github.com/smallbiznis/journalpay/internal/outbox/domain"
	"github.com/smallbiznis/journalpay/internal/payable"
	"github.com/smallbiznis/journalpay/internal/ratelimit"
	"github.com/smallbiznis/journalpay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const auditTargetType = "click_transaction"

var errDuplicateExternalID = errors.New("duplicate_external_trans_id")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Verifier   *signature.Verifier
	Repo       domain.Repository
	Registry   *payable.Registry
	Outbox     outboxdomain.Writer
	AuditSvc   auditdomain.Service
	Guard      *ratelimit.CallbackGuard `optional:"true"`
	ObsMetrics *obsmetrics.Metrics      `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	gateway    config.ClickConfig
	verifier   *signature.Verifier
	repo       domain.Repository
	registry   *payable.Registry
	outbox     outboxdomain.Writer
	auditSvc   auditdomain.Service
	guard      *ratelimit.CallbackGuard
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("click.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		gateway:    p.Config.Click,
		verifier:   p.Verifier,
		repo:       p.Repo,
		registry:   p.Registry,
		outbox:     p.Outbox,
		auditSvc:   p.AuditSvc,
		guard:      p.Guard,
		obsMetrics: p.ObsMetrics,
	}
}

// Prepare binds the gateway's transaction id to a waiting transaction.
func (s *Service) Prepare(ctx context.Context, req domain.PrepareRequest) (resp domain.PrepareResponse) {
	resp = domain.PrepareResponse{
		ClickTransID:    req.ClickTransID,
		MerchantTransID: req.MerchantTransID,
	}
	defer func() {
		s.obsMetrics.RecordClickCallback(ctx, "prepare", resp.Error)
	}()

	if err := s.verifier.VerifyPrepare(req); err != nil {
		s.log.Warn("prepare signature check failed", zap.String("merchant_trans_id", req.MerchantTransID))
		return rejectPrepare(resp, domain.CodeSignFailed, domain.NoteSignFailed)
	}

	release := s.guard.Acquire(ctx, req.MerchantTransID)
	defer release()

	var prepared *domain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := s.repo.FindByMerchantTransID(ctx, tx, req.MerchantTransID, true)
		if err != nil {
			return err
		}
		if txn == nil {
			resp = rejectPrepare(resp, domain.CodeNotFoundPrepare, domain.NoteNotFound)
			return nil
		}
		if req.Action != domain.ActionPrepare {
			resp = rejectPrepare(resp, domain.CodeUnknownAction, domain.NoteUnknownAction)
			return nil
		}
		if txn.Status != domain.StatusWaiting {
			resp = rejectPrepare(resp, domain.CodeAlreadyProcessed, domain.NoteAlreadyProcessed)
			return nil
		}
		if !amountMatches(txn.Amount, req.Amount) {
			resp = rejectPrepare(resp, domain.CodeIncorrectAmount, domain.NoteIncorrectAmount)
			return nil
		}

		var externalID *string
		if id := strings.TrimSpace(req.ClickTransID); id != "" {
			bound, err := s.repo.FindByExternalTransID(ctx, tx, id)
			if err != nil {
				return err
			}
			if bound != nil && bound.ID != txn.ID {
				return errDuplicateExternalID
			}
			externalID = &id
		}

		ok, err := s.repo.TransitionStatus(ctx, tx, txn.ID, domain.StatusWaiting, domain.StatusPrepared,
			domain.TransitionUpdates{ExternalTransID: externalID}, s.clock.Now())
		if err != nil {
			if db.IsDuplicateKeyErr(err) {
				return errDuplicateExternalID
			}
			return err
		}
		if !ok {
			resp = rejectPrepare(resp, domain.CodeAlreadyProcessed, domain.NoteAlreadyProcessed)
			return nil
		}

		txn.Status = domain.StatusPrepared
		txn.ExternalTransID = externalID
		prepared = txn
		resp.MerchantPrepareID = txn.ID.Int64()
		resp.Error = domain.CodeSuccess
		resp.ErrorNote = domain.NoteSuccess
		return nil
	})
	if err != nil {
		if errors.Is(err, errDuplicateExternalID) {
			s.log.Warn("click_trans_id already bound to another transaction",
				zap.String("click_trans_id", req.ClickTransID),
				zap.String("merchant_trans_id", req.MerchantTransID),
			)
			return rejectPrepare(resp, domain.CodeAlreadyProcessed, domain.NoteAlreadyProcessed)
		}
		s.log.Error("prepare failed", zap.String("merchant_trans_id", req.MerchantTransID), zap.Error(err))
		return rejectPrepare(resp, domain.CodeInternal, domain.NoteInternal)
	}

	if prepared != nil {
		s.writeAudit(ctx, "click.prepared", prepared, map[string]any{
			"click_trans_id": req.ClickTransID,
		})
	}
	return resp
}

// Complete settles or cancels a prepared transaction. Settlement and the
// payable projection commit together.
func (s *Service) Complete(ctx context.Context, req domain.CompleteRequest) (resp domain.CompleteResponse) {
	resp = domain.CompleteResponse{
		ClickTransID:    req.ClickTransID,
		MerchantTransID: req.MerchantTransID,
	}
	defer func() {
		s.obsMetrics.RecordClickCallback(ctx, "complete", resp.Error)
	}()

	if err := s.verifier.VerifyComplete(req); err != nil {
		s.log.Warn("complete signature check failed", zap.String("merchant_trans_id", req.MerchantTransID))
		return rejectComplete(resp, domain.CodeSignFailed, domain.NoteSignFailed)
	}

	prepareID, err := strconv.ParseInt(strings.TrimSpace(req.MerchantPrepareID), 10, 64)
	if err != nil || prepareID <= 0 {
		return rejectComplete(resp, domain.CodeNotFoundComplete, domain.NoteNotFound)
	}

	release := s.guard.Acquire(ctx, req.MerchantTransID)
	defer release()

	var (
		settled     *domain.Transaction
		auditAction string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := s.repo.FindByIDAndMerchantTransID(ctx, tx, snowflake.ID(prepareID), req.MerchantTransID, true)
		if err != nil {
			return err
		}
		if txn == nil {
			resp = rejectComplete(resp, domain.CodeNotFoundComplete, domain.NoteNotFound)
			return nil
		}

		switch txn.Status {
		case domain.StatusCompleted:
			resp = rejectComplete(resp, domain.CodeAlreadyProcessed, domain.NoteAlreadyPaid)
			return nil
		case domain.StatusCancelled:
			resp = rejectComplete(resp, domain.CodeCancelled, domain.NoteTxCancelled)
			return nil
		case domain.StatusPrepared:
		default:
			resp = rejectComplete(resp, domain.CodeNotFoundComplete, domain.NoteNotFound)
			return nil
		}

		if !amountMatches(txn.Amount, req.Amount) {
			resp = rejectComplete(resp, domain.CodeIncorrectAmount, domain.NoteIncorrectAmount)
			return nil
		}
		if req.Action != domain.ActionComplete {
			resp = rejectComplete(resp, domain.CodeUnknownAction, domain.NoteUnknownAction)
			return nil
		}

		now := s.clock.Now()
		if strings.TrimSpace(req.Error) == "0" {
			ok, err := s.repo.TransitionStatus(ctx, tx, txn.ID, domain.StatusPrepared, domain.StatusCompleted,
				domain.TransitionUpdates{}, now)
			if err != nil {
				return err
			}
			if !ok {
				resp = rejectComplete(resp, domain.CodeAlreadyProcessed, domain.NoteAlreadyPaid)
				return nil
			}
			txn.Status = domain.StatusCompleted
			txn.UpdatedAt = now

			if _, err := s.registry.Project(ctx, tx, txn.Payable()); err != nil {
				return err
			}
			if err := s.enqueue(ctx, tx, outboxdomain.EventPaymentCompleted, txn, req); err != nil {
				return err
			}

			settled = txn
			auditAction = "click.completed"
			resp.MerchantConfirmID = txn.ID.Int64()
			resp.Error = domain.CodeSuccess
			resp.ErrorNote = domain.NoteSuccess
			return nil
		}

		extra := make(map[string]any, len(txn.ExtraData)+2)
		for k, v := range txn.ExtraData {
			extra[k] = v
		}
		extra["cancel_error_code"] = req.Error
		if note := strings.TrimSpace(req.ErrorNote); note != "" {
			extra["cancel_error_note"] = note
		}

		ok, err := s.repo.TransitionStatus(ctx, tx, txn.ID, domain.StatusPrepared, domain.StatusCancelled,
			domain.TransitionUpdates{ExtraData: extra}, now)
		if err != nil {
			return err
		}
		if !ok {
			resp = rejectComplete(resp, domain.CodeAlreadyProcessed, domain.NoteAlreadyProcessed)
			return nil
		}
		txn.Status = domain.StatusCancelled
		txn.ExtraData = datatypes.JSONMap(extra)
		txn.UpdatedAt = now

		if err := s.enqueue(ctx, tx, outboxdomain.EventPaymentCancelled, txn, req); err != nil {
			return err
		}

		settled = txn
		auditAction = "click.cancelled"
		resp = rejectComplete(resp, domain.CodeCancelled, domain.NoteCancelled)
		return nil
	})
	if err != nil {
		s.log.Error("complete failed",
			zap.String("merchant_trans_id", req.MerchantTransID),
			zap.String("merchant_prepare_id", req.MerchantPrepareID),
			zap.Error(err),
		)
		return rejectComplete(domain.CompleteResponse{
			ClickTransID:    req.ClickTransID,
			MerchantTransID: req.MerchantTransID,
		}, domain.CodeInternal, domain.NoteInternal)
	}

	if settled != nil {
		meta := map[string]any{"click_trans_id": req.ClickTransID}
		if settled.Status == domain.StatusCancelled {
			meta["cancel_error_code"] = req.Error
		}
		s.writeAudit(ctx, auditAction, settled, meta)
	}
	return resp
}

// Open creates a waiting transaction on the caller's transaction handle.
func (s *Service) Open(ctx context.Context, db *gorm.DB, req domain.OpenRequest) (*domain.Transaction, error) {
	kind := strings.TrimSpace(req.Kind)
	if kind == "" || strings.ContainsAny(kind, " _") {
		return nil, domain.ErrInvalidKind
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	exists, err := s.registry.Exists(ctx, db, req.Payable)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrPayableNotFound
	}

	now := s.clock.Now()
	txn := &domain.Transaction{
		ID:              s.genID.Generate(),
		MerchantTransID: fmt.Sprintf("%s_%s_%d", kind, req.Payable.ID, now.Unix()),
		Amount:          req.Amount.Round(2),
		Status:          domain.StatusWaiting,
		PayableType:     req.Payable.Type,
		PayableID:       req.Payable.ID,
		UserID:          req.UserID,
		ExtraData:       datatypes.JSONMap{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, db, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// PaymentURL builds the hosted checkout link for txn.
func (s *Service) PaymentURL(txn *domain.Transaction) string {
	if txn == nil {
		return ""
	}
	// The pay link identifies the merchant by its user id when one is issued.
	merchantID := s.gateway.MerchantUserID
	if merchantID == "" {
		merchantID = s.gateway.MerchantID
	}
	params := []struct{ key, value string }{
		{"service_id", s.gateway.ServiceID},
		{"merchant_id", merchantID},
		{"amount", txn.Amount.StringFixed(2)},
		{"transaction_param", txn.MerchantTransID},
		{"return_url", s.gateway.ReturnURL},
	}

	var b strings.Builder
	b.WriteString(s.gateway.PayURL)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

func (s *Service) Status(ctx context.Context, merchantTransID string) (*domain.PaymentStatus, error) {
	merchantTransID = strings.TrimSpace(merchantTransID)
	if merchantTransID == "" {
		return nil, domain.ErrTransactionNotFound
	}
	txn, err := s.repo.FindByMerchantTransID(ctx, s.db, merchantTransID, false)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, domain.ErrTransactionNotFound
	}
	status := paymentStatus(*txn)
	return &status, nil
}

// History lists every payment attempt for a payable, newest first.
func (s *Service) History(ctx context.Context, ref payable.Ref) ([]domain.PaymentStatus, error) {
	txns, err := s.repo.ListByPayable(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}
	history := make([]domain.PaymentStatus, 0, len(txns))
	for _, txn := range txns {
		history = append(history, paymentStatus(txn))
	}
	return history, nil
}

func paymentStatus(txn domain.Transaction) domain.PaymentStatus {
	return domain.PaymentStatus{
		MerchantTransID: txn.MerchantTransID,
		Status:          txn.Status,
		Amount:          txn.Amount,
		PayableType:     txn.PayableType,
		PayableID:       txn.PayableID,
		Final:           txn.Status.Terminal(),
		UpdatedAt:       txn.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Service) enqueue(ctx context.Context, tx *gorm.DB, eventType string, txn *domain.Transaction, req domain.CompleteRequest) error {
	data := map[string]any{
		"transaction_id":    txn.ID.String(),
		"merchant_trans_id": txn.MerchantTransID,
		"click_trans_id":    req.ClickTransID,
		"amount":            txn.Amount.StringFixed(2),
		"status":            string(txn.Status),
		"payable_type":      string(txn.PayableType),
		"payable_id":        txn.PayableID.String(),
	}
	if txn.UserID != nil {
		data["user_id"] = txn.UserID.String()
	}
	if txn.Status == domain.StatusCancelled {
		data["cancel_error_code"] = req.Error
	}
	return s.outbox.Enqueue(ctx, tx, outboxdomain.Message{
		EventType:   eventType,
		AggregateID: txn.MerchantTransID,
		Data:        data,
	})
}

func (s *Service) writeAudit(ctx context.Context, action string, txn *domain.Transaction, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata["merchant_trans_id"] = txn.MerchantTransID
	metadata["payable_type"] = string(txn.PayableType)
	metadata["payable_id"] = txn.PayableID.String()
	metadata["amount"] = txn.Amount.StringFixed(2)
	metadata["status"] = string(txn.Status)

	targetID := txn.ID.String()
	if err := s.auditSvc.AuditLog(ctx, auditdomain.ActorTypeGateway, nil, action, auditTargetType, &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

// amountMatches compares numerically; "1000" equals "1000.00".
func amountMatches(stored decimal.Decimal, presented string) bool {
	parsed, err := decimal.NewFromString(strings.TrimSpace(presented))
	if err != nil {
		return false
	}
	return stored.Equal(parsed)
}

func rejectPrepare(resp domain.PrepareResponse, code int, note string) domain.PrepareResponse {
	resp.MerchantPrepareID = 0
	resp.Error = code
	resp.ErrorNote = note
	return resp
}

func rejectComplete(resp domain.CompleteResponse, code int, note string) domain.CompleteResponse {
	resp.MerchantConfirmID = 0
	resp.Error = code
	resp.ErrorNote = note
	return resp
}
