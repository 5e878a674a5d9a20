package authorization

import (
	"context"
	"errors"
)

const (
	RoleClient         = "client"
	RoleWriter         = "writer"
	RoleJournalManager = "journal_manager"
	RoleAccountant     = "accountant"
	RoleAdmin          = "admin"
)

const (
	ObjectArticle      = "article"
	ObjectServiceOrder = "service_order"
	ObjectPayment      = "payment"
	ObjectReport       = "report"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionArticleSubmit = "article.submit"
	ActionArticleRevise = "article.revise"
	ActionArticleReview = "article.review"

	ActionOrderPlace       = "service_order.place"
	ActionUDCView          = "udc.view"
	ActionUDCAssign        = "udc.assign"
	ActionPrintingUpdate   = "printing.update"
	ActionPrintingAssignee = "printing.assign_writer"

	ActionPaymentView = "payment.view"

	ActionDashboardView = "dashboard.view"
	ActionFinancialView = "financial.view"

	ActionAuditLogView = "audit_log.view"
)

type Service interface {
	Authorize(ctx context.Context, role string, object string, action string) error
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
