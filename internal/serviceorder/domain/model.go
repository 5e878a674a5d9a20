package domain

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/journalpay/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusUDCAssigned    Status = "udc_assigned"
	StatusPrinting       Status = "printing"
	StatusShipped        Status = "shipped"
)

func ParseStatus(value string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(value))); s {
	case StatusPendingPayment, StatusInProgress, StatusCompleted, StatusCancelled,
		StatusUDCAssigned, StatusPrinting, StatusShipped:
		return s, true
	default:
		return "", false
	}
}

type ServiceOrder struct {
	ID               snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID           snowflake.ID      `json:"user_id"`
	ServiceID        snowflake.ID      `json:"service_id"`
	Status           Status            `json:"status"`
	FormData         datatypes.JSONMap `json:"form_data"`
	UDCCode          string            `json:"udc_code" gorm:"column:udc_code"`
	AssignedWriterID *snowflake.ID     `json:"assigned_writer_id,omitempty"`
	PrintingStatus   string            `json:"printing_status"`
	TrackingNumber   string            `json:"tracking_number"`
	ShippedDate      *time.Time        `json:"shipped_date,omitempty"`
	CalculatedPrice  decimal.Decimal   `json:"calculated_price"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (ServiceOrder) TableName() string { return "service_orders" }

type PlaceRequest struct {
	UserID    snowflake.ID   `json:"-"`
	ServiceID snowflake.ID   `json:"service_id"`
	FormData  map[string]any `json:"form_data"`
}

type PlaceResult struct {
	Order           *ServiceOrder `json:"order"`
	PaymentURL      string        `json:"payment_url"`
	MerchantTransID string        `json:"merchant_trans_id"`
}

type ListUDCQueueRequest struct {
	pagination.Pagination
}

type ListUDCQueueResponse struct {
	PageInfo pagination.PageInfo `json:"page_info"`
	Orders   []ServiceOrder      `json:"orders"`
}

// UpdatePrintingRequest leaves a field untouched when it is empty.
type UpdatePrintingRequest struct {
	Status         string `json:"status"`
	PrintingStatus string `json:"printing_status"`
	TrackingNumber string `json:"tracking_number"`
}

type ListFilter struct {
	ServiceID snowflake.ID
	Status    Status
	Cursor    *pagination.Position
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *ServiceOrder) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ServiceOrder, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, expected Status, values map[string]any) (bool, error)
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*ServiceOrder, error)
}

type Service interface {
	Place(ctx context.Context, req PlaceRequest) (*PlaceResult, error)
	Get(ctx context.Context, id snowflake.ID) (*ServiceOrder, error)
	ListUDCQueue(ctx context.Context, req ListUDCQueueRequest) (ListUDCQueueResponse, error)
	AssignUDC(ctx context.Context, orderID, writerID snowflake.ID, code string) (*ServiceOrder, error)
	UpdatePrinting(ctx context.Context, orderID snowflake.ID, req UpdatePrintingRequest) (*ServiceOrder, error)
	AssignWriter(ctx context.Context, orderID, writerID snowflake.ID) (*ServiceOrder, error)
}

var (
	ErrNotFound              = errors.New("service_order_not_found")
	ErrInvalidService        = errors.New("invalid_service")
	ErrInvalidUser           = errors.New("invalid_user")
	ErrInvalidForm           = errors.New("invalid_form_data")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrInvalidTransition     = errors.New("invalid_status_transition")
	ErrUDCCodeRequired       = errors.New("udc_code_required")
	ErrNotUDCOrder           = errors.New("not_udc_order")
	ErrNotPrintedPublication = errors.New("not_printed_publication")
	ErrWriterNotFound        = errors.New("writer_not_found")
	ErrInvalidPageToken      = errors.New("invalid_page_token")
)

// FormError lists the rejected form_data fields and matches ErrInvalidForm.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return ErrInvalidForm.Error() + ": " + strings.Join(keys, ", ")
}

func (e *FormError) Is(target error) bool { return target == ErrInvalidForm }
