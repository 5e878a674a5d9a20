package server

import (
	"errors"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	articledomain "github.com/smallbiznis/journalpay/internal/article/domain"
	auditdomain "github.com/smallbiznis/journalpay/internal/audit/domain"
	"github.com/smallbiznis/journalpay/internal/authorization"
	catalogdomain "github.com/smallbiznis/journalpay/internal/catalog/domain"
	clickdomain "github.com/smallbiznis/journalpay/internal/click/domain"
	"github.com/smallbiznis/journalpay/internal/ratelimit"
	serviceorderdomain "github.com/smallbiznis/journalpay/internal/serviceorder/domain"
	"github.com/smallbiznis/journalpay/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		var limited *ratelimit.LimitedError
		if errors.As(lastErr.Err, &limited) && limited.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(limited)))
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var formErr *serviceorderdomain.FormError
	if errors.As(err, &formErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  formValidationErrors(formErr),
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded on the request log line.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func formValidationErrors(formErr *serviceorderdomain.FormError) []ValidationError {
	fields := make([]string, 0, len(formErr.Fields))
	for field := range formErr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]ValidationError, 0, len(fields))
	for _, field := range fields {
		name := "form_data"
		if field != "_" {
			name = "form_data." + field
		}
		out = append(out, ValidationError{
			Field:   name,
			Code:    serviceorderdomain.ErrInvalidForm.Error(),
			Message: formErr.Fields[field],
		})
	}
	return out
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, articledomain.ErrInvalidTitle),
		errors.Is(err, articledomain.ErrJournalRequired),
		errors.Is(err, articledomain.ErrInvalidAuthor),
		errors.Is(err, serviceorderdomain.ErrInvalidService),
		errors.Is(err, serviceorderdomain.ErrInvalidUser),
		errors.Is(err, serviceorderdomain.ErrInvalidForm),
		errors.Is(err, serviceorderdomain.ErrInvalidStatus),
		errors.Is(err, serviceorderdomain.ErrUDCCodeRequired),
		errors.Is(err, serviceorderdomain.ErrInvalidPageToken),
		errors.Is(err, catalogdomain.ErrServiceInactive),
		errors.Is(err, clickdomain.ErrInvalidAmount),
		errors.Is(err, clickdomain.ErrInvalidKind),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, pagination.ErrInvalidToken):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidRole),
		errors.Is(err, articledomain.ErrNotAuthor),
		errors.Is(err, articledomain.ErrNotAssignedEditor):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, articledomain.ErrInvalidTransition),
		errors.Is(err, serviceorderdomain.ErrInvalidTransition),
		errors.Is(err, serviceorderdomain.ErrNotUDCOrder),
		errors.Is(err, serviceorderdomain.ErrNotPrintedPublication):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, articledomain.ErrInvalidTransition),
		errors.Is(err, serviceorderdomain.ErrInvalidTransition):
		return "invalid status transition"
	case errors.Is(err, serviceorderdomain.ErrNotUDCOrder):
		return "order is not a udc classification order"
	case errors.Is(err, serviceorderdomain.ErrNotPrintedPublication):
		return "order is not a printed publication"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, articledomain.ErrNotFound),
		errors.Is(err, serviceorderdomain.ErrNotFound),
		errors.Is(err, serviceorderdomain.ErrWriterNotFound),
		errors.Is(err, catalogdomain.ErrJournalNotFound),
		errors.Is(err, catalogdomain.ErrServiceNotFound),
		errors.Is(err, clickdomain.ErrTransactionNotFound),
		errors.Is(err, clickdomain.ErrPayableNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, serviceorderdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, pagination.ErrInvalidToken):
		return "invalid_page_token"
	case errors.Is(err, clickdomain.ErrInvalidAmount):
		return "invalid_amount"
	default:
		return rootCode(err)
	}
}

// rootCode strips wrapping context so "place order: invalid_amount" reports "invalid_amount".
func rootCode(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}

func validationErrorField(code string) string {
	switch {
	case code == "invalid_request":
		return "request"
	case strings.HasPrefix(code, "invalid_"):
		return strings.TrimPrefix(code, "invalid_")
	case strings.HasSuffix(code, "_required"):
		return strings.TrimSuffix(code, "_required")
	default:
		return ""
	}
}

func validationErrorMessage(code string) string {
	switch {
	case code == "invalid_request":
		return "invalid request"
	case strings.HasSuffix(code, "_required"):
		return "is required"
	default:
		return "invalid value"
	}
}

func retryAfterSeconds(limited *ratelimit.LimitedError) int {
	secs := int(math.Ceil(limited.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
