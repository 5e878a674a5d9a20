package context

import (
	stdctx "context"
	"strings"
)

type requestIDKey struct{}
type userIDKey struct{}

// WithRequestID stores the request correlation id.
func WithRequestID(ctx stdctx.Context, requestID string) stdctx.Context {
	requestID = strings.TrimSpace(requestID)
	if ctx == nil || requestID == "" {
		return ctx
	}
	return stdctx.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx stdctx.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithUserID stores the acting user id for log correlation.
func WithUserID(ctx stdctx.Context, userID string) stdctx.Context {
	userID = strings.TrimSpace(userID)
	if ctx == nil || userID == "" {
		return ctx
	}
	return stdctx.WithValue(ctx, userIDKey{}, userID)
}

func UserIDFromContext(ctx stdctx.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(userIDKey{}).(string)
	return value
}
