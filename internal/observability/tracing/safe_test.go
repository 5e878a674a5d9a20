package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsBlockedAndEmpty(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("sign_string", "abc"),
		attribute.String("http.route", "/api/click/prepare"),
		attribute.String("http.method", ""),
		attribute.Int("http.status_code", 200),
	)
	assert.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorKeepsOuterMessage(t *testing.T) {
	err := fmt.Errorf("load transaction: %w", errors.New("pq: password authentication failed"))
	assert.EqualError(t, SafeError(err), "load transaction")
	assert.Nil(t, SafeError(nil))
}
