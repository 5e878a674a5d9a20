// Package payable links a payment transaction to the entity it pays for and
// applies the status projection when the payment completes.
package payable

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Type tags a payable kind.
type Type string

const (
	TypeArticle      Type = "article"
	TypeServiceOrder Type = "service_order"
)

// Ref points at exactly one payable row.
type Ref struct {
	Type Type         `json:"type"`
	ID   snowflake.ID `json:"id"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// Variant is implemented by each payable kind. Both methods run on the
// handle they are given so they join the caller's transaction.
type Variant interface {
	Type() Type
	Exists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

var (
	ErrUnknownType   = errors.New("unknown_payable_type")
	ErrDuplicateType = errors.New("duplicate_payable_type")
	ErrNotFound      = errors.New("payable_not_found")
)

func normalizeType(t Type) Type {
	return Type(strings.ToLower(strings.TrimSpace(string(t))))
}
