package payable

import (
	"context"
	"fmt"

	"github.com/smallbiznis/journalpay/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Registry dispatches on the payable type tag.
type Registry struct {
	variants map[Type]Variant
	log      *zap.Logger
	metrics  *metrics.Metrics
}

type RegistryParams struct {
	fx.In

	Log        *zap.Logger
	Variants   []Variant        `group:"payables"`
	ObsMetrics *metrics.Metrics `optional:"true"`
}

func NewRegistry(p RegistryParams) (*Registry, error) {
	r := &Registry{
		variants: make(map[Type]Variant, len(p.Variants)),
		log:      p.Log.Named("payable.registry"),
		metrics:  p.ObsMetrics,
	}
	for _, v := range p.Variants {
		if err := r.register(v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(v Variant) error {
	if v == nil {
		return nil
	}
	t := normalizeType(v.Type())
	if _, exists := r.variants[t]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, t)
	}
	r.variants[t] = v
	return nil
}

func (r *Registry) Resolve(t Type) (Variant, bool) {
	v, ok := r.variants[normalizeType(t)]
	return v, ok
}

// Exists reports whether ref names a live payable.
func (r *Registry) Exists(ctx context.Context, db *gorm.DB, ref Ref) (bool, error) {
	v, ok := r.Resolve(ref.Type)
	if !ok {
		return false, ErrUnknownType
	}
	if ref.ID <= 0 {
		return false, nil
	}
	return v.Exists(ctx, db, ref.ID)
}

// Project marks the payable paid. An unregistered type is skipped and
// reported as not projected.
func (r *Registry) Project(ctx context.Context, db *gorm.DB, ref Ref) (bool, error) {
	v, ok := r.Resolve(ref.Type)
	if !ok {
		r.log.Warn("no payable variant registered, skipping projection",
			zap.String("payable_type", string(ref.Type)),
			zap.String("payable_id", ref.ID.String()),
		)
		r.metrics.RecordProjectionSkipped(ctx, string(ref.Type))
		return false, nil
	}
	if err := v.MarkPaid(ctx, db, ref.ID); err != nil {
		return false, fmt.Errorf("project %s: %w", ref, err)
	}
	r.metrics.RecordProjection(ctx, string(v.Type()))
	return true, nil
}
