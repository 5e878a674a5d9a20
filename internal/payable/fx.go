package payable

import "go.uber.org/fx"

var Module = fx.Module("payable",
	fx.Provide(NewRegistry),
)

// AsVariant registers a constructor's result in the payables group.
func AsVariant(f any) any {
	return fx.Annotate(f, fx.As(new(Variant)), fx.ResultTags(`group:"payables"`))
}
