package serviceorder

import (
	"github.com/smallbiznis/journalpay/internal/payable"
	"github.com/smallbiznis/journalpay/internal/serviceorder/repository"
	"github.com/smallbiznis/journalpay/internal/serviceorder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("serviceorder.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(payable.AsVariant(service.NewVariant)),
)
