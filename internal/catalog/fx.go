package catalog

import (
	"github.com/smallbiznis/journalpay/internal/catalog/repository"
	"github.com/smallbiznis/journalpay/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
