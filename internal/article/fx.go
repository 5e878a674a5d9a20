package article

import (
	"github.com/smallbiznis/journalpay/internal/article/repository"
	"github.com/smallbiznis/journalpay/internal/article/service"
	"github.com/smallbiznis/journalpay/internal/payable"
	"go.uber.org/fx"
)

var Module = fx.Module("article.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(payable.AsVariant(service.NewVariant)),
)
