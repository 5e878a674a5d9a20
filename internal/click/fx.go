package click

import (
	"strings"

	"github.com/smallbiznis/journalpay/internal/click/repository"
	"github.com/smallbiznis/journalpay/internal/click/service"
	"github.com/smallbiznis/journalpay/internal/click/signature"
	"github.com/smallbiznis/journalpay/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("click.service",
	fx.Provide(provideVerifier),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

// provideVerifier refuses to start without a merchant secret.
func provideVerifier(cfg config.Config) (*signature.Verifier, error) {
	if strings.TrimSpace(cfg.Click.SecretKey) == "" {
		return nil, config.ErrClickSecretMissing
	}
	return signature.NewVerifier(cfg.Click.SecretKey), nil
}
