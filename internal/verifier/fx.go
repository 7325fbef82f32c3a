package verifier

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/chainpay/internal/config"
)

var Module = fx.Module("verifier",
	fx.Provide(
		func(cfg config.Config, logger *zap.Logger) Verifier {
			return NewClient(cfg.Verifier, logger)
		},
		func(cfg config.Config) *Builder {
			return NewBuilder(cfg.Payment)
		},
	),
)
