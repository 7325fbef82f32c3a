package rates

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/chainpay/internal/config"
)

var Module = fx.Module("rates",
	fx.Provide(func(cfg config.Config, logger *zap.Logger) *Client {
		return NewClient(cfg.Rates, logger)
	}),
)
