package payment

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/chainpay/internal/payment/repository"
)

var Module = fx.Module("payment",
	fx.Provide(repository.Provide),
)
