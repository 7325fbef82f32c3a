package event

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/chainpay/internal/event/repository"
)

var Module = fx.Module("event",
	fx.Provide(repository.Provide),
)
