package claim

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/chainpay/internal/claim/repository"
)

var Module = fx.Module("claim",
	fx.Provide(repository.Provide),
)
