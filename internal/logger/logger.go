// Package logger provides the shared zap logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/smallbiznis/chainpay/internal/config"
)

// New builds the process logger. Production gets JSON output at info;
// everything else gets the development console encoder at debug.
func New(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		zcfg := zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return zcfg.Build()
	}
	return zap.NewDevelopment()
}
