package main

import (
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/smallbiznis/chainpay/internal/claim"
	"github.com/smallbiznis/chainpay/internal/clock"
	"github.com/smallbiznis/chainpay/internal/config"
	"github.com/smallbiznis/chainpay/internal/event"
	"github.com/smallbiznis/chainpay/internal/export"
	"github.com/smallbiznis/chainpay/internal/logger"
	"github.com/smallbiznis/chainpay/internal/migration"
	"github.com/smallbiznis/chainpay/internal/observability/metrics"
	"github.com/smallbiznis/chainpay/internal/payment"
	"github.com/smallbiznis/chainpay/internal/rates"
	"github.com/smallbiznis/chainpay/internal/reconcile"
	"github.com/smallbiznis/chainpay/internal/server"
	"github.com/smallbiznis/chainpay/internal/verifier"
	"github.com/smallbiznis/chainpay/pkg/db"
)

var version = "dev"

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "chainpay",
		Short:         "Crypto payment confirmation service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newConfirmCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// baseModules is everything every command needs: config, logging,
// database with migrations applied, and the domain repositories.
func baseModules() []fx.Option {
	return []fx.Option{
		fx.NopLogger,
		config.Module,
		logger.Module,
		db.Module,
		clock.Module,
		fx.Provide(func() (*snowflake.Node, error) {
			return snowflake.NewNode(1)
		}),
		fx.Provide(func(cfg config.Config) *metrics.ReconcileMetrics {
			return metrics.ReconcileWithConfig(metrics.Config{
				ServiceName: "chainpay",
				Environment: cfg.Environment,
			})
		}),
		event.Module,
		payment.Module,
		claim.Module,
		verifier.Module,
		rates.Module,
		reconcile.Module,
		export.Module,
		server.Module,
		fx.Invoke(func(conn *gorm.DB) error {
			return migration.RunMigrations(conn)
		}),
	}
}

// runOnce builds the fx graph and executes the given invoke function
// synchronously; it is the shell for one-shot commands.
func runOnce(invoke any) error {
	app := fx.New(append(baseModules(), fx.Invoke(invoke))...)
	return app.Err()
}
