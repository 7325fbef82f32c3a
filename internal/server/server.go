// Package server exposes the customer-facing HTTP API: claim
// submission, payment status and the transaction details shown on the
// checkout page.
package server

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	claimdomain "github.com/smallbiznis/chainpay/internal/claim/domain"
	"github.com/smallbiznis/chainpay/internal/clock"
	"github.com/smallbiznis/chainpay/internal/config"
	eventdomain "github.com/smallbiznis/chainpay/internal/event/domain"
	paymentdomain "github.com/smallbiznis/chainpay/internal/payment/domain"
	"github.com/smallbiznis/chainpay/internal/rates"
)

type Params struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Events   eventdomain.Repository
	Payments paymentdomain.Repository
	Claims   claimdomain.Repository
	Rates    *rates.Client `optional:"true"`
	Node     *snowflake.Node
	Clock    clock.Clock
	Logger   *zap.Logger
}

type Server struct {
	cfg      config.Config
	db       *gorm.DB
	events   eventdomain.Repository
	payments paymentdomain.Repository
	claims   claimdomain.Repository
	rates    *rates.Client
	node     *snowflake.Node
	clock    clock.Clock
	logger   *zap.Logger
}

func New(p Params) *Server {
	return &Server{
		cfg:      p.Config,
		db:       p.DB,
		events:   p.Events,
		payments: p.Payments,
		claims:   p.Claims,
		rates:    p.Rates,
		node:     p.Node,
		clock:    p.Clock,
		logger:   p.Logger.Named("server"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/events/:slug/orders/:order")
	{
		api.GET("/payment", s.GetPaymentStatus)
		api.GET("/transaction-details", s.GetTransactionDetails)
		api.POST("/claims", s.SubmitClaim)
	}
	return r
}

func (s *Server) Health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(503, gin.H{"status": "degraded"})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

// orderPayment resolves the :slug/:order path pair to a payment.
func (s *Server) orderPayment(ctx context.Context, slug, orderCode string) (*paymentdomain.Payment, error) {
	event, err := s.events.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	return s.payments.FindLatestByOrderCode(ctx, s.db, event.ID, orderCode)
}
