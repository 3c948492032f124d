package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/purchasing/internal/audit/domain"
	"github.com/smallbiznis/purchasing/internal/config"
	paymentdomain "github.com/smallbiznis/purchasing/internal/payment/domain"
	purchaseorderdomain "github.com/smallbiznis/purchasing/internal/purchaseorder/domain"
	"github.com/smallbiznis/purchasing/internal/ratelimit"
	reconciliationservice "github.com/smallbiznis/purchasing/internal/reconciliation/service"
	vendordomain "github.com/smallbiznis/purchasing/internal/supplier/domain"
	"github.com/smallbiznis/purchasing/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *telemetry.Metrics `optional:"true"`
}

func NewEngine(p EngineParams) *gin.Engine {
	if p.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Correlation())
	r.Use(Actor())
	r.Use(Tracing())
	r.Use(RequestLogger(p.Log.Named("http")))
	r.Use(Metrics(p.Metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Engine         *gin.Engine
	Log            *zap.Logger
	Vendors        vendordomain.Service
	Orders         purchaseorderdomain.Service
	Payments       paymentdomain.Service
	Reconciliation *reconciliationservice.Service
	Audit          auditdomain.Service         `optional:"true"`
	Limiter        *ratelimit.RecomputeLimiter `optional:"true"`
	Metrics        *telemetry.Metrics          `optional:"true"`
}

type Server struct {
	engine            *gin.Engine
	log               *zap.Logger
	vendorSvc         vendordomain.Service
	orderSvc          purchaseorderdomain.Service
	paymentSvc        paymentdomain.Service
	reconciliationSvc *reconciliationservice.Service
	auditSvc          auditdomain.Service
	limiter           *ratelimit.RecomputeLimiter
	metrics           *telemetry.Metrics
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:            p.Engine,
		log:               p.Log.Named("http.server"),
		vendorSvc:         p.Vendors,
		orderSvc:          p.Orders,
		paymentSvc:        p.Payments,
		reconciliationSvc: p.Reconciliation,
		auditSvc:          p.Audit,
		limiter:           p.Limiter,
		metrics:           p.Metrics,
	}
	s.registerAPIRoutes()
	return s
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	vendors := api.Group("/vendors")
	vendors.GET("", s.SearchVendors)
	vendors.POST("", s.CreateVendor)
	vendors.GET("/:id", s.GetVendor)
	vendors.POST("/:id/contacts", s.AddVendorContact)
	vendors.POST("/:id/bank-accounts", s.AddVendorBankAccount)
	vendors.GET("/:id/bank-account", s.GetVendorMainBankAccount)
	vendors.GET("/:id/bank-accounts", s.ListVendorBankAccountNames)
	vendors.GET("/:id/purchase-contact", s.GetVendorPurchaseContact)

	orders := api.Group("/orders")
	orders.POST("", s.CreateOrder)
	orders.GET("/next-number", s.PreviewNextOrderName)
	orders.GET("/:id", s.GetOrder)
	orders.POST("/:id/confirm", s.ConfirmOrder)
	orders.POST("/:id/receipts", s.ReceiveOrderLines)
	orders.POST("/:id/recompute-payment-status", s.RecomputeRateLimit(), s.RecomputeOrderPaymentStatus)
	orders.POST("/:id/treasury-approval", s.ApproveOrderByTreasury)
	orders.POST("/:id/payment-dates", s.RegisterOrderPaymentDate)
	orders.GET("/:id/supplier-bank", s.GetOrderSupplierBank)
	orders.GET("/:id/purchase-contact", s.GetOrderPurchaseContact)

	payments := api.Group("/payments")
	payments.POST("", s.CreatePayment)
	payments.GET("/:id", s.GetPayment)
	payments.PATCH("/:id", s.UpdatePayment)
	payments.DELETE("/:id", s.DeletePayment)

	api.GET("/audit-logs", s.ListAuditLogs)
}
