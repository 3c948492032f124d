package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/purchasing/internal/audit"
	"github.com/smallbiznis/purchasing/internal/clock"
	"github.com/smallbiznis/purchasing/internal/config"
	"github.com/smallbiznis/purchasing/internal/events"
	"github.com/smallbiznis/purchasing/internal/lock"
	"github.com/smallbiznis/purchasing/internal/logger"
	"github.com/smallbiznis/purchasing/internal/migration"
	"github.com/smallbiznis/purchasing/internal/payment"
	"github.com/smallbiznis/purchasing/internal/purchaseorder"
	"github.com/smallbiznis/purchasing/internal/ratelimit"
	"github.com/smallbiznis/purchasing/internal/reconciliation"
	"github.com/smallbiznis/purchasing/internal/server"
	"github.com/smallbiznis/purchasing/internal/supplier"
	"github.com/smallbiznis/purchasing/pkg/db"
	"github.com/smallbiznis/purchasing/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		ratelimit.Module,
		migration.Module,

		events.Module,
		supplier.Module,
		purchaseorder.Module,
		payment.Module,
		reconciliation.Module,
		audit.Module,

		events.PollerModule,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
