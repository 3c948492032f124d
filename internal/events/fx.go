package events

import (
	"context"
	"time"

	"github.com/smallbiznis/purchasing/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultPollInterval = 5 * time.Second

var Module = fx.Module("events",
	fx.Provide(NewOutbox),
	fx.Provide(NewDispatcher),
)

// PollerModule runs the dispatcher loop for the lifetime of the app.
var PollerModule = fx.Module("events.poller",
	fx.Invoke(runDispatcher),
)

func runDispatcher(lc fx.Lifecycle, cfg config.Config, dispatcher *Dispatcher) {
	interval := cfg.OutboxPollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				for {
					if _, err := dispatcher.ProcessPending(ctx); err != nil && ctx.Err() == nil {
						dispatcher.log.Error("outbox poll failed", zap.Error(err))
					}
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
