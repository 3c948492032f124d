package reconciliation

import (
	"github.com/smallbiznis/purchasing/internal/events"
	"github.com/smallbiznis/purchasing/internal/reconciliation/engine"
	"github.com/smallbiznis/purchasing/internal/reconciliation/repository"
	"github.com/smallbiznis/purchasing/internal/reconciliation/service"
	"github.com/smallbiznis/purchasing/internal/reconciliation/subscriber"
	"go.uber.org/fx"
)

var Module = fx.Module("reconciliation",
	fx.Provide(engine.New),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(subscriber.New),
	fx.Invoke(func(s *subscriber.PaymentStatusSubscriber, d *events.Dispatcher) {
		s.Register(d)
	}),
)
