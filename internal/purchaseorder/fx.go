package purchaseorder

import (
	"github.com/smallbiznis/purchasing/internal/purchaseorder/repository"
	"github.com/smallbiznis/purchasing/internal/purchaseorder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchaseorder.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
