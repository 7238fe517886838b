package rejection

import (
	"github.com/smallbiznis/invoicenotify/internal/rejection/repository"
	"github.com/smallbiznis/invoicenotify/internal/rejection/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rejection.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
