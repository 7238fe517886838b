package recipient

import (
	"github.com/smallbiznis/invoicenotify/internal/recipient/repository"
	"github.com/smallbiznis/invoicenotify/internal/recipient/service"
	"go.uber.org/fx"
)

var Module = fx.Module("recipient.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
