package providers

import (
	"github.com/smallbiznis/invoicenotify/internal/providers/whatsapp"
	"github.com/smallbiznis/invoicenotify/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	fx.Provide(func(l *ratelimit.DispatchLimiter) whatsapp.Limiter { return l }),
	whatsapp.Module,
)
