package notifier

import (
	"github.com/smallbiznis/invoicenotify/internal/providers/whatsapp"
	"go.uber.org/fx"
)

var Module = fx.Module("notifier",
	fx.Provide(func(c *whatsapp.Client) Sender { return c }),
	fx.Provide(New),
)
