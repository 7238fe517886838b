package whatsapp

import "go.uber.org/fx"

var Module = fx.Module("whatsapp.provider",
	fx.Provide(New),
)
