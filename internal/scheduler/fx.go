package scheduler

import (
	"context"

	"github.com/smallbiznis/invoicenotify/internal/config"
	"github.com/smallbiznis/invoicenotify/internal/notifier"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(ProvideRunner),
	fx.Provide(New),
	fx.Invoke(Register),
)

// ProvideRunner exposes the notifier as the scheduler's job runner.
func ProvideRunner(n *notifier.Notifier) Runner { return n }

// Register hooks the loop into the app lifecycle when SCHEDULER_ENABLED is
// set. The dedicated scheduler binary uses Bind directly.
func Register(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if !cfg.Schedule.Enabled {
		return
	}
	Bind(lc, sched)
}

func Bind(lc fx.Lifecycle, sched *Scheduler) {
	var stop func(context.Context) error
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			stop = sched.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if stop == nil {
				return nil
			}
			return stop(ctx)
		},
	})
}
