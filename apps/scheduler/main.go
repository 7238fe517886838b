package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicenotify/internal/clock"
	"github.com/smallbiznis/invoicenotify/internal/config"
	"github.com/smallbiznis/invoicenotify/internal/ledger"
	"github.com/smallbiznis/invoicenotify/internal/migration"
	"github.com/smallbiznis/invoicenotify/internal/notifier"
	"github.com/smallbiznis/invoicenotify/internal/observability"
	"github.com/smallbiznis/invoicenotify/internal/providers"
	"github.com/smallbiznis/invoicenotify/internal/ratelimit"
	"github.com/smallbiznis/invoicenotify/internal/recipient"
	"github.com/smallbiznis/invoicenotify/internal/rejection"
	"github.com/smallbiznis/invoicenotify/internal/scheduler"
	"github.com/smallbiznis/invoicenotify/internal/tenant"
	"github.com/smallbiznis/invoicenotify/internal/tenantdb"
	"github.com/smallbiznis/invoicenotify/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		ratelimit.Module,

		// Domain services required by scheduler
		tenant.Module,
		tenantdb.Module,
		rejection.Module,
		ledger.Module,
		recipient.Module,
		providers.Module,
		notifier.Module,

		fx.Provide(scheduler.ProvideConfig),
		fx.Provide(scheduler.ProvideRunner),
		fx.Provide(scheduler.New),

		// No server module. Starting this binary is the opt-in, so
		// SCHEDULER_ENABLED is not consulted.
		fx.Invoke(scheduler.Bind),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
