package observability

import (
	"github.com/smallbiznis/invoicenotify/internal/observability/logger"
	"github.com/smallbiznis/invoicenotify/internal/observability/metrics"
	"github.com/smallbiznis/invoicenotify/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Logger,
		logger.New,
		Config.Tracing,
		tracing.NewProvider,
		Config.Metrics,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.SchedulerWithConfig,
		metrics.NotifierWithConfig,
	),
	fx.Invoke(ensureTracingProvider),
	fx.Invoke(ensurePrometheusMetrics),
)

// The invokes force the providers and the prometheus singletons to be built
// at startup rather than on first use.
func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func ensurePrometheusMetrics(_ *metrics.SchedulerMetrics, _ *metrics.NotifierMetrics) {}
