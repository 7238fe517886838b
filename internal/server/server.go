package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/invoicenotify/internal/clock"
	"github.com/smallbiznis/invoicenotify/internal/config"
	ledgerdomain "github.com/smallbiznis/invoicenotify/internal/ledger/domain"
	"github.com/smallbiznis/invoicenotify/internal/notifier"
	"github.com/smallbiznis/invoicenotify/internal/observability"
	obsmiddleware "github.com/smallbiznis/invoicenotify/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/invoicenotify/internal/observability/metrics"
	obstracing "github.com/smallbiznis/invoicenotify/internal/observability/tracing"
	"github.com/smallbiznis/invoicenotify/internal/providers/whatsapp"
	recipientdomain "github.com/smallbiznis/invoicenotify/internal/recipient/domain"
	rejectiondomain "github.com/smallbiznis/invoicenotify/internal/rejection/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(func(n *notifier.Notifier) Notifier { return n }),
	fx.Provide(func(c *whatsapp.Client) Provider { return c }),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// Notifier is the notification surface served over HTTP.
type Notifier interface {
	NotifyCompany(ctx context.Context, subdomain string) (notifier.Outcome, error)
	NotifyAll(ctx context.Context) (notifier.RunSummary, error)
	GlobalSummary(ctx context.Context) (notifier.GlobalSummary, error)
	NotifyGlobalSupport(ctx context.Context) (notifier.SupportOutcome, error)
	TestSupport(ctx context.Context) (notifier.SupportOutcome, error)
}

// Provider is the read side of the messaging provider.
type Provider interface {
	ValidateConfiguration() []string
	TestConnection(ctx context.Context) (whatsapp.ConnectionResult, error)
	AvailableTemplates(ctx context.Context) ([]whatsapp.Template, error)
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obsmiddleware.IsProbeRoute))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	clock      clock.Clock
	rejections rejectiondomain.Service
	ledger     ledgerdomain.Service
	recipients recipientdomain.Service
	notifier   Notifier
	provider   Provider
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Clock      clock.Clock
	Rejections rejectiondomain.Service
	Ledger     ledgerdomain.Service
	Recipients recipientdomain.Service
	Notifier   Notifier
	Provider   Provider
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		clock:      p.Clock,
		rejections: p.Rejections,
		ledger:     p.Ledger,
		recipients: p.Recipients,
		notifier:   p.Notifier,
		provider:   p.Provider,
	}
	if svc.clock == nil {
		svc.clock = clock.SystemClock{}
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/ping", s.Ping)

	// -------- Rejected invoices --------
	invoices := api.Group("/invoices")
	{
		invoices.GET("/weekly-rejected", s.WeeklyRejected)
		invoices.GET("/company/:subdomain", s.CompanyRejected)
		invoices.GET("/error-summary", s.ErrorSummary)
		invoices.GET("/test-connections", s.TestConnections)
		invoices.GET("/unnotified/:subdomain", s.Unnotified)
	}

	// -------- Notifications --------
	notifications := api.Group("/notifications")
	{
		notifications.POST("/company/:subdomain", s.NotifyCompany)
		notifications.POST("/all", s.NotifyAll)
		notifications.GET("/history", s.NotificationHistory)
		notifications.GET("/stats/:subdomain", s.NotificationStats)
		notifications.GET("/groups", s.NotificationGroups)
	}

	// -------- Provider --------
	wa := api.Group("/whatsapp")
	{
		wa.GET("/test", s.TestWhatsApp)
		wa.GET("/templates", s.WhatsAppTemplates)
	}

	// -------- Global support --------
	global := api.Group("/global")
	{
		global.GET("/summary", s.GlobalSummary)
		global.POST("/notify", s.NotifyGlobalSupport)
		global.POST("/test-support", s.TestSupport)
	}
}

func (s *Server) Ping(c *gin.Context) {
	s.respond(c, http.StatusOK, "pong", gin.H{
		"service": s.cfg.AppName,
		"version": s.cfg.AppVersion,
	}, nil)
}
