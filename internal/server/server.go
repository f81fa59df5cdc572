package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/trailbook/internal/audit"
	auditdomain "github.com/smallbiznis/trailbook/internal/audit/domain"
	"github.com/smallbiznis/trailbook/internal/auth"
	authdomain "github.com/smallbiznis/trailbook/internal/auth/domain"
	"github.com/smallbiznis/trailbook/internal/authorization"
	"github.com/smallbiznis/trailbook/internal/booking"
	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	"github.com/smallbiznis/trailbook/internal/cache"
	"github.com/smallbiznis/trailbook/internal/checkout"
	checkoutdomain "github.com/smallbiznis/trailbook/internal/checkout/domain"
	"github.com/smallbiznis/trailbook/internal/config"
	"github.com/smallbiznis/trailbook/internal/event"
	eventdomain "github.com/smallbiznis/trailbook/internal/event/domain"
	"github.com/smallbiznis/trailbook/internal/notification"
	"github.com/smallbiznis/trailbook/internal/observability"
	obsmiddleware "github.com/smallbiznis/trailbook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/trailbook/internal/observability/metrics"
	obstracing "github.com/smallbiznis/trailbook/internal/observability/tracing"
	"github.com/smallbiznis/trailbook/internal/payment"
	"github.com/smallbiznis/trailbook/internal/providers"
	"github.com/smallbiznis/trailbook/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	cache.Module,
	event.Module,
	booking.Module,
	payment.Module,
	providers.Module,
	notification.Module,
	checkout.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, cfg config.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(CORS(cfg.CORSAllowedOrigins))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.AppName})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, cfg config.Config) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, cfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
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
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	authsvc         authdomain.Service
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	eventSvc        eventdomain.Service
	bookingSvc      bookingdomain.Service
	checkoutSvc     checkoutdomain.Service
	checkoutLimiter *ratelimit.CheckoutLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Authsvc         authdomain.Service
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	EventSvc        eventdomain.Service
	BookingSvc      bookingdomain.Service
	CheckoutSvc     checkoutdomain.Service
	CheckoutLimiter *ratelimit.CheckoutLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		authsvc:         p.Authsvc,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		eventSvc:        p.EventSvc,
		bookingSvc:      p.BookingSvc,
		checkoutSvc:     p.CheckoutSvc,
		checkoutLimiter: p.CheckoutLimiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerEventRoutes()
	svc.registerPaymentRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerEventRoutes() {
	events := s.engine.Group("/events")

	events.GET("/getAllEvents", s.ListEvents)
	events.GET("/:id", s.GetEvent)
	events.GET("/:id/availability", s.GetEventAvailability)

	events.POST("", s.AdminAuthRequired(), s.authorize(authorization.ObjectEvent, authorization.ActionCreate), s.CreateEvent)
	events.PUT("/:id", s.AdminAuthRequired(), s.authorize(authorization.ObjectEvent, authorization.ActionUpdate), s.UpdateEvent)
	events.DELETE("/:id", s.AdminAuthRequired(), s.authorize(authorization.ObjectEvent, authorization.ActionArchive), s.ArchiveEvent)
}

func (s *Server) registerPaymentRoutes() {
	payments := s.engine.Group("/payments")

	payments.POST("/create-order", s.CreateOrderRateLimit(), s.CreateOrder)
	payments.POST("/verify", s.VerifyPayment)
	payments.GET("/booking/:bookingId", s.GetBooking)
	payments.GET("/booking/:bookingId/receipt", s.GetBookingReceipt)
	payments.GET("/user-bookings/:email", s.ListUserBookings)
	payments.POST("/cancel/:bookingId", s.CancelBooking)
	payments.GET("/payment/:paymentId", s.GetPayment)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AdminAuthRequired())

	admin.GET("/stats", s.authorize(authorization.ObjectStats, authorization.ActionView), s.GetStats)
	admin.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
	admin.GET("/bookings/:bookingId/communications", s.authorize(authorization.ObjectBooking, authorization.ActionView), s.ListBookingCommunications)
	admin.POST("/bookings/:bookingId/cancel", s.authorize(authorization.ObjectBooking, authorization.ActionCancel), s.AdminCancelBooking)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}
