package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/journalpay/internal/article"
	articledomain "github.com/smallbiznis/journalpay/internal/article/domain"
	"github.com/smallbiznis/journalpay/internal/audit"
	auditdomain "github.com/smallbiznis/journalpay/internal/audit/domain"
	"github.com/smallbiznis/journalpay/internal/authorization"
	"github.com/smallbiznis/journalpay/internal/catalog"
	"github.com/smallbiznis/journalpay/internal/click"
	clickdomain "github.com/smallbiznis/journalpay/internal/click/domain"
	"github.com/smallbiznis/journalpay/internal/config"
	"github.com/smallbiznis/journalpay/internal/observability"
	obsmiddleware "github.com/smallbiznis/journalpay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/journalpay/internal/observability/metrics"
	obstracing "github.com/smallbiznis/journalpay/internal/observability/tracing"
	"github.com/smallbiznis/journalpay/internal/outbox"
	"github.com/smallbiznis/journalpay/internal/payable"
	"github.com/smallbiznis/journalpay/internal/pricing"
	"github.com/smallbiznis/journalpay/internal/ratelimit"
	"github.com/smallbiznis/journalpay/internal/report"
	"github.com/smallbiznis/journalpay/internal/serviceorder"
	serviceorderdomain "github.com/smallbiznis/journalpay/internal/serviceorder/domain"
	"github.com/smallbiznis/journalpay/internal/user"
	userdomain "github.com/smallbiznis/journalpay/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	ratelimit.Module,
	payable.Module,
	pricing.Module,
	user.Module,
	catalog.Module,
	audit.Module,
	outbox.Module,
	authorization.Module,
	click.Module,
	article.Module,
	serviceorder.Module,
	report.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
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
	userSvc         userdomain.Service
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	clickSvc        clickdomain.Service
	articleSvc      articledomain.Service
	serviceOrderSvc serviceorderdomain.Service
	reportSvc       report.Service
}

type ServerParams struct {
	fx.In
	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	UserSvc         userdomain.Service
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	ClickSvc        clickdomain.Service
	ArticleSvc      articledomain.Service
	ServiceOrderSvc serviceorderdomain.Service
	ReportSvc       report.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		userSvc:         p.UserSvc,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		clickSvc:        p.ClickSvc,
		articleSvc:      p.ArticleSvc,
		serviceOrderSvc: p.ServiceOrderSvc,
		reportSvc:       p.ReportSvc,
	}
	svc.registerGatewayRoutes()
	svc.registerAPIRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerGatewayRoutes mounts the payment gateway callbacks. They carry no
// user identity; the request signature is checked by the click service.
func (s *Server) registerGatewayRoutes() {
	gateway := s.engine.Group("/api/click")
	gateway.POST("/prepare", s.ClickPrepare)
	gateway.POST("/complete", s.ClickComplete)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.RequireUser())

	// -------- Articles --------
	api.POST("/articles", s.authorizeAction(authorization.ObjectArticle, authorization.ActionArticleSubmit), s.SubmitArticle)
	api.GET("/articles/:id", s.GetArticle)
	api.POST("/articles/:id/request-revision", s.authorizeAction(authorization.ObjectArticle, authorization.ActionArticleReview), s.RequestArticleRevision)
	api.POST("/articles/:id/reject", s.authorizeAction(authorization.ObjectArticle, authorization.ActionArticleReview), s.RejectArticle)
	api.POST("/articles/:id/accept", s.authorizeAction(authorization.ObjectArticle, authorization.ActionArticleReview), s.AcceptArticle)
	api.POST("/articles/:id/submit-revision", s.authorizeAction(authorization.ObjectArticle, authorization.ActionArticleRevise), s.SubmitArticleRevision)

	// -------- Service orders --------
	api.POST("/service-orders", s.authorizeAction(authorization.ObjectServiceOrder, authorization.ActionOrderPlace), s.PlaceServiceOrder)
	api.GET("/service-orders/:id", s.GetServiceOrder)

	// -------- UDC classification --------
	api.GET("/udc/orders", s.authorizeAction(authorization.ObjectServiceOrder, authorization.ActionUDCView), s.ListUDCOrders)
	api.POST("/udc/orders/:id/assign", s.authorizeAction(authorization.ObjectServiceOrder, authorization.ActionUDCAssign), s.AssignUDCCode)

	// -------- Printed publications --------
	api.POST("/printed-publications/:id/status", s.authorizeAction(authorization.ObjectServiceOrder, authorization.ActionPrintingUpdate), s.UpdatePrintedPublicationStatus)
	api.POST("/printed-publications/:id/assign-writer", s.authorizeAction(authorization.ObjectServiceOrder, authorization.ActionPrintingAssignee), s.AssignPrintedPublicationWriter)

	// -------- Payments --------
	api.GET("/payments/:merchant_trans_id", s.authorizeAction(authorization.ObjectPayment, authorization.ActionPaymentView), s.GetPaymentStatus)

	// -------- Reports --------
	api.GET("/reports/financial", s.authorizeAction(authorization.ObjectReport, authorization.ActionFinancialView), s.GetFinancialReport)
	api.GET("/dashboard", s.authorizeAction(authorization.ObjectReport, authorization.ActionDashboardView), s.GetDashboard)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
