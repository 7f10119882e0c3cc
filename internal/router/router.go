package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/leafbox-next/internal/cache"
	"github.com/leafbox-next/internal/config"
	adminhandlers "github.com/leafbox-next/internal/http/handlers/admin"
	publichandlers "github.com/leafbox-next/internal/http/handlers/public"
	"github.com/leafbox-next/internal/http/response"
	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/provider"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const healthCheckTimeout = 2 * time.Second

// SetupRouter builds the engine with every route and middleware.
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisClient := cache.Client()
	checkoutRule := RateLimitRule{
		Prefix:        cache.BuildKey("rate:checkout"),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxRequests,
		Message:       "too many checkout attempts",
	}
	slipRule := RateLimitRule{
		Prefix:        cache.BuildKey("rate:slip"),
		WindowSeconds: cfg.Security.SlipRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.SlipRateLimit.MaxRequests,
		Message:       "too many slip submissions",
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(serviceName(cfg)))
	}
	metricsPath := strings.TrimSpace(cfg.Metrics.Path)
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.Use(LoggerMiddleware(log, "/healthz", metricsPath))
	r.Use(CORSMiddleware(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(c.Metrics.Middleware())
		r.GET(metricsPath, c.Metrics.Handler())
	}

	r.GET("/healthz", healthHandler(c))

	apiV1 := r.Group("/api/v1")
	{
		checkout := apiV1.Group("/checkout")
		checkout.Use(OptionalUserJWTMiddleware(cfg.UserJWT.SecretKey))
		{
			checkout.POST("", RateLimitMiddleware(redisClient, checkoutRule, KeyByIP), publicHandler.Checkout)
			checkout.POST("/quote", publicHandler.Quote)
		}

		payments := apiV1.Group("/payments")
		{
			payments.POST("/slip", RateLimitMiddleware(redisClient, slipRule, KeyByIPAndJSONField("order_number")), publicHandler.SubmitSlip)
			payments.GET("/verify/:order_number", publicHandler.VerifyPayment)
		}

		webhooks := apiV1.Group("/webhooks")
		{
			webhooks.POST("/omise", publicHandler.OmiseWebhook)
			webhooks.POST("/stripe", publicHandler.StripeWebhook)
		}

		locations := apiV1.Group("/locations")
		{
			locations.GET("/provinces", publicHandler.ListProvinces)
			locations.GET("/provinces/:id/amphures", publicHandler.ListAmphures)
			locations.GET("/amphures/:id/tambons", publicHandler.ListTambons)
		}

		admin := apiV1.Group("/admin")
		admin.Use(AdminJWTAuthMiddleware(cfg.AdminJWT.SecretKey), AdminAuthzMiddleware(c.Authz))
		{
			admin.GET("/orders", adminHandler.AdminListOrders)
			admin.GET("/orders/:id", adminHandler.AdminGetOrder)
			admin.PATCH("/orders/:id/status", adminHandler.AdminUpdateOrderStatus)
			admin.PATCH("/orders/:id/comment", adminHandler.AdminUpdateOrderComment)
			admin.DELETE("/orders/:id", adminHandler.AdminDeleteOrder)
			admin.POST("/orders/:id/payment/confirm", adminHandler.AdminConfirmPayment)
			admin.POST("/orders/:id/payment/reject", adminHandler.AdminRejectPayment)

			admin.GET("/pending-payments", adminHandler.AdminListPendingPayments)
			admin.POST("/pending-payments/:id/resolve", adminHandler.AdminResolvePendingPayment)

			admin.GET("/settings/shipping", adminHandler.AdminGetShippingSetting)
			admin.PUT("/settings/shipping", adminHandler.AdminUpdateShippingSetting)

			admin.GET("/authz/roles", adminHandler.AdminListRoles)
			admin.GET("/authz/roles/:role/policies", adminHandler.AdminGetRolePolicies)
			admin.POST("/authz/roles/:role/policies", adminHandler.AdminGrantRolePolicy)
			admin.DELETE("/authz/roles/:role/policies", adminHandler.AdminRevokeRolePolicy)
		}
	}

	r.NoRoute(func(ctx *gin.Context) {
		response.NotFound(ctx, "route not found")
	})
	return r
}

func serviceName(cfg *config.Config) string {
	name := strings.TrimSpace(cfg.Server.Name)
	if name == "" {
		return "leafbox"
	}
	return name
}

// healthHandler reports database and redis reachability.
func healthHandler(c *provider.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := gin.H{"database": "ok", "redis": "ok"}
		healthy := true
		if c == nil || c.DB == nil {
			status["database"] = "unavailable"
			healthy = false
		} else if sqlDB, err := c.DB.DB(); err != nil {
			status["database"] = "unavailable"
			healthy = false
		} else if err := sqlDB.PingContext(checkCtx); err != nil {
			status["database"] = "unreachable"
			healthy = false
		}
		if !cache.Enabled() {
			status["redis"] = "disabled"
		} else if err := cache.Ping(checkCtx); err != nil {
			status["redis"] = "unreachable"
			healthy = false
		}

		if !healthy {
			logger.Warnw("health_check_failed", "status", status)
			response.ErrorWithData(ctx, http.StatusServiceUnavailable, "unhealthy", status)
			return
		}
		response.Success(ctx, status)
	}
}
