package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"issuance-backend/internal/config"
	"issuance-backend/internal/handlers"
	"issuance-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Handlers bundles everything SetupRouter mounts.
type Handlers struct {
	Vault      *handlers.VaultHandler
	Gateway    *handlers.GatewayHandler
	Credit     *handlers.CreditHandler
	Quote      *handlers.QuoteHandler
	Operations *handlers.OperationsHandler
	Admin      *handlers.AdminHandler
	WebSocket  *handlers.WebSocketHandler
	AdminAuth  *middleware.AdminAuthMiddleware
}

// corsMiddleware applies the allowed-origin policy.
// Priority: environment variable > YAML config > allow-all default.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowedOrigins := []string{"*"}
		allowCredentials := true
		maxAge := 3600

		if envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); envOrigins != "" {
			allowedOrigins = allowedOrigins[:0]
			for _, o := range strings.Split(envOrigins, ",") {
				if trimmed := strings.TrimSpace(o); trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		}

		allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := false
			for _, o := range allowedOrigins {
				if strings.TrimSpace(o) == origin {
					allowed = true
					break
				}
			}
			if allowed {
				c.Header("Access-Control-Allow-Origin", origin)
			} else {
				logrus.WithFields(logrus.Fields{
					"request_origin":  origin,
					"allowed_origins": allowedOrigins,
					"path":            c.Request.URL.Path,
					"remote_addr":     c.ClientIP(),
				}).Warn("CORS: request blocked, origin not in whitelist")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type")
		c.Next()
	}
}

// SetupRouter wires middleware and routes onto a gin engine.
func SetupRouter(h *Handlers) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())

	logger := logrus.StandardLogger()
	var allowedIPs []string
	if config.AppConfig != nil && len(config.AppConfig.Admin.AllowedIPs) > 0 {
		allowedIPs = config.AppConfig.Admin.AllowedIPs
		logger.WithFields(logrus.Fields{
			"allowed_ips": allowedIPs,
		}).Info("Admin API IP whitelist configured")
	}
	localhostOnly := middleware.NewLocalhostOnly(logger, allowedIPs)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", handlers.HealthCheckHandler)
	r.GET("/api/health", handlers.HealthCheckHandler)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket stream
	r.GET("/ws", h.WebSocket.StreamHandler)

	api := r.Group("/api")
	{
		// Reserve state and read views
		api.GET("/vault/state", h.Vault.StateHandler)
		api.GET("/vault/surplus/:asset", h.Vault.SurplusHandler)
		api.GET("/gateway/supported-assets", h.Gateway.SupportedAssetsHandler)
		api.GET("/gateway/routers", h.Gateway.WhitelistedRoutersHandler)
		api.GET("/assets/:asset/balance/:holder", h.Operations.BalanceHandler)
		api.GET("/credit/grants", h.Credit.GrantsHandler)
		api.GET("/credit/grants/:agent", h.Credit.GrantHandler)
		api.GET("/credit/nonce/:owner", h.Credit.NonceHandler)
		api.GET("/operations", h.Operations.ListHandler)
		api.GET("/operations/:id", h.Operations.GetHandler)
		api.GET("/ws/stats", h.WebSocket.StatsHandler)

		// Quotes
		api.POST("/quote/deposit", h.Quote.DepositQuoteHandler)
		api.POST("/quote/withdraw", h.Quote.WithdrawQuoteHandler)
		api.GET("/quote/requirements/:issued", h.Quote.RequirementsHandler)

		// Deposit and withdrawal flows
		api.POST("/gateway/deposit/combination", h.Gateway.CombinationDepositHandler)
		api.POST("/gateway/deposit/single", h.Gateway.SingleDepositHandler)
		api.POST("/gateway/withdraw/single", h.Gateway.SingleWithdrawHandler)
		api.POST("/gateway/withdraw/combination", h.Gateway.CombinationWithdrawHandler)

		// Permit relay
		api.POST("/credit/permit", h.Credit.PermitHandler)
	}

	// Admin login is IP-restricted but unauthenticated.
	r.POST("/api/admin/login", localhostOnly.Restrict(), h.Admin.LoginHandler)

	admin := r.Group("/api/admin")
	admin.Use(localhostOnly.Restrict(), h.AdminAuth.RequireAdminAuth())
	{
		admin.POST("/support-tokens", h.Admin.UpdateSupportTokenHandler)
		admin.POST("/routers", h.Admin.UpdateSwapWhitelistHandler)
		admin.POST("/roles/grant", h.Admin.GrantRoleHandler)
		admin.POST("/roles/revoke", h.Admin.RevokeRoleHandler)
		admin.GET("/roles/:role", h.Admin.RolesHandler)
		admin.POST("/rescue", h.Admin.RescueTokensHandler)
		admin.POST("/gateway/pause", h.Admin.PauseGatewayHandler)
		admin.POST("/gateway/unpause", h.Admin.UnpauseGatewayHandler)

		// Vault management shares the admin surface.
		admin.POST("/vault/claim-surplus", h.Vault.ClaimSurplusHandler)
		admin.POST("/vault/claim-fees", h.Vault.ClaimFeesHandler)
		admin.POST("/vault/mint-fee-rate", h.Vault.UpdateMintFeeRateHandler)
		admin.POST("/vault/burn-fee-rate", h.Vault.UpdateBurnFeeRateHandler)
		admin.POST("/vault/pause", h.Vault.PauseHandler)
		admin.POST("/vault/unpause", h.Vault.UnpauseHandler)

		// Credit grants
		admin.POST("/credit/grants", h.Credit.GrantAgentHandler)
		admin.POST("/credit/grants/effective-height", h.Credit.SetEffectiveHeightHandler)
		admin.POST("/credit/grants/expiration-height", h.Credit.SetExpirationHeightHandler)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message":    "endpoint not found",
			"path":       c.Request.URL.Path,
			"suggestion": "check documentation for available /api endpoints",
		})
	})

	return r
}
