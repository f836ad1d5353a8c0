package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/config"
	handlers "github.com/telecomsuite/subtrack/internal/http/api/admin/handlers"
	"github.com/telecomsuite/subtrack/internal/models"
	"github.com/telecomsuite/subtrack/internal/security"
)

// RegisterAdminRoutes registers admin console routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(AuthMiddleware(db, jwtCfg, models.RoleAdmin))

	dashboardHandler := handlers.NewDashboardHandler(db)
	authed.GET("/dashboard", dashboardHandler.Snapshot)

	userHandler := handlers.NewUserHandler(db)
	authed.GET("/users", userHandler.List)
	authed.POST("/users", userHandler.Create)
	authed.PUT("/users", userHandler.Update)
	authed.DELETE("/users", userHandler.Delete)
	authed.GET("/users/detailed", userHandler.ListDetailed)

	planHandler := handlers.NewPlanHandler(db)
	authed.GET("/plans", planHandler.List)
	authed.POST("/plans", planHandler.Create)
	authed.PUT("/plans", planHandler.Update)
	authed.DELETE("/plans", planHandler.Delete)

	subscriptionHandler := handlers.NewSubscriptionHandler(db)
	authed.GET("/subscriptions", subscriptionHandler.List)

	analyticsHandler := handlers.NewAnalyticsHandler(db)
	authed.GET("/analytics", analyticsHandler.Overview)
	authed.GET("/analytics/detailed", analyticsHandler.Detailed)

	alertHandler := handlers.NewAlertHandler(db)
	authed.GET("/alerts", alertHandler.List)
	authed.PUT("/alerts", alertHandler.MarkRead)

	discountHandler := handlers.NewDiscountHandler(db)
	authed.GET("/discounts", discountHandler.List)
	authed.POST("/discounts", discountHandler.Create)
	authed.PUT("/discounts", discountHandler.Update)
	authed.DELETE("/discounts", discountHandler.Delete)

	mfaHandler := handlers.NewMFAHandler(db)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)
}

// AuthMiddleware validates bearer JWTs, checks the required role, and loads
// the account into the request context.
func AuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig, requiredRole models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseSessionToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if requiredRole != "" && claims.Role != requiredRole {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "insufficient role"})
			return
		}

		var account models.User
		if errFind := db.WithContext(c.Request.Context()).First(&account, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return
		}
		if requiredRole != "" && account.Role != requiredRole {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "insufficient role"})
			return
		}

		c.Set("userID", account.ID)
		c.Set("userRole", account.Role)
		c.Next()
	}
}
