// Package front registers the user-facing API surface: self-service signup
// and login plus the authenticated dashboard, subscription, usage, and
// billing endpoints.
package front

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/config"
	"github.com/telecomsuite/subtrack/internal/http/api/front/handlers"
	"github.com/telecomsuite/subtrack/internal/models"
	"github.com/telecomsuite/subtrack/internal/security"
)

// RegisterFrontRoutes registers the user-facing routes and middleware.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig) {
	userGroup := r.Group("/user")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	userGroup.POST("/signup", authHandler.Signup)
	userGroup.POST("/login", authHandler.Login)

	authed := userGroup.Group("")
	authed.Use(AuthMiddleware(db, jwtCfg))

	dashboardHandler := handlers.NewDashboardHandler(db)
	authed.GET("/dashboard", dashboardHandler.Snapshot)

	subscriptionHandler := handlers.NewSubscriptionHandler(db)
	authed.GET("/subscriptions", subscriptionHandler.List)
	authed.POST("/subscriptions", subscriptionHandler.Subscribe)
	authed.GET("/recommendations", subscriptionHandler.Recommendations)

	usageHandler := handlers.NewUsageHandler(db)
	authed.GET("/usage", usageHandler.List)
	authed.POST("/usage", usageHandler.Record)

	billingHandler := handlers.NewBillingHandler(db)
	authed.GET("/billing", billingHandler.History)
}

// AuthMiddleware validates the bearer token and loads the account it names.
// Any role passes; the handlers only ever touch the caller's own rows.
func AuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		claims, errParse := security.ParseSessionToken(jwtCfg.Secret, raw)
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var account models.User
		if errFind := db.WithContext(c.Request.Context()).First(&account, claims.UserID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}

		c.Set("userID", account.ID)
		c.Set("userRole", account.Role)
		c.Next()
	}
}
