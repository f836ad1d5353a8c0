package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// currentUserID reads the authenticated user ID set by the auth middleware.
// It aborts with 401 when the value is missing.
func currentUserID(c *gin.Context) (uint64, bool) {
	raw, exists := c.Get("userID")
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	id, ok := raw.(uint64)
	if !ok || id == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return id, true
}
