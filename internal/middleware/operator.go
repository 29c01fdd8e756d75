package middleware

import (
	"github.com/gin-gonic/gin"
)

// TenantMiddleware extracts X-Tenant-ID header and sets it in context
// so handlers can use c.GetString("tenant_id")
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		if tenantID != "" {
			c.Set("tenant_id", tenantID)
		}
		c.Next()
	}
}

// OperatorMiddleware extracts the operator identity headers set by the
// auth front (X-User-ID, X-User-Role, X-Club-ID). Authentication itself
// is handled upstream; the console only consumes the resolved identity.
func OperatorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		if role := c.GetHeader("X-User-Role"); role != "" {
			c.Set("user_role", role)
		}
		if clubID := c.GetHeader("X-Club-ID"); clubID != "" {
			c.Set("club_id", clubID)
		}
		c.Next()
	}
}
