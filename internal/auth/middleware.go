package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxAccountID = "account_id"
	CtxRole      = "account_role"
)

const RoleAdmin = "ADMIN"

// AuthRequired validates the bearer token and seeds the request context with
// the caller's identity. Workflow calls always receive that identity
// explicitly; nothing downstream reads ambient security state.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := ParseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(CtxAccountID, claims.AccountID)
		c.Set(CtxRole, claims.Role)

		c.Next()
	}
}

// AdminRequired allows only accounts with the ADMIN role past. Must run
// after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Role(c) != RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func AccountID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxAccountID))
}

func Role(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxRole))
}
