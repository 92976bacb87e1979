package middleware

import (
	"net/http"
	"strings"

	"field-attendance-api-server/internal/auth"

	"github.com/gin-gonic/gin"
)

const (
	ContextEmail       = "user_email"
	ContextRole        = "user_role"
	ContextEmployeeRef = "user_employee_ref"
)

// Authenticate validates the bearer token and puts the caller's identity in
// the context. The websocket endpoint may pass the token as ?token= instead.
func Authenticate(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
				return
			}
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
				return
			}
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextEmployeeRef, claims.EmployeeRef)
		c.Next()
	}
}

// Authorize only lets the listed roles through.
func Authorize(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString(ContextRole)
		if userRole == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "User role not found in context"})
			return
		}
		for _, role := range allowedRoles {
			if role == userRole {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
	}
}

// EmployeeRef returns the authenticated caller's employee reference.
func EmployeeRef(c *gin.Context) string {
	return c.GetString(ContextEmployeeRef)
}
