package middleware

import (
	"errors"
	"net/http"                   // HTTP status codes
	"strings"                    // String manipulation
	"travel_tax/internal/domain" // Domain models and errors
	"travel_tax/internal/store"  // User lookup
	"travel_tax/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// Context keys set by JWTAuthMiddleware
const (
	userKey   = "user"
	userIDKey = "userID"
)

// JWTAuthMiddleware validates the bearer token, then loads the user named by
// its subject. A valid token for a deleted user is rejected.
func JWTAuthMiddleware(secret string, st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		user, err := st.UserByUsername(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
				return
			}
			logrus.WithError(err).Error("Failed to load token subject")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.Set(userKey, user)      // Store user in context
		c.Set(userIDKey, user.ID) // Store userID in context
		c.Next()                  // Proceed to the next handler
	}
}

// CurrentUser returns the user loaded by JWTAuthMiddleware
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}
