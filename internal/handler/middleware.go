package handler

import (
	"net/http"
	"strings"

	"github.com/Turbi-kon/online-school-backend/internal/auth"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"github.com/gin-gonic/gin"
)

const ctxUserKey = "user"

// AuthMiddleware verifies the Bearer token and stores the account in the
// request context. Requests without a valid token are rejected with 401.
func AuthMiddleware(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		user, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUserKey, user)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	// Fallback for clients that pass the token as a query parameter,
	// same as the WebSocket endpoints.
	return c.Query("token")
}

// currentUser returns the authenticated account set by AuthMiddleware.
func currentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}
