package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ErrEmailNotConfirmed is the well-known error message the widget routes to
// its confirmation-needed notice instead of the generic error banner.
const ErrEmailNotConfirmed = "email not confirmed"

// IdentityMiddleware resolves the caller identity from headers. Real
// authentication lives in a separate service; the reference backend only
// needs a trusted user id, display name, and the email-confirmed flag.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-User-ID")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user id"})
			return
		}

		userID, err := strconv.Atoi(header)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			return
		}

		c.Set("userID", userID)
		c.Set("displayName", c.GetHeader("X-Display-Name"))
		c.Set("moderator", c.GetHeader("X-Moderator") == "true")
		c.Set("emailConfirmed", c.GetHeader("X-Email-Confirmed") != "false")
		c.Next()
	}
}

// RequireConfirmedEmail rejects message creation for unconfirmed senders with
// the well-known message string.
func RequireConfirmedEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("emailConfirmed") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": ErrEmailNotConfirmed})
			return
		}
		c.Next()
	}
}
