package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/security"
)

const (
	currentUserKey  = "current_user"
	accessClaimsKey = "access_claims"
)

// Authenticator resolves a bearer access token to the user it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, *security.AccessClaims, error)
}

func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		user, claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindUnauthorized {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.Message(err)})
				return
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(accessClaimsKey, claims)
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

func AccessClaims(c *gin.Context) (*security.AccessClaims, bool) {
	v, ok := c.Get(accessClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*security.AccessClaims)
	return claims, ok && claims != nil
}
