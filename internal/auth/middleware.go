package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// KeyHeader carries the identity key on upload and listing requests.
const KeyHeader = "key"

type contextKey string

const principalContextKey contextKey = "bitbeemPrincipal"

// Principal is the caller resolved by RequirePrincipal.
type Principal struct {
	Username string
	Admin    bool
}

// RequirePrincipal accepts either an admin bearer token or an identity key and
// aborts with 401 when neither resolves.
func RequirePrincipal(service *Service, tokens *AdminTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			token := extractBearerToken(header)
			claims, err := tokens.Validate(token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
				return
			}
			c.Set(string(principalContextKey), Principal{Username: claims.Subject, Admin: true})
			c.Next()
			return
		}

		key := c.GetHeader(KeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}

		username, err := service.Authenticate(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid key"})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to authenticate"})
			return
		}

		c.Set(string(principalContextKey), Principal{Username: username})
		c.Next()
	}
}

// CurrentPrincipal extracts the caller stored by RequirePrincipal.
func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	value, exists := c.Get(string(principalContextKey))
	if !exists {
		return Principal{}, false
	}
	principal, ok := value.(Principal)
	return principal, ok
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
