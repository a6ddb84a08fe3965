package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/viewcasthq/viewcast-server/internal/domain/user"
)

// identityKey is the gin context key the verified caller is stored under.
const identityKey = "identity"

// TokenVerifier turns a bearer token into a caller identity.
type TokenVerifier interface {
	VerifyToken(token string) (*user.Identity, error)
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := verify(c, verifier)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// OptionalAuth attaches the caller identity when a valid token is present
// and lets anonymous requests through.
func OptionalAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, ok := verify(c, verifier); ok {
			c.Set(identityKey, identity)
		}
		c.Next()
	}
}

// RequireRoles rejects authenticated callers whose role is not in the set.
// It must run after RequireAuth.
func RequireRoles(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := GetIdentity(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
	}
}

// GetIdentity returns the verified caller, or nil for anonymous requests.
func GetIdentity(c *gin.Context) *user.Identity {
	if v, exists := c.Get(identityKey); exists {
		if identity, ok := v.(*user.Identity); ok {
			return identity
		}
	}
	return nil
}

func verify(c *gin.Context, verifier TokenVerifier) (*user.Identity, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" || token == header {
		return nil, false
	}
	identity, err := verifier.VerifyToken(token)
	if err != nil {
		return nil, false
	}
	return identity, true
}
