package middleware

import (
	"context"
	"net/http"
	"strings"
	"task_tracker/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	TokenCookie  = "token"
	principalKey = "principal"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Principal, error)
}

// ExtractToken reads the session token from the Authorization header or,
// failing that, the session cookie.
func ExtractToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie
	}
	return ""
}

func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": services.ErrUnauthenticated.Message})
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if services.KindOf(err) == services.KindUnauthenticated {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": services.ErrUnauthenticated.Message})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireRole must run after Authenticate.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := services.RequireRole(PrincipalFrom(c), role)
		switch services.KindOf(err) {
		case services.KindUnauthenticated:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": services.ErrUnauthenticated.Message})
			return
		case services.KindForbidden:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin access required"})
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) *services.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*services.Principal)
	return p
}
