package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	dom "github.com/AviRoy1988/receipe-api/internal/domain"
	"github.com/AviRoy1988/receipe-api/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	contextKeyUser  = "auth_user"
	contextKeyToken = "auth_token"
)

// UserLoader resolves a user id to its current record.
type UserLoader interface {
	Profile(ctx context.Context, id int64) (dom.User, error)
}

// UserFromContext returns the user set by RequireToken.
func UserFromContext(c *gin.Context) (dom.User, bool) {
	v, ok := c.Get(contextKeyUser)
	if !ok {
		return dom.User{}, false
	}
	u, ok := v.(dom.User)
	return u, ok
}

// TokenFromContext returns the bearer token accepted by RequireToken.
func TokenFromContext(c *gin.Context) string {
	return c.GetString(contextKeyToken)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" or
// "Authorization: Token <token>" header. It returns "" when none is present.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return ""
	}
	if !strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token") {
		return ""
	}
	token = strings.TrimSpace(token)
	if strings.ContainsAny(token, " \t") {
		return ""
	}
	return token
}

// RequireToken returns a middleware that resolves the bearer token to an
// active user and sets it in context. If missing or invalid, responds with 401.
func RequireToken(tokens *TokenStore, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := BearerToken(header)
		if token == "" {
			msg := "authentication credentials were not provided"
			if header != "" {
				msg = "invalid authorization header"
			}
			unauthorized(c, msg)
			return
		}
		ctx := c.Request.Context()
		userID, ok, err := tokens.UserID(ctx, token)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve token"})
			return
		}
		if !ok {
			unauthorized(c, "invalid token")
			return
		}
		u, err := users.Profile(ctx, userID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				unauthorized(c, "user inactive or deleted")
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}
		if !u.IsActive {
			unauthorized(c, "user inactive or deleted")
			return
		}
		c.Set(contextKeyUser, u)
		c.Set(contextKeyToken, token)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
