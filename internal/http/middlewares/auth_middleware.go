package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spendtrack/spendtrack/internal/auth"
	"github.com/spendtrack/spendtrack/internal/cache"
	"github.com/spendtrack/spendtrack/internal/config"
	"github.com/spendtrack/spendtrack/internal/domain/user"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

type UserResolver interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserResolver
	cache *cache.Cache
}

func NewAuthMiddleware(jwt TokenVerifier, users UserResolver) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:   jwt,
		users: users,
		// Users are immutable once created, so a short memo of the
		// token→user lookup cannot serve anything stale.
		cache: cache.New(30 * time.Second),
	}
}

const unauthorizedMessage = "You are not authorized to access this route"

// RequireAuth verifies the bearer token and resolves it to a stored user.
// Failures terminate here with a 401; they never reach the error translator.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c)
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := m.jwt.VerifyToken(raw)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		u, err := m.resolveUser(claims.UserID)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		// Hand the resolved identity to the handler explicitly via a
		// typed accessor; nothing downstream re-reads the header.
		SetCurrentUser(c, u)

		c.Next()
	}
}

func (m *AuthMiddleware) resolveUser(id string) (user.User, error) {
	key := "user:" + id

	if v, ok := m.cache.Get(key); ok {
		if u, ok := v.(user.User); ok {
			return u, nil
		}
	}

	ctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := m.users.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	m.cache.Set(key, u)
	return u, nil
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": unauthorizedMessage,
	})
}

// SetCurrentUser attaches a resolved identity to the request. Handler tests
// use it to stand in for the gate.
func SetCurrentUser(c *gin.Context, u user.User) {
	c.Set(ctxUserKey, u)
}

// CurrentUser returns the identity the gate resolved for this request.

func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}
