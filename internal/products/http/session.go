package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"sale-products/internal/products"
	"sale-products/internal/users"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

type SessionResolver interface {
	UserID(r *http.Request) (int64, error)
}

type UserLookup interface {
	GetUser(ctx context.Context, id int64) (users.User, error)
}

// SessionMiddleware resolves the session cookie to a user and stores the
// resulting principal on the context. Requests without a valid session pass
// through with no principal; handlers decide whether one is required.
func SessionMiddleware(sessions SessionResolver, lookup UserLookup, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := sessions.UserID(c.Request)
		if err != nil {
			c.Next()
			return
		}

		user, err := lookup.GetUser(c.Request.Context(), userID)
		if err != nil {
			if !errors.Is(err, users.ErrNotFound) {
				logger.Error("resolve session user", "user_id", userID, "error", err)
			}
			c.Next()
			return
		}

		c.Set(principalKey, &products.Principal{UserID: user.ID, Username: user.Username})
		c.Next()
	}
}

// PrincipalFrom returns the principal set by SessionMiddleware, or nil.
func PrincipalFrom(c *gin.Context) *products.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*products.Principal)
	return p
}
