package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"chefshare/internal/apperror"
	"chefshare/internal/logging"
)

// RevocationChecker reports revoked token ids.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) bool
}

// Protect rejects requests without a valid bearer token and stores the
// token's user id in the request context.
func Protect(tokens *TokenService, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abort(c, apperror.Unauthenticated("Not authorized, no token"))
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			logging.Ctx(c.Request.Context()).Debug().Err(err).Msg("rejected bearer token")
			abort(c, apperror.Unauthenticated("Not authorized, token failed"))
			return
		}
		if revoked != nil && revoked.IsRevoked(c.Request.Context(), claims.ID) {
			abort(c, apperror.Unauthenticated("Not authorized, token revoked"))
			return
		}

		c.Request = c.Request.WithContext(withClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	status, body := apperror.HTTPStatus(err)
	c.AbortWithStatusJSON(status, body)
}
