package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/bible-game/common/internal/api/models"
	"github.com/bible-game/common/internal/security"
)

// Gin context keys set for authenticated requests
const (
	ClaimsKey  = "claims"
	UserIDKey  = "user_id"
	SubjectKey = "subject"
)

// TokenFilter authenticates every request that is not excluded. The verified
// identity is attached to the request context unless one is already there,
// and whichever identity the context keeps is mirrored into gin keys.
func TokenFilter(auth *security.Authenticator) gin.HandlerFunc {
	auth = auth.WithErrorWriter(writeAuthError)

	return func(c *gin.Context) {
		id, ok := auth.Filter(c.Writer, c.Request)
		if !ok {
			c.Abort()
			return
		}

		if id != nil {
			if existing := security.IdentityFromContext(c.Request.Context()); existing != nil {
				id = existing
			} else {
				c.Request = c.Request.WithContext(security.ContextWithIdentity(c.Request.Context(), id))
			}
			c.Set(ClaimsKey, id.Claims)
			c.Set(UserIDKey, id.UserID)
			c.Set(SubjectKey, id.Subject)
		}

		c.Next()
	}
}

// CurrentIdentity returns the identity attached by TokenFilter.
func CurrentIdentity(c *gin.Context) (*security.Identity, bool) {
	id := security.IdentityFromContext(c.Request.Context())
	return id, id != nil
}

func writeAuthError(w http.ResponseWriter, _ *http.Request, status int, err error) {
	apiErr := authError(err)
	apiErr.StatusCode = status

	body := render.JSON{Data: apiErr.Response()}
	body.WriteContentType(w)
	w.WriteHeader(apiErr.StatusCode)
	_ = body.Render(w)
}

// authError maps an authentication failure onto a fixed message so token
// contents never reach the client.
func authError(err error) *models.APIError {
	switch {
	case errors.Is(err, security.ErrTokenAbsent):
		return models.NewAPIError(models.ErrCodeUnauthorized, "Authorization token required", http.StatusUnauthorized)
	case errors.Is(err, security.ErrTokenExpired):
		return models.NewAPIError(models.ErrCodeTokenExpired, "Token has expired", http.StatusUnauthorized)
	case security.IsVerificationError(err):
		return models.NewAPIError(models.ErrCodeInvalidToken, "Invalid token", http.StatusUnauthorized)
	default:
		return models.NewAPIError(models.ErrCodeInternalError, "Internal server error", http.StatusInternalServerError)
	}
}
