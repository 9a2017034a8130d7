package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bible-game/common/internal/api/interfaces"
	"github.com/bible-game/common/internal/api/models"
	"github.com/bible-game/common/internal/database/repositories"
	"github.com/bible-game/common/pkg/logger"
)

// IssueSession issues a token for a user id and sets the auth cookie when
// one is configured. Only routed outside release mode.
func IssueSession(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondAPIError(c, bindingError(err, "user_id is required"))
			return
		}

		log := logger.GetLoggerFromContext(c, services.GetLogger())

		token, err := services.TokenIssuer().GenerateFor(req.UserID)
		if err != nil {
			log.StructuredError(err, map[string]interface{}{"operation": "issue_session", "user_id": req.UserID})
			respondError(c, http.StatusInternalServerError, models.ErrCodeInternalError, "Failed to issue token")
			return
		}

		// record the login on users stored locally
		if err := services.UserStore().Touch(c.Request.Context(), req.UserID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			log.StructuredError(err, map[string]interface{}{"operation": "touch_user", "user_id": req.UserID})
		}

		cfg := services.GetConfig()
		jwtCfg := cfg.Security.JWT
		maxAge := int(jwtCfg.SessionTimeout().Seconds())
		if jwtCfg.CookieName != "" {
			secure := c.Request.TLS != nil || !cfg.IsDevelopment()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(jwtCfg.CookieName, token, maxAge, "/", jwtCfg.CookieDomain, secure, true)
		}

		log.SecurityLogger("session_issued", strconv.FormatInt(req.UserID, 10), "token issued for development session")

		respondOK(c, http.StatusCreated, models.SessionResponse{
			Token:     token,
			ExpiresIn: int64(maxAge),
			UserID:    req.UserID,
		})
	}
}
