package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bible-game/common/internal/api/interfaces"
	"github.com/bible-game/common/internal/api/models"
	"github.com/bible-game/common/internal/database"
	"github.com/bible-game/common/internal/database/repositories"
	"github.com/bible-game/common/internal/security"
	"github.com/bible-game/common/pkg/logger"
)

// GetCurrentUser returns the authenticated caller and its stored record
func GetCurrentUser(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := security.IdentityFromContext(c.Request.Context())
		if id == nil {
			respondError(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Authentication required")
			return
		}

		resp := models.CurrentUserResponse{
			CurrentUser: id.CurrentUser(),
			Subject:     id.Subject,
		}

		if id.UserID > 0 {
			user, err := services.UserStore().GetByID(c.Request.Context(), id.UserID)
			switch {
			case err == nil:
				resp.User = toUserResponse(user)
			case errors.Is(err, repositories.ErrNotFound):
				// tokens may name users that are not stored locally
			default:
				logger.GetLoggerFromContext(c, services.GetLogger()).StructuredError(err, map[string]interface{}{
					"operation": "load_current_user",
					"user_id":   id.UserID,
				})
				respondError(c, http.StatusInternalServerError, models.ErrCodeInternalError, "Failed to load user")
				return
			}
		}

		respondOK(c, http.StatusOK, resp)
	}
}

// UpdateCurrentUser changes the profile fields of the authenticated caller
func UpdateCurrentUser(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := security.IdentityFromContext(c.Request.Context())
		if id == nil || id.UserID <= 0 {
			respondError(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Authentication required")
			return
		}

		var req models.UserUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondAPIError(c, bindingError(err, "Invalid request body"))
			return
		}

		log := logger.GetLoggerFromContext(c, services.GetLogger())
		ctx := c.Request.Context()
		user, err := services.UserStore().GetByID(ctx, id.UserID)
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(c, http.StatusNotFound, models.ErrCodeNotFound, "User not found")
			return
		}
		if err != nil {
			log.StructuredError(err, map[string]interface{}{"operation": "load_user_for_update", "user_id": id.UserID})
			respondError(c, http.StatusInternalServerError, models.ErrCodeInternalError, "Failed to load user")
			return
		}
		if !user.Active {
			respondError(c, http.StatusForbidden, models.ErrCodeForbidden, "Account is deactivated")
			return
		}

		if req.Email != "" {
			user.Email = req.Email
		}
		if req.DisplayName != "" {
			user.DisplayName = req.DisplayName
		}

		err = services.UserStore().Update(ctx, user)
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondAPIError(c, models.NewAPIError(models.ErrCodeConflict, "Profile conflicts with another user", http.StatusConflict).
				WithField("email", "already in use"))
			return
		case err != nil:
			log.StructuredError(err, map[string]interface{}{"operation": "update_user", "user_id": id.UserID})
			respondError(c, http.StatusInternalServerError, models.ErrCodeInternalError, "Failed to update user")
			return
		}

		respondOK(c, http.StatusOK, toUserResponse(user))
	}
}

func toUserResponse(user *database.User) *models.UserResponse {
	return &models.UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		Active:       user.Active,
		CreatedDate:  user.CreatedDate.Unix(),
		LastModified: user.LastModified.Unix(),
	}
}
