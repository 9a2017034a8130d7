package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/bible-game/common/internal/api/interfaces"
	"github.com/bible-game/common/internal/api/models"
	"github.com/bible-game/common/internal/storage"
	"github.com/bible-game/common/pkg/logger"
)

// MaxAudioBytes bounds the size of an uploaded passage recording
const MaxAudioBytes = 25 << 20

var passageKeyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// UploadPassageAudio stores the request body as the audio of a passage
func UploadPassageAudio(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		passageKey := c.Param("key")
		if !passageKeyPattern.MatchString(passageKey) {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid passage key")
			return
		}

		content, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxAudioBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondAPIError(c, models.NewAPIError(models.ErrCodeInvalidRequest, "Audio exceeds size limit",
					http.StatusRequestEntityTooLarge).WithDetails(fmt.Sprintf("limit is %d bytes", tooLarge.Limit)))
				return
			}
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Failed to read audio")
			return
		}
		if len(content) == 0 {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Audio content is required")
			return
		}

		location, err := services.AudioStore().UploadAudio(c.Request.Context(), passageKey, content)
		if err != nil {
			storageFailure(c, services, err, passageKey)
			return
		}

		respondOK(c, http.StatusCreated, models.AudioUploadResponse{
			PassageKey: passageKey,
			Location:   location,
			Size:       len(content),
		})
	}
}

// GetPassageAudio streams the stored audio of a passage
func GetPassageAudio(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		passageKey := c.Param("key")
		if !passageKeyPattern.MatchString(passageKey) {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid passage key")
			return
		}

		content, err := services.AudioStore().GetAudio(c.Request.Context(), passageKey)
		if err != nil {
			storageFailure(c, services, err, passageKey)
			return
		}

		c.Header("Cache-Control", "private, max-age=3600")
		c.Data(http.StatusOK, storage.AudioContentType, content)
	}
}

func storageFailure(c *gin.Context, services interfaces.Services, err error, passageKey string) {
	respondAPIError(c, storageError(err))

	if !errors.Is(err, storage.ErrObjectNotFound) && !errors.Is(err, storage.ErrBucketNotConfigured) {
		logger.GetLoggerFromContext(c, services.GetLogger()).StructuredError(err, map[string]interface{}{
			"operation": "passage_audio",
			"passage":   passageKey,
		})
	}
}

// storageError maps a storage failure onto the response sent to the client.
// SDK errors are never echoed back.
func storageError(err error) *models.APIError {
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		return models.NewAPIError(models.ErrCodeNotFound, "Audio not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrBucketNotConfigured):
		return models.NewAPIError(models.ErrCodeServiceUnavailable, "Audio storage is not configured", http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewAPIError(models.ErrCodeStorageError, "Audio storage timed out", http.StatusGatewayTimeout)
	default:
		return models.NewAPIError(models.ErrCodeStorageError, "Audio storage failure", http.StatusBadGateway)
	}
}
