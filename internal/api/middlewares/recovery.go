package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bible-game/common/internal/api/models"
	"github.com/bible-game/common/pkg/logger"
)

// Recovery middleware recovers from panics in handlers. The panic value is
// logged and never returned to the client.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.GetLoggerFromContext(c, log).Error("Recovered from panic",
			"panic", fmt.Sprint(recovered),
			"path", c.Request.URL.Path,
		)

		c.AbortWithStatusJSON(http.StatusInternalServerError, models.NewErrorResponse(
			models.ErrCodeInternalError,
			"Internal server error",
			"",
		))
	})
}
