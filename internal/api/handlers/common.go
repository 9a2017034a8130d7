package handlers

import (
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/bible-game/common/internal/api/models"
)

// respondAPIError writes a failed envelope and stops the handler chain
func respondAPIError(c *gin.Context, apiErr *models.APIError) {
	resp := apiErr.Response()
	resp.RequestID = c.GetString("request_id")
	c.AbortWithStatusJSON(apiErr.StatusCode, resp)
}

// respondError is respondAPIError for errors without details
func respondError(c *gin.Context, status int, code, message string) {
	respondAPIError(c, models.NewAPIError(code, message, status))
}

// respondOK writes a successful envelope
func respondOK(c *gin.Context, status int, data interface{}) {
	resp := models.NewSuccessResponse(data)
	resp.RequestID = c.GetString("request_id")
	c.JSON(status, resp)
}

// bindingError reports which fields failed validation. Anything other than
// a validation failure is treated as an unreadable body.
func bindingError(err error, message string) *models.APIError {
	apiErr := models.NewAPIError(models.ErrCodeInvalidRequest, message, http.StatusBadRequest)

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return apiErr.WithDetails("request body is not valid JSON")
	}

	for _, fe := range invalid {
		apiErr.WithField(snakeCase(fe.Field()), "failed "+fe.Tag()+" validation")
	}
	return apiErr
}

// snakeCase turns a Go field name into its json tag form, e.g. DisplayName
// into display_name and UserID into user_id.
func snakeCase(name string) string {
	var b strings.Builder
	var prev rune
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}
