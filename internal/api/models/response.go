package models

import (
	"time"

	"github.com/bible-game/common/internal/security"
)

// BaseResponse represents the base API response structure
type BaseResponse struct {
	Success   bool        `json:"success" example:"true"`
	Message   string      `json:"message,omitempty" example:"Operation completed successfully"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp" example:"1640995200"`
	RequestID string      `json:"request_id,omitempty" example:"6f1c2d9e-3c1b-4b7e-9a51-0e1f2a3b4c5d"`
}

// ErrorInfo represents error information
type ErrorInfo struct {
	Code    string            `json:"code" example:"INVALID_REQUEST"`
	Message string            `json:"message" example:"Invalid request parameters"`
	Details string            `json:"details,omitempty" example:"Field 'user_id' is required"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// NewSuccessResponse wraps data in a successful envelope
func NewSuccessResponse(data interface{}) BaseResponse {
	return BaseResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// NewErrorResponse builds a failed envelope
func NewErrorResponse(code, message, details string) BaseResponse {
	return BaseResponse{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().Unix(),
	}
}

// CurrentUserResponse is returned by the current user endpoint. User is
// omitted when the subject has no stored record.
type CurrentUserResponse struct {
	security.CurrentUser
	Subject string        `json:"subject" example:"42"`
	User    *UserResponse `json:"user,omitempty"`
}

// UserResponse represents user information
type UserResponse struct {
	ID           int64  `json:"id" example:"42"`
	Username     string `json:"username" example:"ruth"`
	Email        string `json:"email" example:"ruth@bible.game"`
	DisplayName  string `json:"display_name,omitempty" example:"Ruth"`
	Active       bool   `json:"active" example:"true"`
	CreatedDate  int64  `json:"created_date" example:"1640995200"`
	LastModified int64  `json:"last_modified" example:"1640995200"`
}

// AudioUploadResponse reports where passage audio was stored
type AudioUploadResponse struct {
	PassageKey string `json:"passage_key" example:"GEN.1"`
	Location   string `json:"location" example:"GEN.1.mp3"`
	Size       int    `json:"size" example:"48213"`
}

// SessionResponse carries a freshly issued token
type SessionResponse struct {
	Token     string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresIn int64  `json:"expires_in" example:"1800"`
	UserID    int64  `json:"user_id" example:"42"`
}

// HealthCheckResponse represents health check response
type HealthCheckResponse struct {
	Status    string                 `json:"status" example:"healthy"`
	Timestamp int64                  `json:"timestamp" example:"1640995200"`
	Version   string                 `json:"version" example:"1.0.0"`
	Uptime    int64                  `json:"uptime" example:"86400"`
	Checks    map[string]HealthCheck `json:"checks,omitempty"`
}

// HealthCheck represents individual health check
type HealthCheck struct {
	Status  string `json:"status" example:"healthy"`
	Message string `json:"message,omitempty" example:"Service is running normally"`
	Latency string `json:"latency,omitempty" example:"5ms"`
}
