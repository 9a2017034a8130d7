package models

// SessionRequest asks for a token to be issued for a user id
type SessionRequest struct {
	UserID int64 `json:"user_id" binding:"required,gt=0" example:"42"`
}

// UserUpdateRequest represents a profile update of the current user
type UserUpdateRequest struct {
	Email       string `json:"email,omitempty" binding:"omitempty,email"`
	DisplayName string `json:"display_name,omitempty" binding:"omitempty,max=100"`
}
