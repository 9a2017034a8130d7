package interfaces

// TokenIssuer issues session tokens for users
type TokenIssuer interface {
	GenerateFor(userID int64) (string, error)
}
