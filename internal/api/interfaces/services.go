package interfaces

import (
	"context"

	"github.com/bible-game/common/internal/database"
	"github.com/bible-game/common/pkg/config"
	"github.com/bible-game/common/pkg/logger"
)

// AudioStore keeps passage audio
type AudioStore interface {
	UploadAudio(ctx context.Context, passageKey string, content []byte) (string, error)
	GetAudio(ctx context.Context, passageKey string) ([]byte, error)
}

// UserStore loads and updates platform users
type UserStore interface {
	GetByID(ctx context.Context, userID int64) (*database.User, error)
	Update(ctx context.Context, user *database.User) error
	Touch(ctx context.Context, userID int64) error
}

// Services defines the interface for API services
type Services interface {
	GetLogger() *logger.Logger
	GetConfig() *config.Config
	TokenIssuer() TokenIssuer
	AudioStore() AudioStore
	UserStore() UserStore
	PingDatabase(ctx context.Context) error
}
