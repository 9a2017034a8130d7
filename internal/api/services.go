package api

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bible-game/common/internal/api/interfaces"
	"github.com/bible-game/common/internal/database"
	"github.com/bible-game/common/internal/database/repositories"
	"github.com/bible-game/common/internal/security"
	"github.com/bible-game/common/internal/storage"
	"github.com/bible-game/common/pkg/config"
	"github.com/bible-game/common/pkg/logger"
)

// Services contains all the dependencies for API handlers
type Services struct {
	// Core dependencies
	DB      *sql.DB
	Dialect database.Dialect
	Logger  *logger.Logger
	Config  *config.Config

	// Security
	Tokens        *security.TokenManager
	Authenticator *security.Authenticator

	// Storage, nil when no audio bucket is configured
	Bucket *storage.BucketService

	// Repositories
	userRepository *repositories.UserRepository
}

// NewServices creates a new services container
func NewServices(
	db *sql.DB,
	dialect database.Dialect,
	tokens *security.TokenManager,
	bucket *storage.BucketService,
	logger *logger.Logger,
	config *config.Config,
) *Services {
	services := &Services{
		DB:      db,
		Dialect: dialect,
		Logger:  logger,
		Config:  config,
		Tokens:  tokens,
		Bucket:  bucket,
	}

	services.Authenticator = security.NewAuthenticator(
		config.Security,
		tokens,
		logger.WithComponent("security").Entry(),
	)

	if db != nil {
		services.userRepository = repositories.NewUserRepository(db, dialect)
	}

	return services
}

// Interface implementation methods
func (s *Services) GetLogger() *logger.Logger {
	return s.Logger
}

func (s *Services) GetConfig() *config.Config {
	return s.Config
}

func (s *Services) TokenIssuer() interfaces.TokenIssuer {
	return s.Tokens
}

func (s *Services) AudioStore() interfaces.AudioStore {
	if s.Bucket == nil {
		return unconfiguredStore{}
	}
	return s.Bucket
}

func (s *Services) UserStore() interfaces.UserStore {
	if s.userRepository == nil {
		return unconfiguredStore{}
	}
	return s.userRepository
}

// PingDatabase checks the database connection
func (s *Services) PingDatabase(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("database is not configured")
	}
	return s.DB.PingContext(ctx)
}

// unconfiguredStore stands in for dependencies that were not wired.
type unconfiguredStore struct{}

func (unconfiguredStore) UploadAudio(context.Context, string, []byte) (string, error) {
	return "", storage.ErrBucketNotConfigured
}

func (unconfiguredStore) GetAudio(context.Context, string) ([]byte, error) {
	return nil, storage.ErrBucketNotConfigured
}

func (unconfiguredStore) GetByID(context.Context, int64) (*database.User, error) {
	return nil, repositories.ErrNotFound
}

func (unconfiguredStore) Update(context.Context, *database.User) error {
	return repositories.ErrNotFound
}

func (unconfiguredStore) Touch(context.Context, int64) error {
	return repositories.ErrNotFound
}
