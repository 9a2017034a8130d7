package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Security SecurityConfig `mapstructure:"security"`
	AWS      AWSConfig      `mapstructure:"aws"`
	API      APIConfig      `mapstructure:"api"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Type         string        `mapstructure:"type"` // postgres, sqlite
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	Path         string        `mapstructure:"path"`    // For SQLite
	SSLMode      string        `mapstructure:"sslmode"` // For PostgreSQL
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// SecurityConfig holds request authentication configuration
type SecurityConfig struct {
	BasePath      string    `mapstructure:"base_path"`
	ExcludedPaths []string  `mapstructure:"excluded_paths"`
	JWT           JWTConfig `mapstructure:"jwt"`
}

// JWTConfig holds token issuance and verification settings
type JWTConfig struct {
	SigningSecret      string        `mapstructure:"signing_secret"` // base64
	CookieName         string        `mapstructure:"cookie_name"`
	CookieDomain       string        `mapstructure:"cookie_domain"` // issuer and audience
	AuthTokenHeader    string        `mapstructure:"auth_token_header"`
	SessionTimeoutMins int           `mapstructure:"session_timeout_mins"`
	Leeway             time.Duration `mapstructure:"leeway"`
}

// SessionTimeout returns the configured session length.
func (j JWTConfig) SessionTimeout() time.Duration {
	return time.Duration(j.SessionTimeoutMins) * time.Minute
}

// AWSConfig holds AWS integration configuration
type AWSConfig struct {
	Region   string   `mapstructure:"region"`
	Endpoint string   `mapstructure:"endpoint"` // optional, e.g. a local S3 emulator
	S3       S3Config `mapstructure:"s3"`
}

// S3Config holds bucket configuration
type S3Config struct {
	AudioBucket  string `mapstructure:"audio_bucket"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// APIConfig holds API-related configuration
type APIConfig struct {
	RateLimit  int           `mapstructure:"rate_limit"` // requests per minute
	BurstLimit int           `mapstructure:"burst_limit"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CORS       CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// ErrSigningSecretMissing is returned when no JWT signing secret is configured.
var ErrSigningSecretMissing = errors.New("JWT signing secret is required")

// LoadConfig loads configuration from file, .env and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional; real environment variables always win over it
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	// Allow environment variables
	v.SetEnvPrefix("COMMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				// Config file not found; use defaults and env vars
				fmt.Printf("Warning: Config file not found at %s, using defaults\n", configPath)
			} else {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./common.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_lifetime", "5m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Security defaults
	v.SetDefault("security.base_path", "")
	v.SetDefault("security.excluded_paths", []string{"/health", "/ping", "/api/v1/public"})
	v.SetDefault("security.jwt.signing_secret", "")
	v.SetDefault("security.jwt.cookie_name", "")
	v.SetDefault("security.jwt.cookie_domain", "bible.game")
	v.SetDefault("security.jwt.auth_token_header", "")
	v.SetDefault("security.jwt.session_timeout_mins", 30)
	v.SetDefault("security.jwt.leeway", "0s")

	// AWS defaults
	v.SetDefault("aws.region", "eu-west-2")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.s3.audio_bucket", "")
	v.SetDefault("aws.s3.use_path_style", false)

	// API defaults
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.burst_limit", 200)
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.cors.allow_credentials", true)
	v.SetDefault("api.cors.max_age", 86400)
}

// overrideWithEnvVars overrides config with specific environment variables
func overrideWithEnvVars(v *viper.Viper) {
	// Critical environment variables that should always override config
	envMappings := map[string]string{
		"JWT_SIGNING_SECRET": "security.jwt.signing_secret",
		"DB_PASSWORD":        "database.password",
		"DB_USER":            "database.user",
		"DB_HOST":            "database.host",
		"AWS_REGION":         "aws.region",
		"S3_AUDIO_BUCKET":    "aws.s3.audio_bucket",
		"S3_ENDPOINT":        "aws.endpoint",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	jwt := config.Security.JWT
	if jwt.SigningSecret == "" {
		return ErrSigningSecretMissing
	}

	if _, err := base64.StdEncoding.DecodeString(jwt.SigningSecret); err != nil {
		return fmt.Errorf("JWT signing secret must be base64 encoded: %w", err)
	}

	if jwt.SessionTimeoutMins <= 0 {
		return fmt.Errorf("JWT session timeout must be positive, got %d", jwt.SessionTimeoutMins)
	}

	if jwt.Leeway < 0 {
		return fmt.Errorf("JWT leeway must not be negative")
	}

	if config.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch config.Database.Type {
	case "postgres":
		if config.Database.Host == "" || config.Database.User == "" {
			return fmt.Errorf("postgres requires host and user")
		}
	case "sqlite":
		if config.Database.Path == "" {
			return fmt.Errorf("sqlite requires path")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}

	for _, p := range config.Security.ExcludedPaths {
		if p == "" {
			return fmt.Errorf("excluded paths must not contain empty entries")
		}
	}

	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	switch c.Database.Type {
	case "postgres":
		sslMode := c.Database.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Host, c.Database.Port, c.Database.User,
			c.Database.Password, c.Database.DBName, sslMode)
	case "sqlite":
		return c.Database.Path
	default:
		return ""
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Mode == "debug" || c.Server.Mode == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "release" || c.Server.Mode == "production"
}

// GinMode maps the server mode onto one gin accepts
func (c *Config) GinMode() string {
	switch {
	case c.IsProduction():
		return "release"
	case c.Server.Mode == "test":
		return "test"
	default:
		return "debug"
	}
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// SanitizeForLogging returns a copy of the config with sensitive data redacted
func (c *Config) SanitizeForLogging() *Config {
	sanitized := *c

	if sanitized.Database.Password != "" {
		sanitized.Database.Password = "[REDACTED]"
	}

	if sanitized.Security.JWT.SigningSecret != "" {
		sanitized.Security.JWT.SigningSecret = "[REDACTED]"
	}

	return &sanitized
}

// LoadConfigFromEnv loads configuration primarily from environment variables
func LoadConfigFromEnv() (*Config, error) {
	config := &Config{}

	// Server configuration
	config.Server.Host = getEnvOrDefault("SERVER_HOST", "0.0.0.0")
	config.Server.Port = getEnvOrDefault("SERVER_PORT", "8080")
	config.Server.Mode = getEnvOrDefault("GIN_MODE", "debug")
	config.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second)
	config.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second)
	config.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Database configuration
	config.Database.Type = getEnvOrDefault("DB_TYPE", "sqlite")
	config.Database.Host = getEnvOrDefault("DB_HOST", "localhost")
	config.Database.Port = getEnvInt("DB_PORT", 5432)
	config.Database.User = getEnvOrDefault("DB_USER", "common")
	config.Database.Password = os.Getenv("DB_PASSWORD")
	config.Database.DBName = getEnvOrDefault("DB_NAME", "common")
	config.Database.Path = getEnvOrDefault("DB_PATH", "./common.db")
	config.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	config.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 10)
	config.Database.MaxLifetime = getEnvDuration("DB_MAX_LIFETIME", 5*time.Minute)

	// Security configuration
	config.Security.BasePath = os.Getenv("SECURITY_BASE_PATH")
	config.Security.ExcludedPaths = getEnvList("SECURITY_EXCLUDED_PATHS", []string{"/health", "/ping", "/api/v1/public"})
	config.Security.JWT.SigningSecret = os.Getenv("JWT_SIGNING_SECRET")
	config.Security.JWT.CookieName = os.Getenv("JWT_COOKIE_NAME")
	config.Security.JWT.CookieDomain = getEnvOrDefault("JWT_COOKIE_DOMAIN", "bible.game")
	config.Security.JWT.AuthTokenHeader = os.Getenv("JWT_AUTH_TOKEN_HEADER")
	config.Security.JWT.SessionTimeoutMins = getEnvInt("JWT_SESSION_TIMEOUT_MINS", 30)
	config.Security.JWT.Leeway = getEnvDuration("JWT_LEEWAY", 0)

	// AWS configuration
	config.AWS.Region = getEnvOrDefault("AWS_REGION", "eu-west-2")
	config.AWS.Endpoint = os.Getenv("S3_ENDPOINT")
	config.AWS.S3.AudioBucket = os.Getenv("S3_AUDIO_BUCKET")
	config.AWS.S3.UsePathStyle = getEnvBool("S3_USE_PATH_STYLE", false)

	// Logging configuration
	config.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	config.Logging.Format = getEnvOrDefault("LOG_FORMAT", "text")
	config.Logging.File = os.Getenv("LOG_FILE")
	config.Logging.MaxSize = getEnvInt("LOG_MAX_SIZE", 100)
	config.Logging.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", 3)
	config.Logging.MaxAge = getEnvInt("LOG_MAX_AGE", 28)
	config.Logging.Compress = getEnvBool("LOG_COMPRESS", true)

	// API configuration
	config.API.RateLimit = getEnvInt("API_RATE_LIMIT", 100)
	config.API.BurstLimit = getEnvInt("API_BURST_LIMIT", 200)
	config.API.Timeout = getEnvDuration("API_TIMEOUT", 30*time.Second)
	config.API.CORS.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	config.API.CORS.AllowCredentials = getEnvBool("CORS_ALLOW_CREDENTIALS", true)
	config.API.CORS.MaxAge = getEnvInt("CORS_MAX_AGE", 86400)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
