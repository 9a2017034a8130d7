// Package security issues and verifies platform auth tokens and authenticates
// inbound HTTP requests with them.
package security

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bible-game/common/pkg/config"
)

// Claims is the decoded payload of a verified token.
type Claims = jwt.MapClaims

// TokenVerifier verifies a token string and returns its claims.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// TokenManager issues and verifies HMAC-signed tokens. It holds no mutable
// state after construction and is safe for concurrent use.
type TokenManager struct {
	cfg    config.JWTConfig
	key    []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
	log    logrus.FieldLogger
}

// Option configures a TokenManager.
type Option func(*TokenManager)

// WithClock replaces the wall clock used for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *TokenManager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewTokenManager decodes the signing secret and validates the JWT settings.
// It fails instead of deferring problems to the first request.
func NewTokenManager(cfg config.JWTConfig, opts ...Option) (*TokenManager, error) {
	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("%w: jwt signing secret", ErrConfigurationMissing)
	}

	key, err := base64.StdEncoding.DecodeString(cfg.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: jwt signing secret is not base64: %v", ErrConfigurationMissing, err)
	}

	method, err := methodForKey(key)
	if err != nil {
		return nil, err
	}

	if cfg.SessionTimeoutMins <= 0 {
		return nil, fmt.Errorf("%w: jwt session timeout", ErrConfigurationMissing)
	}

	if cfg.Leeway < 0 {
		return nil, fmt.Errorf("%w: jwt leeway must not be negative", ErrConfigurationMissing)
	}

	m := &TokenManager{
		cfg:    cfg,
		key:    key,
		method: method,
		now:    time.Now,
		log:    discardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// methodForKey picks the strongest HMAC algorithm the key length supports.
func methodForKey(key []byte) (*jwt.SigningMethodHMAC, error) {
	switch bits := len(key) * 8; {
	case bits >= 512:
		return jwt.SigningMethodHS512, nil
	case bits >= 384:
		return jwt.SigningMethodHS384, nil
	case bits >= 256:
		return jwt.SigningMethodHS256, nil
	default:
		return nil, fmt.Errorf("%w: got %d bits", ErrWeakSigningKey, bits)
	}
}

// Algorithm returns the JWS algorithm name used for signing.
func (m *TokenManager) Algorithm() string {
	return m.method.Alg()
}

// Issue builds a signed token for subject that expires after sessionTimeout.
// issuer is used as both the iss claim and the single audience.
func (m *TokenManager) Issue(subject string, sessionTimeout time.Duration, issuer string) (string, error) {
	if sessionTimeout <= 0 {
		return "", fmt.Errorf("session timeout must be positive, got %s", sessionTimeout)
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{issuer},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTimeout)),
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"subject": subject,
		"jti":     claims.ID,
		"expires": claims.ExpiresAt.Time,
	}).Debug("Issued token")

	return signed, nil
}

// GenerateFor issues a session token for a user id using the configured
// session timeout and cookie domain.
func (m *TokenManager) GenerateFor(userID int64) (string, error) {
	return m.Issue(strconv.FormatInt(userID, 10), m.cfg.SessionTimeout(), m.cfg.CookieDomain)
}

// Verify checks the token signature and expiry and returns its claims.
// Failures are reported as ErrTokenMalformed, ErrInvalidSignature or ErrTokenExpired.
func (m *TokenManager) Verify(token string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithLeeway(m.cfg.Leeway),
		jwt.WithExpirationRequired(),
	)

	claims := Claims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

// ClaimString returns a string claim.
func ClaimString(claims Claims, field string) (string, bool) {
	v, ok := claims[field].(string)
	return v, ok
}

// ClaimInt64 returns an integer claim. JSON numbers and numeric strings are
// both accepted since the subject claim carries user ids as strings.
func ClaimInt64(claims Claims, field string) (int64, bool) {
	switch v := claims[field].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
