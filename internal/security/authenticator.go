package security

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bible-game/common/pkg/config"
)

// ErrorWriter renders a rejected request. status comes from StatusFor.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, err error)

// Authenticator verifies the token of every request whose path is not
// excluded and attaches the resulting Identity to the request context.
// Its configuration is copied at construction and never mutated.
type Authenticator struct {
	verifier  TokenVerifier
	extractor *Extractor
	basePath  string
	excluded  []string
	log       logrus.FieldLogger
	writeErr  ErrorWriter
}

// NewAuthenticator builds an authenticator from the security configuration.
func NewAuthenticator(cfg config.SecurityConfig, verifier TokenVerifier, log logrus.FieldLogger) *Authenticator {
	if log == nil {
		log = discardLogger()
	}

	excluded := make([]string, len(cfg.ExcludedPaths))
	copy(excluded, cfg.ExcludedPaths)

	return &Authenticator{
		verifier:  verifier,
		extractor: NewExtractor(cfg.JWT.CookieName, cfg.JWT.AuthTokenHeader, log),
		basePath:  strings.TrimSuffix(cfg.BasePath, "/"),
		excluded:  excluded,
		log:       log,
		writeErr:  plainError,
	}
}

// WithErrorWriter returns a copy of a that renders rejections with w.
func (a *Authenticator) WithErrorWriter(w ErrorWriter) *Authenticator {
	cp := *a
	if w != nil {
		cp.writeErr = w
	}
	return &cp
}

// RelativePath strips the application base path from the request path.
func (a *Authenticator) RelativePath(r *http.Request) string {
	path := r.URL.Path
	if a.basePath != "" && strings.HasPrefix(path, a.basePath) {
		path = strings.TrimPrefix(path, a.basePath)
	}
	if path == "" {
		return "/"
	}
	return path
}

// IsExcluded reports whether path starts with any excluded prefix. Matching
// is a plain string prefix, so "/public" also excludes "/publicx".
func (a *Authenticator) IsExcluded(path string) bool {
	for _, prefix := range a.excluded {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Authenticate runs the extraction and verification steps for r. It returns
// (nil, nil) when the path is excluded.
func (a *Authenticator) Authenticate(r *http.Request) (*Identity, error) {
	path := a.RelativePath(r)
	if a.IsExcluded(path) {
		a.log.Debugf("Path [%s] is excluded from authentication", path)
		return nil, nil
	}

	token, ok := a.extractor.Extract(r)
	if !ok {
		return nil, ErrTokenAbsent
	}

	claims, err := a.verifier.Verify(token)
	if err != nil {
		if IsVerificationError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedFailure, err)
	}

	return NewIdentity(claims), nil
}

// AuthenticateSafely is Authenticate with panics converted to ErrUnexpectedFailure.
func (a *Authenticator) AuthenticateSafely(r *http.Request) (id *Identity, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			a.log.WithField("panic", rec).Error("Unexpected failure while authenticating request")
			id, err = nil, ErrUnexpectedFailure
		}
	}()
	return a.Authenticate(r)
}

// Filter authenticates r and writes the rejection to w on failure. ok is
// false when the request must not be handled any further. id is nil for
// excluded paths.
func (a *Authenticator) Filter(w http.ResponseWriter, r *http.Request) (id *Identity, ok bool) {
	id, err := a.AuthenticateSafely(r)
	if err != nil {
		a.reject(w, r, err)
		return nil, false
	}
	return id, true
}

// Middleware wraps next so that it only runs for excluded paths or requests
// carrying a valid token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := a.Filter(w, r)
		if !ok {
			return
		}

		if id != nil && IdentityFromContext(r.Context()) == nil {
			r = r.WithContext(ContextWithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) reject(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	entry := a.log.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"method": r.Method,
	})
	if status == http.StatusInternalServerError {
		entry.WithError(err).Error("Authentication failed unexpectedly")
		// internal detail stays in the log
		err = ErrUnexpectedFailure
	} else {
		entry.WithField("reason", reason(err)).Info("Rejected unauthenticated request")
	}
	a.writeErr(w, r, status, err)
}

// reason returns a log-safe description without token or claim contents.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrTokenAbsent):
		return "token_absent"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrTokenMalformed):
		return "token_malformed"
	default:
		return "unexpected"
	}
}

func plainError(w http.ResponseWriter, _ *http.Request, status int, _ error) {
	http.Error(w, http.StatusText(status), status)
}
