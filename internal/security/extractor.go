package security

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// AuthorizationHeader is always consulted after the cookie.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is stripped from whichever source yields the token.
	BearerPrefix = "Bearer "
)

// Extractor locates a token in a request. Sources are tried in order: the
// configured cookie, the Authorization header, then the alternate header.
type Extractor struct {
	cookieName string
	altHeader  string
	log        logrus.FieldLogger
}

// NewExtractor creates an extractor. Empty cookieName or altHeader disable
// that source.
func NewExtractor(cookieName, altHeader string, log logrus.FieldLogger) *Extractor {
	if log == nil {
		log = discardLogger()
	}
	return &Extractor{
		cookieName: strings.TrimSpace(cookieName),
		altHeader:  strings.TrimSpace(altHeader),
		log:        log,
	}
}

// Extract returns the raw token string, or false when no source has one.
// A missing token is not an error; the caller decides whether it matters.
func (e *Extractor) Extract(r *http.Request) (string, bool) {
	var token string

	if e.cookieName != "" {
		e.log.Debugf("Finding auth cookie: %s", e.cookieName)
		if c, err := r.Cookie(e.cookieName); err == nil {
			token = c.Value
		}
	}

	if isBlank(token) {
		e.log.Debugf("Finding auth header: %s", AuthorizationHeader)
		token = r.Header.Get(AuthorizationHeader)
	}

	if isBlank(token) && e.altHeader != "" {
		e.log.Debugf("Finding auth header [%s]", e.altHeader)
		token = r.Header.Get(e.altHeader)
	}

	if isBlank(token) {
		e.log.Warn("Token not found in the request")
		return "", false
	}

	token = strings.TrimPrefix(token, BearerPrefix)
	if isBlank(token) {
		return "", false
	}

	return token, true
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
