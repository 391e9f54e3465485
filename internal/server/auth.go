package server

import (
	"net/http"
	"strings"

	"github.com/aegisai/aegis-core/pkg/domain"
)

// Principal identifies an authenticated caller. The API key ID doubles as the
// rate-limit bucket key.
type Principal struct {
	CustomerID string
	APIKeyID   string
}

// Authenticator resolves the caller identity from a request. Credential
// verification itself lives with the issuing service; implementations here
// only extract and sanity-check the identity the edge already established.
type Authenticator interface {
	Authenticate(r *http.Request) (Principal, error)
}

// HeaderAuthenticator is the reference Authenticator: it trusts the identity
// headers set by the authenticating proxy in front of this service.
type HeaderAuthenticator struct{}

// Authenticate reads X-API-Key-ID and X-Customer-ID.
func (HeaderAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	keyID := strings.TrimSpace(r.Header.Get("X-API-Key-ID"))
	if keyID == "" {
		return Principal{}, domain.ErrAuthenticationFailed
	}
	return Principal{
		APIKeyID:   keyID,
		CustomerID: strings.TrimSpace(r.Header.Get("X-Customer-ID")),
	}, nil
}
