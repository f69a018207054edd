package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/blackmichael/murmur/internal/config"
)

// UserHeader carries the acting user when a trusted gateway has already
// authenticated the request.
const UserHeader = "X-User-ID"

var errBadCredentials = errors.New("invalid credentials")

// identifier resolves the acting user of a request. It never issues
// credentials; it only verifies what the auth provider issued.
type identifier struct {
	secret      []byte
	issuer      string
	trustHeader bool
}

func newIdentifier(cfg config.AuthConfig) *identifier {
	return &identifier{
		secret:      []byte(cfg.JWTSecret),
		issuer:      cfg.Issuer,
		trustHeader: cfg.TrustUserHeader,
	}
}

// identify returns the user id for r, or "" for an anonymous request. A
// presented but unverifiable credential is an error, not an anonymous
// request.
func (id *identifier) identify(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", fmt.Errorf("%w: malformed authorization header", errBadCredentials)
		}
		return id.verify(token)
	}
	if id.trustHeader {
		return strings.TrimSpace(r.Header.Get(UserHeader)), nil
	}
	return "", nil
}

func (id *identifier) verify(tokenString string) (string, error) {
	if len(id.secret) == 0 {
		return "", fmt.Errorf("%w: bearer tokens are not accepted", errBadCredentials)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if id.issuer != "" {
		opts = append(opts, jwt.WithIssuer(id.issuer))
	}
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return id.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errBadCredentials, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: token has no subject", errBadCredentials)
	}
	return sub, nil
}
