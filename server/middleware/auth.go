package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// TenantHeader and UserHeader identify the caller when header auth is allowed.
	TenantHeader = "X-Tenant-ID"
	UserHeader   = "X-User-ID"
)

// ErrUnauthenticated is returned when a request carries no acceptable credentials.
var ErrUnauthenticated = errors.New("authentication required")

// Identity is the authenticated caller.
type Identity struct {
	TenantID string
	UserID   string
}

// Claims are the JWT claims accepted by the API. The user id is the subject.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Authenticator resolves the caller of a request from an HS256 bearer token or,
// when allowed, from plain identity headers.
type Authenticator struct {
	secret       []byte
	allowHeaders bool
}

// NewAuthenticator creates an authenticator. allowHeaders enables X-Tenant-ID/X-User-ID
// and should only be set in development.
func NewAuthenticator(secret string, allowHeaders bool) *Authenticator {
	return &Authenticator{secret: []byte(secret), allowHeaders: allowHeaders}
}

// Authenticate returns the caller identity or ErrUnauthenticated.
func (a *Authenticator) Authenticate(r *http.Request) (Identity, error) {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && len(a.secret) > 0 {
		return a.parseToken(strings.TrimSpace(token))
	}
	if a.allowHeaders {
		if tenant := strings.TrimSpace(r.Header.Get(TenantHeader)); tenant != "" {
			user := strings.TrimSpace(r.Header.Get(UserHeader))
			if user == "" {
				user = tenant
			}
			return Identity{TenantID: tenant, UserID: user}, nil
		}
	}
	return Identity{}, ErrUnauthenticated
}

func (a *Authenticator) parseToken(raw string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, errors.Wrap(ErrUnauthenticated, err.Error())
	}
	if claims.TenantID == "" || claims.Subject == "" {
		return Identity{}, errors.Wrap(ErrUnauthenticated, "token lacks tenant_id or sub")
	}
	return Identity{TenantID: claims.TenantID, UserID: claims.Subject}, nil
}

// SignToken issues an HS256 token for the identity. Used by `secretary token`.
func SignToken(secret string, id Identity, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = id.UserID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{TenantID: id.TenantID, RegisteredClaims: claims})
	signed, err := token.SignedString([]byte(secret))
	return signed, errors.Wrap(err, "failed to sign token")
}
