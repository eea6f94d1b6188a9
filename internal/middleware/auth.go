package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
)

// SessionCookie is the cookie the auth provider stores its session token in.
const SessionCookie = "__session"

type identityKey struct{}

// SessionClaims are the token claims issued by the auth provider.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 session tokens.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for tokens signed with secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses the token and returns the identity it asserts.
func (v *TokenVerifier) Verify(token string) (models.Identity, error) {
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return models.Identity{}, errors.New("missing token")
	}
	if len(v.secret) == 0 {
		return models.Identity{}, errors.New("missing secret")
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("could not parse token: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return models.Identity{}, errors.New("invalid token")
	}

	return models.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Sign issues a token for the identity. It is used by tests and local tooling;
// production tokens come from the auth provider.
func (v *TokenVerifier) Sign(id models.Identity, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = id.UserID
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{Email: id.Email, RegisteredClaims: claims})
	s, err := tok.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return s, nil
}

// Authenticate attaches the caller's identity to the request context when a
// valid token is presented. Requests without one continue anonymously.
func Authenticate(v *TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("Authorization")
			if token == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					token = c.Value
				}
			}
			if token != "" {
				id, err := v.Verify(token)
				if err != nil {
					log.Printf("[auth] rejected session token: %v", err)
				} else {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the authenticated caller, if any.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	if !ok || id.UserID == "" {
		return models.Identity{}, false
	}
	return id, true
}
