// Package auth provides JWT bearer-token authentication middleware and
// role extraction for the admin API surface.
package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/usgportal/issuance-registry/pkg/httpapi"
)

// Role is an access role carried in the token's role claim.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleStudent    Role = "STUDENT"
)

// Admin reports whether the role grants admin access.
func (r Role) Admin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Config configures the token authenticator.
type Config struct {
	// PublicKeyPath is the PEM-encoded RSA public key for RS256
	// verification. If empty, tokens are parsed but NOT verified,
	// suitable only behind a trusted proxy that already validated them.
	PublicKeyPath string

	// RoleClaim is the claim holding the user's role. Default "role".
	RoleClaim string

	// Issuer, if set, is validated against the iss claim.
	Issuer string

	// Audience, if set, is validated against the aud claim.
	Audience string

	Logger *slog.Logger
}

// Authenticator parses bearer tokens into an identity.
type Authenticator struct {
	cfg       Config
	publicKey *rsa.PublicKey
	logger    *slog.Logger
}

// Identity is the authenticated principal attached to the request context.
type Identity struct {
	Subject string
	Role    Role
}

// New creates an Authenticator. When cfg.PublicKeyPath is set the key
// is loaded eagerly so misconfiguration fails at startup.
func New(cfg Config) (*Authenticator, error) {
	if cfg.RoleClaim == "" {
		cfg.RoleClaim = "role"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Authenticator{cfg: cfg, logger: logger}
	if cfg.PublicKeyPath != "" {
		keyData, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read JWT public key from %s: %w", cfg.PublicKeyPath, err)
		}
		block, _ := pem.Decode(keyData)
		if block == nil {
			return nil, fmt.Errorf("decode PEM block from %s", cfg.PublicKeyPath)
		}
		parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse JWT public key: %w", err)
		}
		rsaKey, ok := parsedKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("JWT public key is %T, want *rsa.PublicKey", parsedKey)
		}
		a.publicKey = rsaKey
	} else {
		logger.Warn("JWT verification disabled: no public key configured, operating in trusted-proxy mode")
	}
	return a, nil
}

// Authenticate parses the Authorization header into an Identity.
func (a *Authenticator) Authenticate(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, httpapi.Unauthorized("missing bearer token")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, httpapi.Unauthorized("malformed authorization header")
	}

	claims := jwt.MapClaims{}
	if a.publicKey != nil {
		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
		if a.cfg.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
		}
		if a.cfg.Audience != "" {
			opts = append(opts, jwt.WithAudience(a.cfg.Audience))
		}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return a.publicKey, nil
		}, opts...)
		if err != nil || !token.Valid {
			return nil, httpapi.Unauthorized("invalid token")
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, httpapi.Unauthorized("invalid token")
		}
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, httpapi.Unauthorized("token has no subject")
	}

	role := RoleStudent
	if v, ok := claims[a.cfg.RoleClaim].(string); ok && v != "" {
		role = Role(strings.ToUpper(v))
	}

	return &Identity{Subject: subject, Role: role}, nil
}

type contextKey struct{ name string }

var identityKey = &contextKey{"identity"}

// WithIdentity attaches an identity to the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// ActorFromContext returns the authenticated subject, or "" when the
// request is anonymous.
func ActorFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Subject
	}
	return ""
}

// IsAdmin reports whether the context carries an admin identity.
func IsAdmin(ctx context.Context) bool {
	id := IdentityFromContext(ctx)
	return id != nil && id.Role.Admin()
}

// Required returns middleware rejecting unauthenticated requests.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Authenticate(r)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// AdminOnly returns middleware requiring an ADMIN or SUPER_ADMIN role.
func (a *Authenticator) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Authenticate(r)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		if !id.Role.Admin() {
			httpapi.WriteErr(w, httpapi.Forbidden("admin role required"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Optional returns middleware that attaches an identity when a valid
// token is present but lets anonymous requests through.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			if id, err := a.Authenticate(r); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}
