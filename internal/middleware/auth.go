// Package middleware adapts the teacher's AuthMiddleware shape to
// SPEC_FULL.md §2.6's minimal admin surface: there is no user table, only
// a single static admin credential guarding the ingestion-trigger
// endpoints, so there is no AuthMiddleware.AdminOnly stacked on top of an
// Authenticate — one middleware checks the bearer JWT and that is the
// whole admin authorization model.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/randcorp/docscope/internal/apierr"
)

type contextKey string

const adminSubjectKey contextKey = "adminSubject"

// AdminAuth validates the bearer JWT guarding POST /admin/ingest/{source}
// against secret, the value of ADMIN_JWT_SECRET (config.AdminConfig.JWTSecret),
// and verifies the one admin credential POST /admin/login accepts against
// passwordHash (config.AdminConfig.PasswordHash), a bcrypt hash set out of
// band by whoever operates the ingestion trigger.
type AdminAuth struct {
	secret       []byte
	passwordHash []byte
}

func NewAdminAuth(secret, passwordHash string) *AdminAuth {
	return &AdminAuth{secret: []byte(secret), passwordHash: []byte(passwordHash)}
}

// VerifyPassword checks password against the configured bcrypt hash. It
// returns false, not an error, when no PasswordHash was configured at all —
// that deployment mode mints tokens out of band and /admin/login is simply
// never reachable.
func (a *AdminAuth) VerifyPassword(password string) bool {
	if len(a.passwordHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
}

// adminClaims is deliberately minimal: there is exactly one admin
// principal, so the only claim that matters is standard expiry.
type adminClaims struct {
	jwt.RegisteredClaims
}

// IssueToken mints a bearer token for the operator to present to the
// ingestion-trigger endpoints, valid for expiry.
func (a *AdminAuth) IssueToken(subject string, expiry time.Duration) (string, error) {
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Require is chi middleware: it rejects any request without a valid
// bearer token signed by secret, writing the spec.md §6 error payload
// shape directly — the admin surface sits outside the Query API's
// parse/validate/plan pipeline, so it owns its own error writer.
func (a *AdminAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			apierr.WriteHTTP(w, r, apierr.Invalidf("missing or malformed Authorization header"))
			return
		}

		claims := &adminClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			apierr.WriteHTTP(w, r, apierr.New(apierr.CodeInvalidParameter, "invalid or expired admin token"))
			return
		}

		ctx := context.WithValue(r.Context(), adminSubjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminSubject returns the token subject Require attached to ctx.
func AdminSubject(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(adminSubjectKey).(string)
	return s, ok
}
