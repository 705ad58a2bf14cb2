package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	AttendantIDKey   contextKey = "attendant_id"
	AttendantRoleKey contextKey = "attendant_role"
)

// SessionClaims are the JWT claims issued for an authenticated attendant
// session.
type SessionClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// TokenIssuer signs and verifies attendant session tokens. Tokens are
// HS256-signed with a shared secret.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// DefaultSessionTTL is how long an attendant session token remains valid.
const DefaultSessionTTL = 12 * time.Hour

// NewTokenIssuer creates an issuer with the given HMAC secret.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: "connect",
		ttl:    DefaultSessionTTL,
	}
}

// Issue returns a signed session token for the given attendant.
func (ti *TokenIssuer) Issue(attendantID uuid.UUID, name, role string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   attendantID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
		Name: name,
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

// Verify parses and validates a session token, returning its claims.
func (ti *TokenIssuer) Verify(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(ti.issuer),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// SessionMiddleware returns an Echo middleware that authenticates panel
// requests with a Bearer session token. On success the attendant's ID and
// role are placed on both the echo context and the request context.
func SessionMiddleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Verify(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set("attendant_id", claims.Subject)
			c.Set("attendant_role", claims.Role)

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, AttendantIDKey, claims.Subject)
			ctx = context.WithValue(ctx, AttendantRoleKey, claims.Role)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireRole returns a middleware that rejects requests whose session
// role is not in the allowed set. It must run after SessionMiddleware.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("attendant_role").(string)
			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}

// AttendantIDFromContext returns the authenticated attendant's ID from a
// request context, or the empty string when unauthenticated.
func AttendantIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(AttendantIDKey).(string)
	return id
}

// RoleFromContext returns the authenticated attendant's role.
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(AttendantRoleKey).(string)
	return role
}
