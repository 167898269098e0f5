package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"

	"fieldDispatch/models"
)

var (
	// ErrUnauthenticated means no valid bearer token was presented.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrForbidden means the caller's role may not perform the operation.
	ErrForbidden = errors.New("auth: forbidden")
)

// Principal represents the authenticated caller from JWT.
type Principal struct {
	ID   string // user id, the token subject
	Name string
	Role models.Role
}

type principalKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from context (if any).
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

type claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseFromMD extracts and validates a Bearer JWT from gRPC metadata and returns a Principal.
func ParseFromMD(ctx context.Context, secret string) (*Principal, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: missing metadata", ErrUnauthenticated)
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: missing authorization", ErrUnauthenticated)
	}
	return ParseBearer(vals[0], secret)
}

// ParseBearer validates an Authorization header value of the form "Bearer <jwt>".
func ParseBearer(header, secret string) (*Principal, error) {
	if header == "" {
		return nil, fmt.Errorf("%w: missing authorization", ErrUnauthenticated)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, fmt.Errorf("%w: invalid authorization header", ErrUnauthenticated)
	}
	return parseJWT(strings.TrimSpace(parts[1]), secret)
}

// parseJWT validates and extracts claims from a JWT token.
func parseJWT(tokenStr string, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.Subject == "" {
		return nil, fmt.Errorf("%w: invalid claims", ErrUnauthenticated)
	}
	role := models.Role(strings.ToUpper(strings.TrimSpace(c.Role)))
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrUnauthenticated, c.Role)
	}
	return &Principal{ID: c.Subject, Name: c.Name, Role: role}, nil
}

// IssueToken signs an HS256 token for p. A zero ttl issues a token without expiry.
func IssueToken(secret string, p Principal, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	c := claims{
		Name: p.Name,
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  p.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}
