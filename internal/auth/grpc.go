package auth

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fieldDispatch/models"
)

// NewUnaryAuthInterceptor returns a gRPC unary interceptor that extracts and validates
// a Bearer JWT from incoming metadata and injects the Principal into the context.
// Methods listed in allowUnauthenticated will bypass authentication (e.g., health checks).
func NewUnaryAuthInterceptor(secret string, allowUnauthenticated ...string) grpc.UnaryServerInterceptor {
	allow := make(map[string]struct{}, len(allowUnauthenticated))
	for _, m := range allowUnauthenticated {
		allow[strings.TrimSpace(m)] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := allow[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		p, err := ParseFromMD(ctx, secret)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "auth error: %v", err)
		}
		return handler(WithPrincipal(ctx, p), req)
	}
}

// UserLookup resolves the stored user behind a principal.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// RequirePrincipal ensures a principal is present in context.
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: missing principal", ErrUnauthenticated)
	}
	return p, nil
}

// RequireRole ensures the principal's token carries one of roles.
func RequireRole(ctx context.Context, roles ...models.Role) (*Principal, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if p.Role == r {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: role %s cannot perform this action", ErrForbidden, p.Role)
}

// RequireDispatcher ensures the caller is an ADMIN or DISPATCHER and, when
// users is set, that the stored user still holds that role. This prevents
// acting on a token minted before a demotion.
func RequireDispatcher(ctx context.Context, users UserLookup) (*Principal, error) {
	p, err := RequireRole(ctx, models.RoleAdmin, models.RoleDispatcher)
	if err != nil {
		return nil, err
	}
	if users == nil {
		return p, nil
	}
	u, err := users.GetByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil || (u.Role != models.RoleAdmin && u.Role != models.RoleDispatcher) {
		return nil, fmt.Errorf("%w: only admin or dispatcher can perform this action", ErrForbidden)
	}
	return p, nil
}
