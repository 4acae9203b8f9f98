package useCases

import (
	"context"

	"github.com/larriantoniy/freelance_client/internal/adapters/api"
	"github.com/larriantoniy/freelance_client/internal/ports"
)

// requireAuth returns the header or api.ErrAuthRequired when logged out.
func requireAuth(ctx context.Context, auth ports.Authorizer) (string, error) {
	header, ok := auth.AuthorizationHeader(ctx)
	if !ok {
		return "", api.ErrAuthRequired
	}
	return header, nil
}

// optionalAuth is for public endpoints that answer differently when a
// session is present.
func optionalAuth(ctx context.Context, auth ports.Authorizer) string {
	header, _ := auth.AuthorizationHeader(ctx)
	return header
}
