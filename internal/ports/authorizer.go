package ports

import "context"

// Authorizer supplies the Authorization header of the current session.
type Authorizer interface {
	AuthorizationHeader(ctx context.Context) (string, bool)
}
