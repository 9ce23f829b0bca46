package port

import "context"

// Authorizer is the session check-in boundary. The pipeline never holds
// credentials itself; it only asks whether a presented token may submit.
type Authorizer interface {
	IsAuthorized(ctx context.Context, token string) bool
}
