package domain

import "context"

// Principal identifies the caller of a registry operation. Subject is the
// owner identity recorded on registration.
type Principal struct {
	Subject   string
	RawClaims map[string]any
}

type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (Principal, error)
}
