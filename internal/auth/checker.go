package auth

import "context"

// Checker tells whether a session token belongs to a live session.
type Checker interface {
	IsLogged(ctx context.Context, token string) (bool, error)
}

var (
	_ Checker = (*LoginChecker)(nil)
	_ Checker = (*LoginTestChecker)(nil)
)
