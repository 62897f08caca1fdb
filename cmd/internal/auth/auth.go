// Package auth defines the token verification boundary for realtime sessions.
//
// Token issuance and user registration live outside this server; the chat core
// only needs to turn a bearer token into a Principal (or reject it).
package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken covers missing, malformed, tampered and expired tokens.
var ErrInvalidToken = errors.New("auth: invalid token")

// Principal is the authenticated identity bound to a connection.
type Principal struct {
	UserID int64
	Email  string
}

// Verifier validates a bearer token and resolves its principal.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (Principal, error)
}
