package auth

import "context"

// StaticVerifier maps literal tokens to principals. Test/dev use only.
type StaticVerifier struct {
	Tokens map[string]Principal
}

// VerifyToken looks the token up in the static table.
func (s *StaticVerifier) VerifyToken(_ context.Context, token string) (Principal, error) {
	if s == nil {
		return Principal{}, ErrInvalidToken
	}
	p, ok := s.Tokens[token]
	if !ok {
		return Principal{}, ErrInvalidToken
	}
	return p, nil
}
