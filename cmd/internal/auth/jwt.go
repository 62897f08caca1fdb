package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier validates HMAC-signed JWTs carrying a "user_id" claim.
// Expiry and not-before are enforced by the jwt library when present.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier constructs a verifier for the given HMAC secret.
func NewJWTVerifier(secret []byte) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("auth: empty jwt secret")
	}
	return &JWTVerifier{secret: secret}, nil
}

// VerifyToken parses and validates tokenStr and extracts the principal.
func (v *JWTVerifier) VerifyToken(_ context.Context, tokenStr string) (Principal, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return Principal{}, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, ErrInvalidToken
	}

	userID, err := claimInt64(claims, "user_id")
	if err != nil || userID <= 0 {
		return Principal{}, ErrInvalidToken
	}

	p := Principal{UserID: userID}
	if email, ok := claims["email"].(string); ok {
		p.Email = email
	}
	return p, nil
}

// claimInt64 tolerates the two encodings seen in the wild: JSON numbers
// (float64 after decoding) and numeric strings.
func claimInt64(claims jwt.MapClaims, key string) (int64, error) {
	switch v := claims[key].(type) {
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, ErrInvalidToken
		}
		return n, nil
	default:
		return 0, ErrInvalidToken
	}
}
