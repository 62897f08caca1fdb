package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestJWTVerifier(t *testing.T) {
	t.Parallel()

	v, err := NewJWTVerifier([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	future := time.Now().Add(time.Hour).Unix()
	past := time.Now().Add(-time.Hour).Unix()

	cases := []struct {
		name  string
		token string
		want  Principal
		ok    bool
	}{
		{
			name:  "valid numeric user id",
			token: signToken(t, testSecret, jwt.MapClaims{"user_id": float64(7), "exp": future}),
			want:  Principal{UserID: 7},
			ok:    true,
		},
		{
			name:  "valid string user id",
			token: signToken(t, testSecret, jwt.MapClaims{"user_id": "12", "exp": future}),
			want:  Principal{UserID: 12},
			ok:    true,
		},
		{
			name:  "email claim carried over",
			token: signToken(t, testSecret, jwt.MapClaims{"user_id": float64(7), "email": "a@b.c", "exp": future}),
			want:  Principal{UserID: 7, Email: "a@b.c"},
			ok:    true,
		},
		{
			name:  "wrong secret",
			token: signToken(t, "other-secret", jwt.MapClaims{"user_id": float64(7), "exp": future}),
		},
		{
			name:  "expired",
			token: signToken(t, testSecret, jwt.MapClaims{"user_id": float64(7), "exp": past}),
		},
		{
			name:  "missing user id",
			token: signToken(t, testSecret, jwt.MapClaims{"exp": future}),
		},
		{
			name:  "non-numeric user id",
			token: signToken(t, testSecret, jwt.MapClaims{"user_id": "abc", "exp": future}),
		},
		{
			name:  "zero user id",
			token: signToken(t, testSecret, jwt.MapClaims{"user_id": float64(0), "exp": future}),
		},
		{
			name:  "empty token",
			token: "",
		},
		{
			name:  "garbage token",
			token: "not.a.jwt",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := v.VerifyToken(context.Background(), tc.token)
			if !tc.ok {
				if !errors.Is(err, ErrInvalidToken) {
					t.Fatalf("err=%v want ErrInvalidToken", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("principal=%+v want=%+v", got, tc.want)
			}
		})
	}
}

func TestJWTVerifierRejectsNonHMAC(t *testing.T) {
	t.Parallel()

	v, err := NewJWTVerifier([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	// alg=none tokens must never validate.
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": float64(7)})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := v.VerifyToken(context.Background(), s); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err=%v want ErrInvalidToken", err)
	}
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTVerifier(nil); err == nil {
		t.Fatal("empty secret accepted")
	}
}

func TestStaticVerifier(t *testing.T) {
	t.Parallel()

	v := &StaticVerifier{Tokens: map[string]Principal{
		"dev-token": {UserID: 1},
	}}

	p, err := v.VerifyToken(context.Background(), "dev-token")
	if err != nil || p.UserID != 1 {
		t.Fatalf("principal=%+v err=%v", p, err)
	}

	if _, err := v.VerifyToken(context.Background(), "unknown"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err=%v want ErrInvalidToken", err)
	}
}
