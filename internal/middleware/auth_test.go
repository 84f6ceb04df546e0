package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/reminders/pkg/httpcontext"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func serve(mw Middleware, authorization string) (*fasthttp.RequestCtx, string) {
	var rc fasthttp.RequestCtx
	if authorization != "" {
		rc.Request.Header.Set("Authorization", authorization)
	}
	rc.Request.Header.Set("X-User-ID", "spoofed")

	seen := ""
	mw(func(ctx *fasthttp.RequestCtx) {
		seen = httpcontext.UserID(ctx)
		ctx.SetStatusCode(http.StatusOK)
	})(&rc)
	return &rc, seen
}

func TestJWTAuthSetsVerifiedUser(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"user_id": "u1",
		"iss":     "reminders",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	rc, seen := serve(JWTAuth(secret, "reminders", nil), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rc.Response.StatusCode())
	assert.Equal(t, "u1", seen)
}

func TestJWTAuthFallsBackToSubject(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "u2"})
	_, seen := serve(JWTAuth(secret, "", nil), "bearer "+token)
	assert.Equal(t, "u2", seen)
}

func TestJWTAuthRejects(t *testing.T) {
	cases := map[string]string{
		"missing":      "",
		"garbage":      "Bearer not-a-token",
		"wrong secret": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"user_id": "u1"}),
		"expired": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
			"user_id": "u1",
			"exp":     time.Now().Add(-time.Minute).Unix(),
		}),
		"wrong issuer": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"user_id": "u1", "iss": "elsewhere"}),
		"no user":      "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"scope": "read"}),
		"alg none":     "Bearer " + sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"user_id": "u1"}),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rc, seen := serve(JWTAuth(secret, "reminders", nil), header)
			assert.Equal(t, http.StatusUnauthorized, rc.Response.StatusCode())
			assert.Empty(t, seen)
			assert.Contains(t, string(rc.Response.Body()), "UNAUTHORIZED")
		})
	}
}

type stubVerifier struct {
	uid string
	err error
}

func (s stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &auth.Token{UID: s.uid}, nil
}

func TestFirebaseAuth(t *testing.T) {
	rc, seen := serve(FirebaseAuth(stubVerifier{uid: "firebase-uid"}, nil), "Bearer id-token")
	assert.Equal(t, http.StatusOK, rc.Response.StatusCode())
	assert.Equal(t, "firebase-uid", seen)

	rc, seen = serve(FirebaseAuth(stubVerifier{err: errors.New("expired")}, nil), "Bearer id-token")
	assert.Equal(t, http.StatusUnauthorized, rc.Response.StatusCode())
	assert.Empty(t, seen)

	rc, _ = serve(FirebaseAuth(stubVerifier{uid: "x"}, nil), "")
	assert.Equal(t, http.StatusUnauthorized, rc.Response.StatusCode())
}
