package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruivita/sci/internal/shared"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokens(t *testing.T) *Tokens {
	t.Helper()
	tokens, err := NewTokens(testSecret)
	require.NoError(t, err)
	return tokens
}

func TestIssueAndParse(t *testing.T) {
	tokens := newTestTokens(t)
	token, err := tokens.Issue(42, time.Hour)
	require.NoError(t, err)

	id, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestParseRejects(t *testing.T) {
	tokens := newTestTokens(t)
	other, err := NewTokens("ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	foreign, err := other.Issue(42, time.Hour)
	require.NoError(t, err)

	expired, err := tokens.Issue(42, time.Minute)
	require.NoError(t, err)
	later := newTestTokens(t)
	later.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "42",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tc := range map[string]struct {
		tokens *Tokens
		token  string
	}{
		"empty":     {tokens, ""},
		"garbage":   {tokens, "not-a-token"},
		"wrong key": {tokens, foreign},
		"expired":   {later, expired},
		"unsigned":  {tokens, none},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tc.tokens.Parse(tc.token)
			require.ErrorIs(t, err, shared.ErrUnauthorized)
		})
	}
}

func TestNewTokensRequiresLongSecret(t *testing.T) {
	_, err := NewTokens("short")
	require.Error(t, err)
}

func TestIssueValidatesInput(t *testing.T) {
	tokens := newTestTokens(t)
	_, err := tokens.Issue(0, time.Hour)
	require.Error(t, err)
	_, err = tokens.Issue(1, 0)
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	tokens := newTestTokens(t)
	token, err := tokens.Issue(7, time.Hour)
	require.NoError(t, err)

	handler := Middleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := shared.ActorIDFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, int64(7), id)
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := map[string]struct {
		header string
		want   int
	}{
		"valid":          {header: "Bearer " + token, want: http.StatusNoContent},
		"lowercase":      {header: "bearer " + token, want: http.StatusNoContent},
		"missing":        {want: http.StatusUnauthorized},
		"wrong scheme":   {header: "Basic abc", want: http.StatusUnauthorized},
		"empty bearer":   {header: "Bearer   ", want: http.StatusUnauthorized},
		"invalid bearer": {header: "Bearer abc", want: http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
