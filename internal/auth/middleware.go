package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fruivita/sci/internal/platform/httpx"
	"github.com/fruivita/sci/internal/shared"
)

const bearer = "Bearer "

// Middleware rejects requests without a valid bearer token and stores the
// caller's user id on the request context.
func Middleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractBearerToken(r.Header.Get("Authorization"))
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			id, err := tokens.Parse(token)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActorID(r.Context(), id)))
		})
	}
}

var errMissingToken = errors.Join(shared.ErrUnauthorized, errors.New("missing bearer token"))

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingToken
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.Join(shared.ErrUnauthorized, errors.New("invalid authorization scheme"))
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}
