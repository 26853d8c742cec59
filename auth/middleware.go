package auth

import (
	"context"
	"net/http"
	"pairchat/domain"
	"strings"
)

type contextKey string

const (
	IdentityKey   contextKey = "identity"
	CredentialKey contextKey = "credential"
)

// BearerToken reads the token from the Authorization header, falling back to the
// "token" query parameter since browsers cannot set headers on a websocket upgrade.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

// Middleware refuses the request with 401 unless its token resolves to a known identity.
func Middleware(authenticator *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, credential, err := authenticator.Authenticate(r.Context(), BearerToken(r))
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			ctx = context.WithValue(ctx, CredentialKey, credential)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(domain.Identity)
	return identity, ok
}

func CredentialFromContext(ctx context.Context) (domain.Credential, bool) {
	credential, ok := ctx.Value(CredentialKey).(domain.Credential)
	return credential, ok
}
