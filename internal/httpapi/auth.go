package httpapi

import (
	"context"
	"net/http"
	"strings"

	"tourbook-backend/internal/identity"
	"tourbook-backend/internal/model"
)

type ctxKey int

const (
	principalKey ctxKey = iota
	profileKey
)

// authenticate verifies the bearer token and attaches the principal id and its
// profile to the request context. A principal without a profile gets a nil
// profile and is treated as a customer.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeStatus(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		principal, err := identity.PrincipalFromToken(strings.TrimSpace(token), a.secret)
		if err != nil {
			writeStatus(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := r.Context()
		profile, err := a.identity.ResolveProfile(ctx, principal)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx = context.WithValue(ctx, principalKey, principal)
		ctx = context.WithValue(ctx, profileKey, profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFrom(ctx context.Context) string {
	s, _ := ctx.Value(principalKey).(string)
	return s
}

func profileFrom(ctx context.Context) *model.Profile {
	p, _ := ctx.Value(profileKey).(*model.Profile)
	return p
}

// caller is the profile used for ownership checks. A principal without a
// profile is represented as a customer with the principal's id.
func caller(ctx context.Context) *model.Profile {
	if p := profileFrom(ctx); p != nil {
		return p
	}
	return &model.Profile{ID: principalFrom(ctx), Role: model.RoleCustomer}
}
