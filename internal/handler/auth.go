package handler

import (
	"context"
	"net/http"
	"strings"
)

type userKey struct{}

// userFunc is a handler that runs with an authenticated user.
type userFunc func(w http.ResponseWriter, r *http.Request, userID int64)

func bearerToken(r *http.Request) string {
	v := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(v, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (h *Handler) authenticate(r *http.Request) (int64, bool) {
	token := bearerToken(r)
	if token == "" {
		return 0, false
	}
	id, err := h.tokens.Parse(token)
	if err != nil {
		return 0, false
	}
	return id, true
}

// requireUser answers 401 unless the request carries a valid bearer token.
func (h *Handler) requireUser(next userFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.authenticate(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="storefront"`)
			writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, id)), id)
	}
}

// optionalUser stores the user in the context when a valid token is present
// and otherwise serves the request anonymously.
func (h *Handler) optionalUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, ok := h.authenticate(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), userKey{}, id))
		}
		next(w, r)
	}
}

func userFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userKey{}).(int64)
	return id, ok
}
