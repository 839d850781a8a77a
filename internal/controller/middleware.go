package controller

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireCronSecret guards the tick trigger with a shared-secret bearer
// credential. Requests without a valid credential get 401; an empty
// configured secret rejects everything.
func RequireCronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if secret == "" || !ok ||
				subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
