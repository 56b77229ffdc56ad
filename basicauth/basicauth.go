// Package basicauth guards http handlers with HTTP basic authentication.
package basicauth

import (
	"crypto/subtle"
	"net/http"
)

type Credentials struct {
	User     string
	Password string
}

// Enabled reports whether c requires authentication. Empty User disables it.
func (c Credentials) Enabled() bool { return c.User != "" }

func (c Credentials) match(user, password string) bool {
	uok := subtle.ConstantTimeCompare([]byte(user), []byte(c.User)) == 1
	pok := subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	return uok && pok
}

// Middleware rejects requests without matching credentials with 401. It
// passes everything through when c is not Enabled.
func Middleware(realm string, c Credentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !c.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, password, ok := r.BasicAuth()
			if !ok || !c.match(user, password) {
				w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
				w.Header().Set("Content-Type", "text/plain")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte("Authentication Required."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
