package httpapi

import (
	"crypto/subtle"
	"net/http"
)

// requireAdminKey guards the trusted management routes. The key arrives
// as a bearer credential; comparison is constant-time so it cannot be
// probed byte by byte.
func (a *API) requireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.opts.AdminAPIKey == "" {
			writeError(w, r, http.StatusServiceUnavailable, "admin API disabled")
			return
		}
		got, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.opts.AdminAPIKey)) != 1 {
			writeError(w, r, http.StatusUnauthorized, "invalid admin key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
