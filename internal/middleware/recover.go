package middleware

import (
	"net/http"

	"github.com/hongminglow/guest-account/internal/http/respond"
	"github.com/hongminglow/guest-account/internal/logging"
)

// Recover converts a panic in next into the standard error envelope.
func Recover(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				err := respond.Recovered(v)
				logger.Error(r.Context(), "panic while serving request", "path", r.URL.Path, "error", err.Error())
				respond.Error(w, err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
