package http

import (
	"net/http"

	"github.com/rs/cors"
)

func newCORS(allow []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   allow,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
}

// WithCORS wraps the engine so browsers served from other origins can reach
// the REST endpoints.
func WithCORS(h http.Handler, allow []string) http.Handler {
	return newCORS(allow).Handler(h)
}

// OriginChecker applies the CORS allow list to WebSocket upgrades. Requests
// without an Origin header do not come from a browser and pass.
func OriginChecker(allow []string) func(r *http.Request) bool {
	c := newCORS(allow)
	return func(r *http.Request) bool {
		if r.Header.Get("Origin") == "" {
			return true
		}
		return c.OriginAllowed(r)
	}
}
