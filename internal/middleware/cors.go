package middleware

import "net/http"

// CORS admits the dashboard's dev origin. Credentials ride on the session
// cookie, so the allowed origin is echoed back rather than wildcarded.
type CORS struct {
	allowed map[string]bool
}

// NewCORS builds the middleware for the given origins. An empty list
// disables CORS handling entirely.
func NewCORS(origins []string) *CORS {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &CORS{allowed: allowed}
}

// Handler sets the CORS headers and answers preflight requests.
func (c *CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && c.allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
