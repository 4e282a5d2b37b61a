package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimiter limits per-IP request rates on the read API. Quote
// requests fan out to chain RPC calls, so the cap protects the RPC
// endpoint as much as the server.
func RateLimiter(requestsPerSecond int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerSecond, time.Second)
}
