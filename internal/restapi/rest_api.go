package restapi

import (
	"net/http"
	"time"

	"grouptrip.org/internal/app"
)

type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
}

// NewRestAPI creates a RestAPI with a per-client rate limiter sized from
// server.rate_limit.
func NewRestAPI(app *app.Application) *RestAPI {
	return &RestAPI{
		Application: app,
		rateLimiter: NewRateLimitMiddleware(app.Config.Server.RateLimit, time.Second),
	}
}

// Handler returns the routes wrapped in the middleware chain, outermost
// first: request logging, security headers, rate limiting, compression.
func (api *RestAPI) Handler() http.Handler {
	var handler http.Handler = api.routes()
	handler = CompressionMiddleware(handler)
	handler = api.rateLimiter.Handler(handler)
	handler = api.WithSecurityHeaders(handler)
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	return handler
}

// Close stops background work owned by the API.
func (api *RestAPI) Close() {
	api.rateLimiter.Stop()
}
