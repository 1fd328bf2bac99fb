package middleware

// Header names shared by the middleware chain and the handlers.
const (
	CorrelationHeader = "X-Correlation-Token"
	SessionHeader     = "X-Session-Token"
	RequestIDHeader   = "X-Request-ID"
)
