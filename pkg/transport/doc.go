// Package transport provides the HTTP middleware chain and error writing
// shared by the radiusmfa HTTP server.
//
// # Middleware
//
// Middleware wraps an http.Handler with cross-cutting behavior. Built-in
// middleware provides panic recovery, request ID assignment (X-Request-ID),
// and structured access logging via log/slog. Chain composes them so the
// first middleware is the outermost wrapper.
//
// # Errors
//
// Handlers report failures as *api.APIError values. WriteAPIError derives
// the HTTP status from the error type and writes the JSON error envelope.
package transport
