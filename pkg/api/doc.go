// Package api defines the JSON types exchanged over the radiusmfa HTTP
// API: verification requests and responses, audit event listings,
// readiness reports, and the structured error envelope.
package api
