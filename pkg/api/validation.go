package api

import "strings"

// MaxTokenLength bounds the token accepted from clients. RADIUS limits
// User-Password to 128 octets.
const MaxTokenLength = 128

// Validate checks a VerifyRequest. It returns nil or an invalid_request
// APIError naming the offending parameter.
func (r *VerifyRequest) Validate() *APIError {
	if strings.TrimSpace(r.Token) == "" {
		return NewInvalidRequestError("token", "is required")
	}
	if len(r.Token) > MaxTokenLength {
		return NewInvalidRequestError("token", "must be at most 128 bytes")
	}
	return nil
}
