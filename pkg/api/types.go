package api

import "time"

// VerifyRequest is the body of POST /v1/mfa/verify. The username is not
// part of the request: it is the subject of the first-factor identity.
type VerifyRequest struct {
	Token string `json:"token"`
}

// Verification is returned when a RADIUS server accepted the token.
type Verification struct {
	Object     string         `json:"object"` // always "mfa.verification"
	Subject    string         `json:"subject"`
	Server     string         `json:"server"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Event is one entry of the verification audit trail.
type Event struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	Server    string    `json:"server,omitempty"`
	Contacted int       `json:"contacted"`
	CreatedAt time.Time `json:"created_at"`
}

// EventList is returned by GET /v1/mfa/events.
type EventList struct {
	Object  string  `json:"object"` // always "list"
	Data    []Event `json:"data"`
	HasMore bool    `json:"has_more"`
}

// Readiness is returned by GET /readyz.
type Readiness struct {
	Status  string   `json:"status"` // "ok" or "unavailable"
	Servers []string `json:"servers"`
}
