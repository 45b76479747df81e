// Package auth establishes the first-factor principal for radiusmfa.
//
// A second-factor verification is always performed on behalf of a caller
// who has already been identified. This package finds that caller: a chain
// of authenticators votes Yes (identity found), No (credentials invalid),
// or Abstain (can't handle), and a configurable default decides when all
// abstain. The HTTP Middleware stores the winning Identity in the request
// context, where IdentityFromContext retrieves it for the MFA service.
//
// An in-process per-subject rate limiter caps how many verification
// attempts one principal can make per minute.
package auth
