// Package jwt implements the signed-token codec: compact, time-bounded,
// tamper-evident tokens carrying a subject, issue time, expiry, and a type
// tag, signed with a single shared HS256 secret.
//
// The codec is stateless. Persistence and type-aware verification policy
// live in the engine; Verify only enforces signature and expiry.
package jwt
