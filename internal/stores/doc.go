// Package stores contains the Redis-backed persistence layer for
// security tokens. Token values never touch Redis in the clear; keys
// and records carry only their SHA-256 digests.
package stores
