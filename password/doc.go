// Package password hashes and verifies user passwords with argon2id,
// encoded in the standard PHC string format so parameters travel with
// the hash.
package password
