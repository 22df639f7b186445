// Package internal holds shared helpers that are not part of the public
// surface: random value generation and token value hashing.
package internal
