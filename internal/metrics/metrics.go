// Package metrics provides lock-free counters for the engine's hot
// paths. Counters live in cache-line-padded slots and are incremented
// atomically; the write path does not allocate. Export lives in
// metrics/export/ and reads Snapshot values.
package metrics

import "sync/atomic"

// ID identifies one counter.
type ID int

const (
	LoginSuccess ID = iota
	LoginFailure
	TokenIssued
	TokenVerified
	TokenRejected
	RefreshRotated
	RefreshReplayBlocked
	PasswordReset
	EmailVerified
	TwoFactorVerified
	AuthzAllowed
	AuthzDenied

	count
)

var names = [count]string{
	LoginSuccess:         "login_success",
	LoginFailure:         "login_failure",
	TokenIssued:          "token_issued",
	TokenVerified:        "token_verified",
	TokenRejected:        "token_rejected",
	RefreshRotated:       "refresh_rotated",
	RefreshReplayBlocked: "refresh_replay_blocked",
	PasswordReset:        "password_reset",
	EmailVerified:        "email_verified",
	TwoFactorVerified:    "two_factor_verified",
	AuthzAllowed:         "authz_allowed",
	AuthzDenied:          "authz_denied",
}

// Name returns the stable export name of a counter.
func (id ID) Name() string {
	if id < 0 || id >= count {
		return "unknown"
	}
	return names[id]
}

// padded keeps each counter on its own cache line to avoid false
// sharing between concurrently incremented slots.
type padded struct {
	value atomic.Uint64
	_     [56]byte
}

// Set is a fixed family of counters. The zero value is ready to use.
type Set struct {
	counters [count]padded
}

func NewSet() *Set {
	return &Set{}
}

// Inc increments the counter by one. Unknown IDs are ignored.
func (s *Set) Inc(id ID) {
	if s == nil || id < 0 || id >= count {
		return
	}
	s.counters[id].value.Add(1)
}

// Get returns the current value of one counter.
func (s *Set) Get(id ID) uint64 {
	if s == nil || id < 0 || id >= count {
		return 0
	}
	return s.counters[id].value.Load()
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot map[string]uint64

// Snapshot reads all counters. Values are individually atomic, not a
// consistent cut across counters.
func (s *Set) Snapshot() Snapshot {
	snap := make(Snapshot, int(count))
	if s == nil {
		return snap
	}
	for id := ID(0); id < count; id++ {
		snap[names[id]] = s.counters[id].value.Load()
	}
	return snap
}

// IDs returns every counter ID in declaration order.
func IDs() []ID {
	ids := make([]ID, 0, int(count))
	for id := ID(0); id < count; id++ {
		ids = append(ids, id)
	}
	return ids
}
