// Package authkit is an embeddable authentication and authorization
// engine for Redis-backed Go backends.
//
// It owns the token lifecycle — signed access/refresh pairs with
// atomic refresh rotation, plus stored one-time codes for password
// reset, email verification, and two-factor login — and role-based
// authorization with bitmask permission flattening and a self-service
// override. User storage stays with the host application behind the
// UserProvider interface.
//
// Build an engine once at startup:
//
//	engine, err := authkit.New().
//		WithConfig(cfg).
//		WithRedis(redisClient).
//		WithPermissions([]string{"getUsers", "manageUsers"}).
//		WithRoles(map[string][]string{
//			"user":  {},
//			"admin": {"getUsers", "manageUsers"},
//		}).
//		WithUserProvider(provider).
//		Build()
//
// HTTP integration lives in the middleware package; metric export in
// metrics/export.
package authkit
