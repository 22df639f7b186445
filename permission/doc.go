// Package permission implements role-based access control as bitmasks.
//
// A Registry assigns each permission name a stable bit position. Roles
// are registered against the Registry as sets of permission names and
// compiled to masks. A user's effective permissions are the union of
// the masks of all their roles; an authorization check is then a
// constant-time mask containment test.
package permission
