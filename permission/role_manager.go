package permission

import (
	"errors"
	"strings"
	"sync"
)

var (
	ErrDuplicateRole = errors.New("role already registered")
	ErrUnknownRole   = errors.New("role not registered")
)

// RoleManager holds the compiled permission mask for each role. Role
// names are case-insensitive and stored uppercased, so "admin",
// "Admin", and "ADMIN" are the same role.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask
	frozen bool
}

func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask),
	}
}

// NormalizeRole maps a role name to its canonical uppercase form.
func NormalizeRole(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// RegisterRole compiles the permission names to a mask and stores it
// under the normalized role name.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}

	name := NormalizeRole(roleName)
	if name == "" {
		return errors.New("role name empty")
	}
	if _, exists := rm.roles[name]; exists {
		return ErrDuplicateRole
	}

	mask, err := rm.registry.MaskOf(permissionNames)
	if err != nil {
		return err
	}

	rm.roles[name] = mask
	return nil
}

// GetMask returns the mask for a role, or false if the role is unknown.
func (rm *RoleManager) GetMask(roleName string) (Mask, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	mask, ok := rm.roles[NormalizeRole(roleName)]
	return mask, ok
}

// UnionMask flattens a set of roles to one effective-permissions mask:
// the union of every role's mask. A user holding any role that grants a
// permission has that permission. Unknown roles fail the whole call.
func (rm *RoleManager) UnionMask(roleNames []string) (Mask, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	var union Mask
	for _, roleName := range roleNames {
		mask, ok := rm.roles[NormalizeRole(roleName)]
		if !ok {
			return Mask{}, errors.Join(ErrUnknownRole, errors.New(roleName))
		}
		union = union.Union(mask)
	}
	return union, nil
}

// Roles returns the registered role names in no particular order.
func (rm *RoleManager) Roles() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	names := make([]string, 0, len(rm.roles))
	for name := range rm.roles {
		names = append(names, name)
	}
	return names
}

// Freeze prevents further role registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of registered roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
