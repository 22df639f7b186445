package permission

import (
	"errors"
	"sync"
)

var (
	ErrDuplicatePermission = errors.New("permission already registered")
	ErrUnknownPermission   = errors.New("permission not registered")
	ErrRegistryFrozen      = errors.New("permission registry frozen")
)

// Registry maps permission names to bit positions. Registrations happen
// during initialization; Freeze locks the registry before it is used
// for authorization checks.
type Registry struct {
	mu        sync.RWMutex
	nameToBit map[string]int
	bitToName map[int]string
	frozen    bool
}

func NewRegistry() *Registry {
	return &Registry{
		nameToBit: make(map[string]int),
		bitToName: make(map[int]string),
	}
}

// Register assigns the next free bit to the named permission and
// returns its index.
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, ErrRegistryFrozen
	}
	if name == "" {
		return -1, errors.New("permission name cannot be empty")
	}
	if _, exists := r.nameToBit[name]; exists {
		return -1, ErrDuplicatePermission
	}

	nextBit := len(r.nameToBit)
	if nextBit >= MaskBits {
		return -1, errors.New("permission limit exceeded")
	}

	r.nameToBit[name] = nextBit
	r.bitToName[nextBit] = name

	return nextBit, nil
}

// Bit returns the bit index for the named permission, or false if not registered.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[name]
	return bit, ok
}

// Name returns the permission name for the given bit index, or false if unassigned.
func (r *Registry) Name(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.bitToName[bit]
	return name, ok
}

// MaskOf compiles a list of permission names to a mask. An unknown
// name fails the whole compilation.
func (r *Registry) MaskOf(names []string) (Mask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var mask Mask
	for _, name := range names {
		bit, ok := r.nameToBit[name]
		if !ok {
			return Mask{}, errors.Join(ErrUnknownPermission, errors.New(name))
		}
		mask.Set(bit)
	}
	return mask, nil
}

// Names expands a mask back to the sorted permission names it carries.
// Bits with no registered name are skipped.
func (r *Registry) Names(mask Mask) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.nameToBit))
	for bit := 0; bit < len(r.nameToBit); bit++ {
		if mask.Has(bit) {
			names = append(names, r.bitToName[bit])
		}
	}
	return names
}

// Freeze prevents further registrations. Must be called before the
// registry is used for validation.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nameToBit)
}
