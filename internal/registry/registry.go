// internal/registry/registry.go
package registry

import (
	"fmt"
	"sync"
)

// Registry tracks every connected user's raw display name and how many users
// currently share each name. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	names map[uint16]string
	refs  map[string]int
}

func New() *Registry {
	return &Registry{
		names: make(map[uint16]string),
		refs:  make(map[string]int),
	}
}

// Register records uid under name. Registering an existing uid renames it.
func (r *Registry) Register(uid uint16, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.names[uid]; ok {
		r.dropRefLocked(old)
	}
	r.names[uid] = name
	r.refs[name]++
}

// Rename moves uid from its current name to newName. It reports false if uid
// is unknown.
func (r *Registry) Rename(uid uint16, newName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.names[uid]
	if !ok {
		return false
	}
	r.dropRefLocked(old)
	r.names[uid] = newName
	r.refs[newName]++
	return true
}

// Unregister forgets uid.
func (r *Registry) Unregister(uid uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.names[uid]
	if !ok {
		return
	}
	r.dropRefLocked(old)
	delete(r.names, uid)
}

func (r *Registry) dropRefLocked(name string) {
	if r.refs[name] <= 1 {
		delete(r.refs, name)
		return
	}
	r.refs[name]--
}

// IsDuplicate reports whether more than one connected user holds name.
func (r *Registry) IsDuplicate(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refs[name] > 1
}

// Name returns the raw name of uid.
func (r *Registry) Name(uid uint16) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[uid]
	return name, ok
}

// DisplayName returns the raw name of uid, suffixed with "(uid)" when another
// connected user shares it.
func (r *Registry) DisplayName(uid uint16) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name := r.names[uid]
	if r.refs[name] > 1 {
		return fmt.Sprintf("%s(%d)", name, uid)
	}
	return name
}

// Len reports the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
