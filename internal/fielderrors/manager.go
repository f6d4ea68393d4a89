// Package fielderrors tracks per-field validation messages for one form.
package fielderrors

import (
	"sort"
	"strings"
	"sync"
)

// Listener receives a snapshot of the table after every mutation.
type Listener func(errors map[string]string)

// Manager holds a field-name → message table. Every mutation notifies all
// listeners synchronously on the calling goroutine, after the table has been
// updated and the lock released, even when the table did not change.
type Manager struct {
	mu        sync.RWMutex
	errors    map[string]string
	listeners map[int]Listener
	nextID    int
}

func New() *Manager {
	return &Manager{errors: map[string]string{}, listeners: map[int]Listener{}}
}

// SetFieldErrors replaces the whole table.
func (m *Manager) SetFieldErrors(table map[string]string) {
	m.mu.Lock()
	m.errors = make(map[string]string, len(table))
	for k, v := range table {
		m.errors[k] = v
	}
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) SetFieldError(name, msg string) {
	m.mu.Lock()
	m.errors[name] = msg
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) ClearFieldError(name string) {
	m.mu.Lock()
	delete(m.errors, name)
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) ClearAllFieldErrors() {
	m.mu.Lock()
	m.errors = map[string]string{}
	m.mu.Unlock()
	m.notify()
}

// AddListener subscribes fn and returns its unsubscribe func.
func (m *Manager) AddListener(fn Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Errors returns a copy of the table.
func (m *Manager) Errors() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Error returns the message for name, "" when the field is valid.
func (m *Manager) Error(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errors[name]
}

func (m *Manager) HasError(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.errors[name]
	return ok
}

func (m *Manager) HasErrors() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.errors) > 0
}

// FieldClasses appends errorClass to base when name has an error.
func (m *Manager) FieldClasses(name, base, errorClass string) string {
	if !m.HasError(name) || errorClass == "" {
		return base
	}
	return strings.TrimSpace(base + " " + errorClass)
}

// ApplyValidation installs server validation errors, keeping the first
// message of each field. mapping renames server field names; fields not in
// mapping keep their name.
func (m *Manager) ApplyValidation(errs map[string][]string, mapping map[string]string) {
	table := make(map[string]string, len(errs))

	names := make([]string, 0, len(errs))
	for k := range errs {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, server := range names {
		msgs := errs[server]
		if len(msgs) == 0 {
			continue
		}
		local := server
		if mapped, ok := mapping[server]; ok && mapped != "" {
			local = mapped
		}
		if _, taken := table[local]; !taken {
			table[local] = msgs[0]
		}
	}
	m.SetFieldErrors(table)
}

func (m *Manager) snapshotLocked() map[string]string {
	out := make(map[string]string, len(m.errors))
	for k, v := range m.errors {
		out[k] = v
	}
	return out
}

func (m *Manager) notify() {
	m.mu.RLock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, len(ids))
	for i, id := range ids {
		fns[i] = m.listeners[id]
	}
	snap := m.snapshotLocked()
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}
