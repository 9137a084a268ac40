// Package registry provides thread-safe storage and retrieval of dependency bindings.
package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Key identifies one injectable value: a type plus an optional qualifier.
// The zero Qualifier means the binding is unqualified.
type Key struct {
	Type      reflect.Type
	Qualifier string
}

// String renders the key as "type" or "type@qualifier".
func (k Key) String() string {
	typeStr := "<nil>"
	if k.Type != nil {
		typeStr = k.Type.String()
	}
	if k.Qualifier == "" {
		return typeStr
	}
	return fmt.Sprintf("%s@%s", typeStr, k.Qualifier)
}

// Binding represents a mapping between a key and the way its value is produced.
type Binding struct {
	// Key is what the binding satisfies
	Key Key

	// Lifetime defines how instances are managed
	// Values: "instance", "transient", "singleton", "factory"
	Lifetime string

	// Instance is the bound value for instance bindings
	Instance interface{}

	// Factory stores the container's FactoryFunc for factory bindings
	Factory interface{}

	// Constructor stores the container's *constructorInfo
	Constructor interface{}

	// Source names the module that declared the binding
	Source string
}

// Registry provides thread-safe storage for bindings.
// It uses a map with Key keys for O(1) lookup performance.
type Registry struct {
	mu       sync.RWMutex
	bindings map[Key]*Binding
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{
		bindings: make(map[Key]*Binding),
	}
}

// Register stores a binding in the registry.
// Returns an error if a binding for the same key already exists.
//
// This method is goroutine-safe.
func (r *Registry) Register(binding *Binding) error {
	if binding == nil {
		return fmt.Errorf("binding cannot be nil")
	}
	if binding.Key.Type == nil {
		return fmt.Errorf("binding key must have a type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.bindings[binding.Key]; exists {
		return &BindingAlreadyExistsError{
			Key:      binding.Key,
			Existing: existing.Source,
			Incoming: binding.Source,
		}
	}

	r.bindings[binding.Key] = binding
	return nil
}

// Get retrieves a binding by its key.
// Returns nil binding and error if not found.
//
// This method is goroutine-safe.
func (r *Registry) Get(key Key) (*Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	binding, exists := r.bindings[key]
	if !exists {
		return nil, &BindingNotFoundError{Key: key}
	}

	return binding, nil
}

// Has checks if a binding exists for the given key.
//
// This method is goroutine-safe.
func (r *Registry) Has(key Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.bindings[key]
	return exists
}

// Keys returns every registered key, sorted by their string form.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]Key, 0, len(r.bindings))
	for k := range r.bindings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Len returns the number of registered bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.bindings)
}

// BindingAlreadyExistsError is returned when attempting to register a duplicate binding.
type BindingAlreadyExistsError struct {
	Key      Key
	Existing string
	Incoming string
}

func (e *BindingAlreadyExistsError) Error() string {
	if e.Existing == "" && e.Incoming == "" {
		return fmt.Sprintf("binding already exists for %v", e.Key)
	}
	return fmt.Sprintf("binding already exists for %v (declared by %s, redeclared by %s)",
		e.Key, sourceOrUnknown(e.Existing), sourceOrUnknown(e.Incoming))
}

// BindingNotFoundError is returned when a requested binding does not exist.
type BindingNotFoundError struct {
	Key Key
}

func (e *BindingNotFoundError) Error() string {
	return fmt.Sprintf("binding not found for %v", e.Key)
}

func sourceOrUnknown(s string) string {
	if s == "" {
		return "<unknown>"
	}
	return s
}
