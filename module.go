package nasc

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Module is a composable unit of binding configuration.
// A container configures every module of its ModuleSet exactly once.
//
// Example:
//
//	type DatabaseModule struct{}
//
//	func (DatabaseModule) Configure(b *nasc.Binder) error {
//	    return nasc.BindConstructor[Database](b, NewPostgresDB, nasc.LifetimeSingleton)
//	}
type Module interface {
	Configure(b *Binder) error
}

// BootableModule is an optional interface for modules that need a boot phase.
// Boot is called after every module of the container has been configured,
// in module order.
type BootableModule interface {
	Module
	Boot(c *Container) error
}

// ModuleID names one module by its type. Two IDs are equal iff they refer to
// the same type.
type ModuleID struct {
	t reflect.Type
}

// ModuleOf returns the identifier of module type M.
//
//	nasc.ModuleOf[*DatabaseModule]()
func ModuleOf[M Module]() ModuleID {
	return ModuleID{t: typeOf[M]()}
}

// ModuleIDOf returns the identifier of the module's dynamic type.
func ModuleIDOf(m Module) ModuleID {
	if m == nil {
		return ModuleID{}
	}
	return ModuleID{t: reflect.TypeOf(m)}
}

// Type returns the module type.
func (id ModuleID) Type() reflect.Type {
	return id.t
}

// IsZero reports whether the identifier names no module.
func (id ModuleID) IsZero() bool {
	return id.t == nil
}

// String returns a package-qualified name. Types declared inside different
// functions can share a name; compare IDs, not strings.
func (id ModuleID) String() string {
	if id.t == nil {
		return "<nil>"
	}
	t := id.t
	prefix := ""
	for t.Kind() == reflect.Ptr && t.Name() == "" {
		prefix += "*"
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return prefix + t.String()
	}
	return prefix + t.PkgPath() + "." + t.Name()
}

// instantiate creates a fresh module value for the identifier.
// Pointer-to-struct modules get a new zero struct; value modules get their zero value.
func (id ModuleID) instantiate() (Module, error) {
	if id.t == nil {
		return nil, fmt.Errorf("cannot instantiate nil module")
	}

	var v reflect.Value
	switch {
	case id.t.Kind() == reflect.Ptr && id.t.Elem().Kind() == reflect.Struct:
		v = reflect.New(id.t.Elem())
	case id.t.Kind() == reflect.Struct:
		v = reflect.Zero(id.t)
	default:
		return nil, fmt.Errorf("module %s must be a struct or pointer to struct", id)
	}

	m, ok := v.Interface().(Module)
	if !ok {
		return nil, fmt.Errorf("type %s does not implement Module", id)
	}
	return m, nil
}

// ModuleSet is an insertion-ordered set of module identifiers.
// Order decides configuration order; equality and Key ignore it.
// A ModuleSet is never mutated after construction.
type ModuleSet struct {
	ids []ModuleID
}

// NewModuleSet returns a set holding ids in first-seen order, skipping
// duplicates and zero identifiers.
func NewModuleSet(ids ...ModuleID) ModuleSet {
	out := make([]ModuleID, 0, len(ids))
	seen := make(map[ModuleID]struct{}, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return ModuleSet{ids: out}
}

// Len returns the number of modules in the set.
func (s ModuleSet) Len() int {
	return len(s.ids)
}

// IsEmpty reports whether the set holds no modules.
func (s ModuleSet) IsEmpty() bool {
	return len(s.ids) == 0
}

// IDs returns a copy of the identifiers in insertion order.
func (s ModuleSet) IDs() []ModuleID {
	out := make([]ModuleID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Contains reports whether id is a member of the set.
func (s ModuleSet) Contains(id ModuleID) bool {
	for _, have := range s.ids {
		if have == id {
			return true
		}
	}
	return false
}

// Union returns s followed by the members of other not already in s.
func (s ModuleSet) Union(other ModuleSet) ModuleSet {
	ids := make([]ModuleID, 0, len(s.ids)+len(other.ids))
	ids = append(ids, s.ids...)
	ids = append(ids, other.ids...)
	return NewModuleSet(ids...)
}

// Without returns the members of s that are not in other, keeping s's order.
func (s ModuleSet) Without(other ModuleSet) ModuleSet {
	ids := make([]ModuleID, 0, len(s.ids))
	for _, id := range s.ids {
		if !other.Contains(id) {
			ids = append(ids, id)
		}
	}
	return ModuleSet{ids: ids}
}

// Equal reports set equality, ignoring order.
func (s ModuleSet) Equal(other ModuleSet) bool {
	if len(s.ids) != len(other.ids) {
		return false
	}
	for _, id := range s.ids {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// Key returns a canonical, order-independent representation of the set,
// suitable as a map key. Two sets have the same key iff they are Equal.
// Keys are only meaningful within one process.
func (s ModuleSet) Key() string {
	seqs := make([]uint64, len(s.ids))
	for i, id := range s.ids {
		seqs[i] = typeSeq(id.t)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	var b strings.Builder
	for i, seq := range seqs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(seq, 10))
	}
	return b.String()
}

var (
	typeSeqs   sync.Map // reflect.Type -> uint64
	typeSeqMax atomic.Uint64
)

// typeSeq interns t, returning a number no other type gets.
func typeSeq(t reflect.Type) uint64 {
	if seq, ok := typeSeqs.Load(t); ok {
		return seq.(uint64)
	}
	seq, _ := typeSeqs.LoadOrStore(t, typeSeqMax.Add(1))
	return seq.(uint64)
}

// String lists the members in insertion order.
func (s ModuleSet) String() string {
	names := make([]string, len(s.ids))
	for i, id := range s.ids {
		names[i] = id.String()
	}
	return "[" + strings.Join(names, " ") + "]"
}
