// Package typeref describes the declared type of an injection point.
//
// A Ref is either a concrete reflect.Type, a named type variable bound by the
// declaring test suite, or a composite (slice, pointer, map, channel) built
// from other Refs. Resolve substitutes the suite's type arguments to produce a
// concrete reflect.Type.
package typeref

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

type kind int

const (
	kindConcrete kind = iota
	kindVar
	kindSlice
	kindPtr
	kindMap
	kindChan
)

// Ref is an immutable type descriptor.
type Ref struct {
	kind     kind
	concrete reflect.Type
	name     string
	elem     *Ref
	key      *Ref
	dir      reflect.ChanDir
}

// Of returns a concrete Ref for T.
func Of[T any]() Ref {
	return Type(reflect.TypeOf((*T)(nil)).Elem())
}

// Type returns a concrete Ref for t.
func Type(t reflect.Type) Ref {
	return Ref{kind: kindConcrete, concrete: t}
}

// Var returns a Ref to the type variable called name.
func Var(name string) Ref {
	return Ref{kind: kindVar, name: name}
}

// SliceOf returns a Ref to []elem.
func SliceOf(elem Ref) Ref {
	return Ref{kind: kindSlice, elem: &elem}
}

// PtrTo returns a Ref to *elem.
func PtrTo(elem Ref) Ref {
	return Ref{kind: kindPtr, elem: &elem}
}

// MapOf returns a Ref to map[key]elem.
func MapOf(key, elem Ref) Ref {
	return Ref{kind: kindMap, key: &key, elem: &elem}
}

// ChanOf returns a Ref to a channel of elem with the given direction.
func ChanOf(dir reflect.ChanDir, elem Ref) Ref {
	return Ref{kind: kindChan, dir: dir, elem: &elem}
}

// IsZero reports whether r describes nothing.
func (r Ref) IsZero() bool {
	return r.kind == kindConcrete && r.concrete == nil
}

// IsConcrete reports whether r mentions no type variables.
func (r Ref) IsConcrete() bool {
	return len(r.Vars()) == 0
}

// Vars returns the type variable names r mentions, sorted and deduplicated.
func (r Ref) Vars() []string {
	seen := make(map[string]struct{})
	r.collectVars(seen)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r Ref) collectVars(seen map[string]struct{}) {
	switch r.kind {
	case kindVar:
		seen[r.name] = struct{}{}
	case kindMap:
		r.key.collectVars(seen)
		r.elem.collectVars(seen)
	case kindSlice, kindPtr, kindChan:
		r.elem.collectVars(seen)
	}
}

// Resolve substitutes args for the type variables in r.
// It fails with *UnboundVariableError when r mentions a variable args lacks.
func (r Ref) Resolve(args map[string]reflect.Type) (reflect.Type, error) {
	switch r.kind {
	case kindConcrete:
		if r.concrete == nil {
			return nil, fmt.Errorf("cannot resolve an empty type reference")
		}
		return r.concrete, nil

	case kindVar:
		t, ok := args[r.name]
		if !ok || t == nil {
			return nil, &UnboundVariableError{Name: r.name}
		}
		return t, nil

	case kindSlice:
		elem, err := r.elem.Resolve(args)
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil

	case kindPtr:
		elem, err := r.elem.Resolve(args)
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil

	case kindMap:
		key, err := r.key.Resolve(args)
		if err != nil {
			return nil, err
		}
		if !key.Comparable() {
			return nil, fmt.Errorf("map key type %v is not comparable", key)
		}
		elem, err := r.elem.Resolve(args)
		if err != nil {
			return nil, err
		}
		return reflect.MapOf(key, elem), nil

	case kindChan:
		elem, err := r.elem.Resolve(args)
		if err != nil {
			return nil, err
		}
		return reflect.ChanOf(r.dir, elem), nil
	}

	return nil, fmt.Errorf("unknown type reference kind %d", r.kind)
}

// String renders r in Go syntax, with type variables by name.
func (r Ref) String() string {
	switch r.kind {
	case kindConcrete:
		if r.concrete == nil {
			return "<nil>"
		}
		return r.concrete.String()
	case kindVar:
		return r.name
	case kindSlice:
		return "[]" + r.elem.String()
	case kindPtr:
		return "*" + r.elem.String()
	case kindMap:
		return "map[" + r.key.String() + "]" + r.elem.String()
	case kindChan:
		var b strings.Builder
		switch r.dir {
		case reflect.RecvDir:
			b.WriteString("<-chan ")
		case reflect.SendDir:
			b.WriteString("chan<- ")
		default:
			b.WriteString("chan ")
		}
		b.WriteString(r.elem.String())
		return b.String()
	}
	return "<invalid>"
}

// UnboundVariableError is returned when a type variable has no argument.
type UnboundVariableError struct {
	Name string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("type variable %s is not bound", e.Name)
}
