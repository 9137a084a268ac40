package nasc

import (
	"reflect"

	"github.com/toutaio/toutago-nasc-testkit/registry"
)

// Key identifies one injectable value: a resolved type and an optional
// qualifier distinguishing several bindings of that type.
type Key = registry.Key

// KeyOf returns the unqualified key for T.
func KeyOf[T any]() Key {
	return Key{Type: typeOf[T]()}
}

// QualifiedKeyOf returns the key for T carrying the given qualifier.
func QualifiedKeyOf[T any](qualifier string) Key {
	return Key{Type: typeOf[T](), Qualifier: qualifier}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
