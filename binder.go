package nasc

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/toutaio/toutago-nasc-testkit/registry"
)

// Binder is handed to Module.Configure to register bindings.
// Every method returns its error and also records it, so a module that
// ignores a failed bind still fails the container build.
type Binder struct {
	container *Container
	source    string
	errs      []error
}

func newBinder(c *Container, source string) *Binder {
	return &Binder{container: c, source: source}
}

// Instance binds key to a fixed value.
//
// Example:
//
//	b.Instance(nasc.KeyOf[int](), 5)
func (b *Binder) Instance(key Key, value interface{}) error {
	if err := checkKey(key); err != nil {
		return b.record(err)
	}
	if value == nil && !nillable(key.Type) {
		return b.record(&InvalidBindingError{Key: key, Reason: "nil value for a non-nillable type"})
	}
	if value != nil && !reflect.TypeOf(value).AssignableTo(key.Type) {
		return b.record(&InvalidBindingError{
			Key:    key,
			Reason: fmt.Sprintf("value of type %T is not assignable to %v", value, key.Type),
		})
	}

	return b.register(&registry.Binding{
		Key:      key,
		Lifetime: string(LifetimeInstance),
		Instance: value,
	})
}

// Constructor binds key to a constructor function whose parameters are
// resolved from the container by unqualified type.
// lifetime must be LifetimeTransient or LifetimeSingleton.
//
// Example:
//
//	b.Constructor(nasc.KeyOf[Service](), NewService, nasc.LifetimeSingleton)
func (b *Binder) Constructor(key Key, constructor ConstructorFunc, lifetime Lifetime) error {
	if err := checkKey(key); err != nil {
		return b.record(err)
	}
	if lifetime != LifetimeTransient && lifetime != LifetimeSingleton {
		return b.record(&InvalidBindingError{Key: key, Reason: fmt.Sprintf("constructor lifetime must be transient or singleton, got %s", lifetime)})
	}

	info, err := parseConstructor(constructor)
	if err != nil {
		return b.record(&InvalidBindingError{Key: key, Reason: err.Error()})
	}
	if !info.returnType.AssignableTo(key.Type) {
		return b.record(&InvalidBindingError{
			Key:    key,
			Reason: fmt.Sprintf("constructor returns %v, not assignable to %v", info.returnType, key.Type),
		})
	}

	return b.register(&registry.Binding{
		Key:         key,
		Lifetime:    string(lifetime),
		Constructor: info,
	})
}

// Factory binds key to a function called on every resolution.
func (b *Binder) Factory(key Key, factory FactoryFunc) error {
	return b.factory(key, factory, LifetimeFactory)
}

// Singleton binds key to a function called once per container.
func (b *Binder) Singleton(key Key, factory FactoryFunc) error {
	return b.factory(key, factory, LifetimeSingleton)
}

func (b *Binder) factory(key Key, factory FactoryFunc, lifetime Lifetime) error {
	if err := checkKey(key); err != nil {
		return b.record(err)
	}
	if factory == nil {
		return b.record(&InvalidBindingError{Key: key, Reason: "factory function cannot be nil"})
	}

	return b.register(&registry.Binding{
		Key:      key,
		Lifetime: string(lifetime),
		Factory:  factory,
	})
}

// RequestStaticInjection sets each pointed-to variable, usually a
// package-level one, from the unqualified binding of its type. It happens
// after every module has booted; a failure fails the container build.
// A variable registered by several containers holds the last one's value.
//
// Example:
//
//	var clock Clock
//	b.RequestStaticInjection(&clock)
func (b *Binder) RequestStaticInjection(targets ...interface{}) error {
	for _, target := range targets {
		v := reflect.ValueOf(target)
		if target == nil || v.Kind() != reflect.Ptr || v.IsNil() {
			return b.record(&InvalidBindingError{Reason: fmt.Sprintf("static injection requires a non-nil pointer, got %T", target)})
		}
		b.container.statics = append(b.container.statics, staticTarget{source: b.source, ptr: v})
	}
	return nil
}

// Install configures another module into the same container.
// A module type already configured in this container is skipped.
func (b *Binder) Install(m Module) error {
	if m == nil {
		return b.record(fmt.Errorf("cannot install nil module"))
	}
	return b.record(b.container.configure(m))
}

func (b *Binder) register(binding *registry.Binding) error {
	binding.Source = b.source
	return b.record(b.container.registry.Register(binding))
}

func (b *Binder) record(err error) error {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return err
}

func (b *Binder) err() error {
	return errors.Join(b.errs...)
}

func checkKey(key Key) error {
	if key.Type == nil {
		return &InvalidBindingError{Reason: "key type cannot be nil"}
	}
	return nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// BindInstance binds the unqualified key of T to value.
func BindInstance[T any](b *Binder, value T) error {
	return b.Instance(KeyOf[T](), value)
}

// BindQualifiedInstance binds T under qualifier to value.
func BindQualifiedInstance[T any](b *Binder, qualifier string, value T) error {
	return b.Instance(QualifiedKeyOf[T](qualifier), value)
}

// BindConstructor binds the unqualified key of T to a constructor.
func BindConstructor[T any](b *Binder, constructor ConstructorFunc, lifetime Lifetime) error {
	return b.Constructor(KeyOf[T](), constructor, lifetime)
}

// BindSingleton binds the unqualified key of T to a typed factory called once.
func BindSingleton[T any](b *Binder, factory func(*Container) (T, error)) error {
	if factory == nil {
		return b.Singleton(KeyOf[T](), nil)
	}
	return b.Singleton(KeyOf[T](), func(c *Container) (interface{}, error) {
		return factory(c)
	})
}
