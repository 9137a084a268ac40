package nasc

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/toutaio/toutago-nasc-testkit/registry"
)

// Container is a dependency injection container composed from a ModuleSet.
// Bindings are fixed once New returns; resolution is safe for concurrent use.
type Container struct {
	registry        *registry.Registry
	singletonCache  *singletonCache
	reflectionCache *reflectionCache
	modules         ModuleSet
	configured      []Module
	configuredIDs   map[ModuleID]struct{}
	explicitOnly    bool
	logger          *zap.Logger
	closed          *closeState
	statics         []staticTarget

	// path is set on the views handed to factories: the keys being resolved
	// when the factory was called.
	path []Key
}

type closeState struct {
	once sync.Once
	err  error
}

// New builds a container by configuring each module of the set in order,
// then booting the ones implementing BootableModule.
// Any configuration error, including two modules binding the same key,
// fails the build.
//
// Example:
//
//	container, err := nasc.New(nasc.NewModuleSet(
//	    nasc.ModuleOf[*DatabaseModule](),
//	    nasc.ModuleOf[*FixtureModule](),
//	))
func New(modules ModuleSet, options ...Option) (*Container, error) {
	cfg := newConfig(options)

	c := &Container{
		registry:        registry.New(),
		singletonCache:  newSingletonCache(),
		reflectionCache: newReflectionCache(),
		modules:         modules,
		configuredIDs:   make(map[ModuleID]struct{}),
		explicitOnly:    cfg.explicit,
		logger:          cfg.logger,
		closed:          &closeState{},
	}

	for _, id := range modules.IDs() {
		m, ok := cfg.instances[id]
		if !ok {
			var err error
			if m, err = id.instantiate(); err != nil {
				return nil, &ModuleError{Module: id.String(), Phase: "instantiate", Cause: err}
			}
		}
		if err := c.configure(m); err != nil {
			return nil, err
		}
	}

	for _, m := range c.configured {
		bootable, ok := m.(BootableModule)
		if !ok {
			continue
		}
		if err := bootable.Boot(c); err != nil {
			return nil, &ModuleError{Module: ModuleIDOf(m).String(), Phase: "boot", Cause: err}
		}
	}

	for _, target := range c.statics {
		if err := c.injectStatic(target.ptr); err != nil {
			return nil, &ModuleError{Module: target.source, Phase: "inject statics", Cause: err}
		}
	}

	c.logger.Debug("container built",
		zap.Stringer("modules", modules),
		zap.Int("bindings", c.registry.Len()),
	)

	return c, nil
}

// configure runs one module's Configure unless its type was already configured.
func (c *Container) configure(m Module) error {
	id := ModuleIDOf(m)
	if _, done := c.configuredIDs[id]; done {
		return nil
	}
	c.configuredIDs[id] = struct{}{}

	binder := newBinder(c, id.String())
	err := m.Configure(binder)
	if err == nil {
		err = binder.err()
	}
	if err != nil {
		var nested *ModuleError
		if errors.As(err, &nested) {
			return err
		}
		return &ModuleError{Module: id.String(), Phase: "configure", Cause: err}
	}

	c.configured = append(c.configured, m)
	return nil
}

// Modules returns the module set the container was built from.
func (c *Container) Modules() ModuleSet {
	return c.modules
}

// Keys returns every explicitly bound key.
func (c *Container) Keys() []Key {
	return c.registry.Keys()
}

// ExistingBinding returns the explicit binding for key, or nil.
// Just-in-time bindings are never reported.
func (c *Container) ExistingBinding(key Key) *registry.Binding {
	binding, err := c.registry.Get(key)
	if err != nil {
		return nil
	}
	return binding
}

// GetInstance resolves key to a value.
//
// Resolution order:
//   - an explicit binding for key
//   - for unqualified keys, a just-in-time binding: pointer-to-struct and struct
//     types get a new value with members injected, strings get ""
//
// Panics raised by providers are returned as *ResolutionError.
func (c *Container) GetInstance(key Key) (instance interface{}, err error) {
	if key.Type == nil {
		return nil, &InvalidBindingError{Reason: "cannot resolve nil type"}
	}

	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = &ResolutionError{Key: key, Context: "provider panicked", Cause: fmt.Errorf("%v", r)}
		}
	}()

	return c.resolve(key, c.path)
}

// at returns a view of c that resolves as if from inside path.
// The view shares every binding, singleton and the close state with c.
func (c *Container) at(path []Key) *Container {
	view := *c
	view.path = path
	return &view
}

// MustGet resolves key and panics on failure. Intended for test setup code.
func MustGet[T any](c *Container) T {
	v, err := c.GetInstance(KeyOf[T]())
	if err != nil {
		panic(err)
	}
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// resolve is GetInstance with the chain of keys being resolved, used for
// cycle detection through constructors, factories and just-in-time members.
func (c *Container) resolve(key Key, path []Key) (interface{}, error) {
	for i, k := range path {
		if k == key {
			cycle := make([]string, 0, len(path)-i+1)
			for _, p := range path[i:] {
				cycle = append(cycle, p.String())
			}
			return nil, &CircularDependencyError{Path: append(cycle, key.String())}
		}
	}

	binding, err := c.registry.Get(key)
	if err == nil {
		return c.createInstanceFromBinding(binding, append(path[:len(path):len(path)], key))
	}

	if c.explicitOnly || key.Qualifier != "" {
		return nil, err
	}
	return c.justInTime(key, append(path[:len(path):len(path)], key))
}

// createInstanceFromBinding creates an instance from a binding.
func (c *Container) createInstanceFromBinding(binding *registry.Binding, path []Key) (interface{}, error) {
	key := binding.Key

	switch Lifetime(binding.Lifetime) {
	case LifetimeInstance:
		return binding.Instance, nil

	case LifetimeTransient:
		return c.produce(binding, path)

	case LifetimeSingleton:
		return c.singletonCache.getOrCreate(key, func() (interface{}, error) {
			return c.produce(binding, path)
		})

	case LifetimeFactory:
		return c.produce(binding, path)

	default:
		return nil, &ResolutionError{Key: key, Context: fmt.Sprintf("unknown lifetime %s", binding.Lifetime)}
	}
}

// produce calls the binding's constructor or factory and checks the result type.
// A panicking provider is reported as an error so a singleton's sync.Once
// never completes without recording one.
func (c *Container) produce(binding *registry.Binding, path []Key) (instance interface{}, err error) {
	key := binding.Key

	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = &ResolutionError{Key: key, Context: "provider panicked", Cause: fmt.Errorf("%v", r)}
		}
	}()

	switch {
	case binding.Constructor != nil:
		instance, err = c.invokeConstructor(binding.Constructor.(*constructorInfo), path)
	case binding.Factory != nil:
		factory, ok := binding.Factory.(FactoryFunc)
		if !ok {
			return nil, &ResolutionError{Key: key, Context: "invalid factory function"}
		}
		instance, err = factory(c.at(path))
	default:
		return nil, &ResolutionError{Key: key, Context: "binding has no provider"}
	}

	if err != nil {
		var cycle *CircularDependencyError
		if errors.As(err, &cycle) {
			return nil, err
		}
		return nil, &ResolutionError{Key: key, Cause: err}
	}

	if instance != nil && !reflect.TypeOf(instance).AssignableTo(key.Type) {
		return nil, &ResolutionError{
			Key:     key,
			Context: fmt.Sprintf("provider returned %T", instance),
		}
	}

	return instance, nil
}

// justInTime satisfies unbound concrete types.
func (c *Container) justInTime(key Key, path []Key) (interface{}, error) {
	t := key.Type

	switch {
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct:
		v := reflect.New(t.Elem())
		if err := c.injectMembers(v, path); err != nil {
			return nil, &ResolutionError{Key: key, Context: "just-in-time binding", Cause: err}
		}
		return v.Interface(), nil

	case t.Kind() == reflect.Struct:
		v := reflect.New(t)
		if err := c.injectMembers(v, path); err != nil {
			return nil, &ResolutionError{Key: key, Context: "just-in-time binding", Cause: err}
		}
		return v.Elem().Interface(), nil

	case t.Kind() == reflect.String:
		return reflect.Zero(t).Interface(), nil
	}

	return nil, &BindingNotFoundError{Key: key}
}

// Close disposes singletons created by the container in reverse creation order.
// Instances that implement Disposable have Dispose called; io.Closer-style
// Close() error is honored too. Close is idempotent.
func (c *Container) Close() error {
	c.closed.once.Do(func() {
		created := c.singletonCache.drain()

		var errs []error
		for i := len(created) - 1; i >= 0; i-- {
			if err := dispose(created[i]); err != nil {
				errs = append(errs, fmt.Errorf("disposal error for %T: %w", created[i], err))
			}
		}

		c.closed.err = errors.Join(errs...)
		c.logger.Debug("container closed",
			zap.Stringer("modules", c.modules),
			zap.Int("disposed", len(created)),
			zap.Error(c.closed.err),
		)
	})

	return c.closed.err
}

// staticTarget is a variable registered with Binder.RequestStaticInjection.
type staticTarget struct {
	source string
	ptr    reflect.Value
}

// injectStatic sets *ptr from the unqualified binding of its type.
func (c *Container) injectStatic(ptr reflect.Value) error {
	target := ptr.Elem()
	resolved, err := c.resolve(Key{Type: target.Type()}, nil)
	if err != nil {
		return err
	}
	if resolved == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	v := reflect.ValueOf(resolved)
	if !v.Type().AssignableTo(target.Type()) {
		return fmt.Errorf("resolved type %v is not assignable to %v", v.Type(), target.Type())
	}
	target.Set(v)
	return nil
}

// Disposable represents a service that requires cleanup when its container closes.
type Disposable interface {
	Dispose() error
}

type closer interface {
	Close() error
}

func dispose(instance interface{}) error {
	switch v := instance.(type) {
	case Disposable:
		return v.Dispose()
	case closer:
		return v.Close()
	}
	return nil
}
