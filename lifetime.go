package nasc

// Lifetime represents the lifecycle strategy for a bound dependency.
type Lifetime string

const (
	// LifetimeInstance returns a value supplied at bind time.
	LifetimeInstance Lifetime = "instance"

	// LifetimeTransient creates a new instance on every resolution.
	LifetimeTransient Lifetime = "transient"

	// LifetimeSingleton creates a single instance that is reused for all resolutions
	// of the same container. Creation is lazy and guarded by sync.Once.
	LifetimeSingleton Lifetime = "singleton"

	// LifetimeFactory calls a custom factory function on every resolution.
	LifetimeFactory Lifetime = "factory"
)

// String returns the string representation of the lifetime.
func (l Lifetime) String() string {
	return string(l)
}

// FactoryFunc is a function that creates instances dynamically.
// It receives the container to resolve dependencies and returns the created instance or an error.
//
// Example:
//
//	factory := func(c *Container) (interface{}, error) {
//	    cfg, err := c.GetInstance(nasc.KeyOf[*Config]())
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewClient(cfg.(*Config).URL), nil
//	}
type FactoryFunc func(*Container) (interface{}, error)
