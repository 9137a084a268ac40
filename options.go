package nasc

import "go.uber.org/zap"

// Option configures a Container.
type Option func(*config)

type config struct {
	logger    *zap.Logger
	explicit  bool
	instances map[ModuleID]Module
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:    zap.NewNop(),
		instances: make(map[ModuleID]Module),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets the logger used for build and disposal events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequireExplicitBindings disables just-in-time bindings: every key must
// be bound by a module.
func WithRequireExplicitBindings() Option {
	return func(c *config) {
		c.explicit = true
	}
}

// WithModules supplies ready-made module values. When the ModuleSet names a
// module of the same type, this value is configured instead of a fresh zero
// value, which lets a module carry constructor arguments.
func WithModules(modules ...Module) Option {
	return func(c *config) {
		for _, m := range modules {
			if m != nil {
				c.instances[ModuleIDOf(m)] = m
			}
		}
	}
}
