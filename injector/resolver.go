// Package injector hands out containers for module sets: one eagerly built
// baseline shared by every test, plus a cache of containers for tests that
// declare extra modules.
package injector

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	nasc "github.com/toutaio/toutago-nasc-testkit"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver's logger. It is also handed to every container.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegisterer registers the resolver's counters with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Resolver) {
		r.registerer = reg
	}
}

// WithContainerOptions passes extra options to every container build.
func WithContainerOptions(opts ...nasc.Option) Option {
	return func(r *Resolver) {
		r.containerOpts = append(r.containerOpts, opts...)
	}
}

// Resolver maps module sets to containers.
type Resolver struct {
	baselineModules []nasc.Module
	baselineSet     nasc.ModuleSet
	baseline        *nasc.Container
	cache           *Cache

	logger        *zap.Logger
	registerer    prometheus.Registerer
	containerOpts []nasc.Option
	metrics       *metrics
}

// NewResolver builds the baseline container from baseline synchronously and
// returns a resolver around it. The baseline module values are reused in every
// later build, so modules holding configuration are configured identically.
func NewResolver(baseline []nasc.Module, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		baselineModules: baseline,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	m, err := newMetrics(r.registerer)
	if err != nil {
		return nil, fmt.Errorf("registering injector metrics: %w", err)
	}
	r.metrics = m

	ids := make([]nasc.ModuleID, 0, len(baseline))
	for _, mod := range baseline {
		ids = append(ids, nasc.ModuleIDOf(mod))
	}
	r.baselineSet = nasc.NewModuleSet(ids...)

	r.baseline, err = r.build(r.baselineSet)
	if err != nil {
		return nil, fmt.Errorf("building baseline container: %w", err)
	}

	r.cache = NewCache(func(set nasc.ModuleSet) (*nasc.Container, error) {
		return r.build(r.baselineSet.Union(set))
	})

	return r, nil
}

// Baseline returns the process-wide container built from the baseline modules.
func (r *Resolver) Baseline() *nasc.Container {
	return r.baseline
}

// BaselineModules returns the baseline module set.
func (r *Resolver) BaselineModules() nasc.ModuleSet {
	return r.baselineSet
}

// Resolve returns the container for set. An empty set, or one naming only
// baseline modules, yields the baseline container without touching the cache.
// Otherwise the container for baseline ∪ set is built once and reused.
// Build failures are returned to every caller and are not cached.
func (r *Resolver) Resolve(set nasc.ModuleSet) (*nasc.Container, error) {
	extra := set.Without(r.baselineSet)
	if extra.IsEmpty() {
		r.metrics.baselineHits.Inc()
		return r.baseline, nil
	}

	container, hit, err := r.cache.Get(extra)
	if err != nil {
		return nil, err
	}
	if hit {
		r.metrics.cacheHits.Inc()
	}
	return container, nil
}

// CachedContainers returns how many non-baseline containers have been built.
func (r *Resolver) CachedContainers() int {
	return r.cache.Len()
}

// Close closes every cached container, then the baseline.
func (r *Resolver) Close() error {
	err := r.cache.Close()
	return errors.Join(err, r.baseline.Close())
}

func (r *Resolver) build(set nasc.ModuleSet) (*nasc.Container, error) {
	buildID := uuid.NewString()
	logger := r.logger.With(zap.String("build_id", buildID))

	opts := make([]nasc.Option, 0, len(r.containerOpts)+2)
	opts = append(opts, nasc.WithModules(r.baselineModules...), nasc.WithLogger(logger))
	opts = append(opts, r.containerOpts...)

	container, err := nasc.New(set, opts...)
	if err != nil {
		r.metrics.buildFailures.Inc()
		logger.Error("container build failed", zap.Stringer("modules", set), zap.Error(err))
		return nil, err
	}

	r.metrics.builds.Inc()
	logger.Info("container built", zap.Stringer("modules", set), zap.Int("bindings", len(container.Keys())))
	return container, nil
}
