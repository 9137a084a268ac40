// Package extension is the glue a test harness calls into: it injects test
// instances, resolves test method parameters, and blocks each new instance
// until the cluster under test is ready.
//
// One Extension is created per test binary, usually from TestMain:
//
//	func TestMain(m *testing.M) {
//		ext, err := extension.Load("cluster.yaml")
//		if err != nil {
//			log.Fatal(err)
//		}
//		code := m.Run()
//		_ = ext.Close()
//		os.Exit(code)
//	}
package extension

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	nasc "github.com/toutaio/toutago-nasc-testkit"
	"github.com/toutaio/toutago-nasc-testkit/cluster"
	"github.com/toutaio/toutago-nasc-testkit/injector"
	"github.com/toutaio/toutago-nasc-testkit/internal/logging"
	"github.com/toutaio/toutago-nasc-testkit/testctx"
)

// Option configures an Extension.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	modules    []nasc.Module
	registerer prometheus.Registerer
	client     cluster.AdminClient
	httpClient *http.Client
	containers []nasc.Option
}

// WithLogger sets the logger for the extension and every container it builds.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithModules adds modules to the baseline container, after cluster.Module.
func WithModules(modules ...nasc.Module) Option {
	return func(o *options) {
		o.modules = append(o.modules, modules...)
	}
}

// WithRegisterer registers the container cache metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithAdminClient replaces the HTTP admin client used by the readiness gate.
func WithAdminClient(client cluster.AdminClient) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithHTTPClient sets the HTTP client of the default admin client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithContainerOptions passes options to every container build.
func WithContainerOptions(opts ...nasc.Option) Option {
	return func(o *options) {
		o.containers = append(o.containers, opts...)
	}
}

// Extension owns the baseline container and the cache of per-context containers.
// It is safe for concurrent use by tests running in parallel.
type Extension struct {
	resolver *injector.Resolver
	logger   *zap.Logger
}

// New builds the baseline container from cluster.Module (configured with cfg)
// plus any WithModules modules. The build happens here, before any test runs.
func New(cfg *cluster.Config, opts ...Option) (*Extension, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	if cfg == nil {
		cfg = cluster.DefaultConfig()
	}

	baseline := append([]nasc.Module{&cluster.Module{
		Config:     cfg,
		Logger:     o.logger,
		HTTPClient: o.httpClient,
		Client:     o.client,
	}}, o.modules...)

	resolver, err := injector.NewResolver(baseline,
		injector.WithLogger(o.logger.Named("injector")),
		injector.WithRegisterer(o.registerer),
		injector.WithContainerOptions(o.containers...),
	)
	if err != nil {
		return nil, err
	}

	o.logger.Info("extension initialized",
		zap.String("coordinator_url", cfg.CoordinatorURL),
		zap.Bool("router", cfg.HasRouter()),
		zap.Int("baseline_modules", resolver.BaselineModules().Len()),
	)

	return &Extension{resolver: resolver, logger: o.logger}, nil
}

// Load reads the cluster configuration with cluster.LoadConfig, builds a
// logger at the configured level and returns New's Extension.
// Options given here override the logger.
func Load(path string, opts ...Option) (*Extension, error) {
	cfg, err := cluster.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return New(cfg, append([]Option{WithLogger(logger)}, opts...)...)
}

// Baseline returns the process-wide container.
func (e *Extension) Baseline() *nasc.Container {
	return e.resolver.Baseline()
}

// Container returns the container for tc: the one built from the modules
// visible at tc, or the baseline when none are declared. ok is false when tc
// has no element, in which case nothing is injected.
func (e *Extension) Container(tc *testctx.Context) (c *nasc.Container, ok bool, err error) {
	if !tc.HasElement() {
		return nil, false, nil
	}

	c, err = e.resolver.Resolve(testctx.CollectVisibleModules(tc))
	if err != nil {
		return nil, false, fmt.Errorf("building container for %s: %w", tc.DisplayName(), err)
	}
	return c, true, nil
}

// PostProcessTestInstance injects instance's tagged fields from tc's container,
// then blocks until the cluster is ready. instance must be a pointer to a struct.
// An element-less tc skips injection but still waits for readiness.
func (e *Extension) PostProcessTestInstance(ctx context.Context, instance interface{}, tc *testctx.Context) error {
	c, ok, err := e.Container(tc)
	if err != nil {
		return err
	}
	if ok {
		if err := c.InjectMembers(instance); err != nil {
			return fmt.Errorf("injecting %T for %s: %w", instance, tc.DisplayName(), err)
		}
	}

	return e.WaitUntilInstanceReady(ctx)
}

// Close closes every container built by the extension.
func (e *Extension) Close() error {
	return e.resolver.Close()
}
