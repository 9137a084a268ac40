package injector

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	nasc "github.com/toutaio/toutago-nasc-testkit"
)

type clusterConfig struct {
	URL string
}

// baselineModule carries state, like a module built from loaded configuration.
type baselineModule struct {
	url string
}

func (m *baselineModule) Configure(b *nasc.Binder) error {
	return nasc.BindInstance(b, &clusterConfig{URL: m.url})
}

var builds atomic.Int32

// objectModule counts how often it is configured, i.e. how many containers include it.
type objectModule struct{}

func (objectModule) Configure(b *nasc.Binder) error {
	builds.Add(1)
	return nasc.BindSingleton[*sharedState](b, func(*nasc.Container) (*sharedState, error) {
		return &sharedState{}, nil
	})
}

type sharedState struct{ n int }

type fixtureModule struct{}

func (fixtureModule) Configure(b *nasc.Binder) error {
	return nasc.BindQualifiedInstance(b, "datasource", "wikipedia")
}

type otherFixtureModule struct{}

func (otherFixtureModule) Configure(b *nasc.Binder) error {
	return nasc.BindQualifiedInstance(b, "datasource", "tpch")
}

// clashingModule rebinds what baselineModule binds.
type clashingModule struct{}

func (clashingModule) Configure(b *nasc.Binder) error {
	return nasc.BindInstance(b, &clusterConfig{})
}

func newTestResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	r, err := NewResolver([]nasc.Module{&baselineModule{url: "http://router:8888"}}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestNewResolver_BaselineIsBuiltEagerly(t *testing.T) {
	r := newTestResolver(t)

	require.NotNil(t, r.Baseline())
	cfg := nasc.MustGet[*clusterConfig](r.Baseline())
	assert.Equal(t, "http://router:8888", cfg.URL)
	assert.Equal(t, 0, r.CachedContainers())
}

func TestResolve_EmptySetUsesBaseline(t *testing.T) {
	r := newTestResolver(t)

	first, err := r.Resolve(nasc.NewModuleSet())
	require.NoError(t, err)
	second, err := r.Resolve(r.BaselineModules())
	require.NoError(t, err)

	assert.Same(t, r.Baseline(), first)
	assert.Same(t, r.Baseline(), second)
	assert.Equal(t, 0, r.CachedContainers(), "baseline resolution must not create cache entries")
}

func TestResolve_ComposesBaselineWithSet(t *testing.T) {
	r := newTestResolver(t)

	c, err := r.Resolve(nasc.NewModuleSet(nasc.ModuleOf[fixtureModule]()))
	require.NoError(t, err)

	assert.NotSame(t, r.Baseline(), c)
	assert.Equal(t, "http://router:8888", nasc.MustGet[*clusterConfig](c).URL)

	v, err := c.GetInstance(nasc.QualifiedKeyOf[string]("datasource"))
	require.NoError(t, err)
	assert.Equal(t, "wikipedia", v)

	ids := c.Modules().IDs()
	require.Len(t, ids, 2)
	assert.Equal(t, nasc.ModuleIDOf(&baselineModule{}), ids[0], "baseline modules come first")
}

func TestResolve_OrderIndependentCacheKey(t *testing.T) {
	r := newTestResolver(t)

	s1 := nasc.NewModuleSet(nasc.ModuleOf[fixtureModule](), nasc.ModuleOf[objectModule]())
	s2 := nasc.NewModuleSet(nasc.ModuleOf[objectModule](), nasc.ModuleOf[fixtureModule]())

	c1, err := r.Resolve(s1)
	require.NoError(t, err)
	c2, err := r.Resolve(s2)
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, r.CachedContainers())
	assert.Same(t, nasc.MustGet[*sharedState](c1), nasc.MustGet[*sharedState](c2))
}

// localModuleA and localModuleB return modules whose types share a name.
func localModuleA() nasc.ModuleID {
	type localModule struct{ fixtureModule }
	return nasc.ModuleOf[localModule]()
}

func localModuleB() nasc.ModuleID {
	type localModule struct{ otherFixtureModule }
	return nasc.ModuleOf[localModule]()
}

func TestResolve_SameNamedModulesGetTheirOwnContainers(t *testing.T) {
	r := newTestResolver(t)

	ca, err := r.Resolve(nasc.NewModuleSet(localModuleA()))
	require.NoError(t, err)
	cb, err := r.Resolve(nasc.NewModuleSet(localModuleB()))
	require.NoError(t, err)

	assert.NotSame(t, ca, cb)
	assert.Equal(t, 2, r.CachedContainers())

	key := nasc.QualifiedKeyOf[string]("datasource")
	v, err := ca.GetInstance(key)
	require.NoError(t, err)
	assert.Equal(t, "wikipedia", v)
	v, err = cb.GetInstance(key)
	require.NoError(t, err)
	assert.Equal(t, "tpch", v)
}

func TestResolve_ConcurrentFirstUseBuildsOnce(t *testing.T) {
	r := newTestResolver(t)
	builds.Store(0)

	const n = 64
	set := nasc.NewModuleSet(nasc.ModuleOf[objectModule]())
	results := make([]*nasc.Container, n)

	var (
		g     errgroup.Group
		start sync.WaitGroup
	)
	start.Add(1)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			start.Wait()
			c, err := r.Resolve(set)
			results[i] = c
			return err
		})
	}
	start.Done()
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), builds.Load(), "container must be built exactly once")
	for _, c := range results {
		assert.Same(t, results[0], c)
	}
}

func TestResolve_BuildFailurePropagates(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newTestResolver(t, WithRegisterer(reg))

	set := nasc.NewModuleSet(nasc.ModuleOf[clashingModule]())
	for i := 0; i < 2; i++ {
		_, err := r.Resolve(set)

		var dup *nasc.BindingAlreadyExistsError
		require.ErrorAs(t, err, &dup)
	}

	assert.Equal(t, 0, r.CachedContainers(), "failed builds are not cached")
	assert.Equal(t, float64(2), testutil.ToFloat64(r.metrics.buildFailures))
}

func TestResolve_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newTestResolver(t, WithRegisterer(reg))

	set := nasc.NewModuleSet(nasc.ModuleOf[fixtureModule]())
	for i := 0; i < 3; i++ {
		_, err := r.Resolve(set)
		require.NoError(t, err)
	}
	_, err := r.Resolve(nasc.NewModuleSet())
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.metrics.builds), "baseline plus one cached set")
	assert.Equal(t, float64(2), testutil.ToFloat64(r.metrics.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.baselineHits))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestNewResolver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = newTestResolver(t, WithRegisterer(reg))

	_, err := NewResolver(nil, WithRegisterer(reg))
	assert.Error(t, err)
}

func TestNewResolver_BaselineFailure(t *testing.T) {
	_, err := NewResolver([]nasc.Module{&baselineModule{}, clashingModule{}})

	var dup *nasc.BindingAlreadyExistsError
	assert.ErrorAs(t, err, &dup)
}

func TestResolver_Close(t *testing.T) {
	r, err := NewResolver([]nasc.Module{&baselineModule{}})
	require.NoError(t, err)

	_, err = r.Resolve(nasc.NewModuleSet(nasc.ModuleOf[fixtureModule]()))
	require.NoError(t, err)
	require.Equal(t, 1, r.CachedContainers())

	require.NoError(t, r.Close())
	assert.Equal(t, 0, r.CachedContainers())
}

func TestCache_Peek(t *testing.T) {
	var calls int
	cache := NewCache(func(set nasc.ModuleSet) (*nasc.Container, error) {
		calls++
		return nasc.New(set)
	})
	set := nasc.NewModuleSet(nasc.ModuleOf[fixtureModule]())

	_, ok := cache.Peek(set)
	assert.False(t, ok)

	built, hit, err := cache.Get(set)
	require.NoError(t, err)
	assert.False(t, hit)

	again, hit, err := cache.Get(set)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, built, again)

	peeked, ok := cache.Peek(set)
	assert.True(t, ok)
	assert.Same(t, built, peeked)
	assert.Equal(t, 1, calls)
}
