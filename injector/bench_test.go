package injector

import (
	"testing"

	nasc "github.com/toutaio/toutago-nasc-testkit"
)

// BenchmarkResolve_CacheHit benchmarks resolving an already built module set.
func BenchmarkResolve_CacheHit(b *testing.B) {
	r, err := NewResolver([]nasc.Module{&baselineModule{url: "http://router:8888"}})
	if err != nil {
		b.Fatal(err)
	}
	defer r.Close()

	set := nasc.NewModuleSet(nasc.ModuleOf[fixtureModule](), nasc.ModuleOf[objectModule]())
	if _, err := r.Resolve(set); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := r.Resolve(set); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkResolve_Baseline benchmarks the empty-set path.
func BenchmarkResolve_Baseline(b *testing.B) {
	r, err := NewResolver([]nasc.Module{&baselineModule{}})
	if err != nil {
		b.Fatal(err)
	}
	defer r.Close()

	empty := nasc.NewModuleSet()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = r.Resolve(empty)
	}
}
