// Package nasc is the dependency injection container behind the testkit.
//
// A Container is composed from a ModuleSet: an ordered set of Module types,
// each of which registers bindings on a Binder. Once built, a container
// resolves Keys (a type plus an optional qualifier) to values and injects
// tagged struct fields.
//
// # Quick Start
//
//	type ClusterModule struct{}
//
//	func (ClusterModule) Configure(b *nasc.Binder) error {
//	    return nasc.BindInstance(b, "http://localhost:8081")
//	}
//
//	container, err := nasc.New(nasc.NewModuleSet(nasc.ModuleOf[ClusterModule]()))
//	url := nasc.MustGet[string](container)
//
// # Lifetimes
//
//   - Instance: a value supplied at bind time
//   - Transient: a constructor called on every resolution
//   - Singleton: a constructor or factory called once per container
//   - Factory: a factory called on every resolution
//
// # Qualifiers
//
// Several bindings of one type are told apart by a qualifier:
//
//	nasc.BindQualifiedInstance(b, "datasource", "wikipedia")
//	v, err := container.GetInstance(nasc.QualifiedKeyOf[string]("datasource"))
//
// # Member Injection
//
// Exported fields tagged `inject` are set by InjectMembers:
//
//	type Suite struct {
//	    Client AdminClient `inject:""`
//	    Source string      `inject:"name=datasource"`
//	    Extra  Recorder    `inject:"optional"`
//	}
//
// # Just-In-Time Bindings
//
// Unqualified keys without a binding are still satisfied for pointer-to-struct
// and struct types (a new value with members injected) and for strings (the
// empty string). WithRequireExplicitBindings turns this off.
//
// # Thread Safety
//
// Building a container is single-threaded. Resolution, member injection and
// Close are safe for concurrent use.
package nasc
