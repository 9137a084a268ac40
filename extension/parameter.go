package extension

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	nasc "github.com/toutaio/toutago-nasc-testkit"
	"github.com/toutaio/toutago-nasc-testkit/testctx"
	"github.com/toutaio/toutago-nasc-testkit/typeref"
)

// InjectionPoint describes one test method parameter.
//
// Type may mention type variables; they are bound by the TypeArgs of the
// suite running the test, or of Declaring when the context has no suite.
// At most one qualifier is supported.
type InjectionPoint struct {
	Name       string
	Type       typeref.Ref
	Qualifiers []string
	Declaring  *testctx.Element
}

// Param returns an injection point of type T with the given qualifiers.
func Param[T any](name string, qualifiers ...string) InjectionPoint {
	return InjectionPoint{Name: name, Type: typeref.Of[T](), Qualifiers: qualifiers}
}

func (ip InjectionPoint) String() string {
	var b strings.Builder
	b.WriteString(ip.Name)
	b.WriteByte(' ')
	b.WriteString(ip.Type.String())
	for _, q := range ip.Qualifiers {
		b.WriteString(" @")
		b.WriteString(q)
	}
	return b.String()
}

// ParameterResolutionError is returned by ResolveParameter. Unlike a false
// SupportsParameter it is fatal to the test.
type ParameterResolutionError struct {
	Parameter InjectionPoint
	Context   string
	Cause     error
}

func (e *ParameterResolutionError) Error() string {
	return fmt.Sprintf("resolving parameter %s in %s: %v", e.Parameter, e.Context, e.Cause)
}

func (e *ParameterResolutionError) Unwrap() error {
	return e.Cause
}

// SupportsParameter reports whether ResolveParameter can produce a value for
// ip. Missing bindings, failing providers and unbound type variables all
// yield false so another resolver can take the parameter. So does a parameter
// with more than one qualifier, and a bare string parameter without an
// explicit binding for exactly that key.
//
// The error is reserved for a container that cannot be built, which no other
// resolver can work around.
func (e *Extension) SupportsParameter(ip InjectionPoint, tc *testctx.Context) (bool, error) {
	logger := e.logger.With(zap.Stringer("parameter", ip), zap.String("context", tc.DisplayName()))

	if len(ip.Qualifiers) > 1 {
		logger.Debug("declining parameter with several qualifiers", zap.Strings("qualifiers", ip.Qualifiers))
		return false, nil
	}

	key, err := bindingKey(ip, tc)
	if err != nil {
		logger.Debug("declining parameter", zap.Error(err))
		return false, nil
	}

	c, ok, err := e.Container(tc)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if key == nasc.KeyOf[string]() && c.ExistingBinding(key) == nil {
		return false, nil
	}

	if _, err := c.GetInstance(key); err != nil {
		logger.Debug("declining parameter", zap.Stringer("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// ResolveParameter returns the value bound to ip's key in tc's container.
// Every failure is a *ParameterResolutionError.
func (e *Extension) ResolveParameter(ip InjectionPoint, tc *testctx.Context) (interface{}, error) {
	fail := func(err error) (interface{}, error) {
		return nil, &ParameterResolutionError{Parameter: ip, Context: tc.DisplayName(), Cause: err}
	}

	if len(ip.Qualifiers) > 1 {
		return fail(&nasc.QualifierConflictError{Point: ip.Name, Qualifiers: ip.Qualifiers})
	}

	key, err := bindingKey(ip, tc)
	if err != nil {
		return fail(err)
	}

	c, ok, err := e.Container(tc)
	if err != nil {
		return fail(err)
	}
	if !ok {
		return fail(errors.New("context has no element to build a container for"))
	}

	v, err := c.GetInstance(key)
	if err != nil {
		return fail(err)
	}
	return v, nil
}

// bindingKey resolves ip's type against the suite's type arguments and pairs
// it with ip's qualifier, if any.
func bindingKey(ip InjectionPoint, tc *testctx.Context) (nasc.Key, error) {
	if ip.Type.IsZero() {
		return nasc.Key{}, fmt.Errorf("parameter %s has no type", ip.Name)
	}

	scope := ip.Declaring
	if suite := tc.Suite(); suite != nil {
		scope = suite
	}

	t, err := ip.Type.Resolve(testctx.ElementTypeArgs(scope))
	if err != nil {
		return nasc.Key{}, err
	}

	key := nasc.Key{Type: t}
	if len(ip.Qualifiers) == 1 {
		key.Qualifier = ip.Qualifiers[0]
	}
	return key, nil
}
