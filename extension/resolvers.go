package extension

import (
	"errors"
	"fmt"

	"github.com/toutaio/toutago-nasc-testkit/testctx"
)

// ParameterResolver is one source of test method arguments.
// *Extension implements it.
type ParameterResolver interface {
	SupportsParameter(ip InjectionPoint, tc *testctx.Context) (bool, error)
	ResolveParameter(ip InjectionPoint, tc *testctx.Context) (interface{}, error)
}

// ParameterResolverFunc adapts a pair of functions to ParameterResolver.
type ParameterResolverFunc struct {
	Supports func(ip InjectionPoint, tc *testctx.Context) bool
	Resolve  func(ip InjectionPoint, tc *testctx.Context) (interface{}, error)
}

func (f ParameterResolverFunc) SupportsParameter(ip InjectionPoint, tc *testctx.Context) (bool, error) {
	return f.Supports(ip, tc), nil
}

func (f ParameterResolverFunc) ResolveParameter(ip InjectionPoint, tc *testctx.Context) (interface{}, error) {
	return f.Resolve(ip, tc)
}

// UnresolvedParameterError is returned when no resolver supports a parameter.
type UnresolvedParameterError struct {
	Parameter InjectionPoint
	Context   string
}

func (e *UnresolvedParameterError) Error() string {
	return fmt.Sprintf("no resolver supports parameter %s in %s", e.Parameter, e.Context)
}

// ParameterResolvers tries each resolver in order and uses the first one
// that supports the parameter.
type ParameterResolvers []ParameterResolver

// Resolve returns the value for ip from the first supporting resolver.
// An error from SupportsParameter stops the search.
func (rs ParameterResolvers) Resolve(ip InjectionPoint, tc *testctx.Context) (interface{}, error) {
	for _, r := range rs {
		ok, err := r.SupportsParameter(ip, tc)
		if err != nil {
			return nil, err
		}
		if ok {
			return r.ResolveParameter(ip, tc)
		}
	}
	return nil, &UnresolvedParameterError{Parameter: ip, Context: tc.DisplayName()}
}

// ResolveAll resolves every parameter of one test method, in order.
// Unsupported parameters are all reported together; any other error is
// returned as soon as it occurs.
func (rs ParameterResolvers) ResolveAll(tc *testctx.Context, params ...InjectionPoint) ([]interface{}, error) {
	args := make([]interface{}, 0, len(params))
	var unresolved []error
	for _, ip := range params {
		v, err := rs.Resolve(ip, tc)
		var missing *UnresolvedParameterError
		switch {
		case errors.As(err, &missing):
			unresolved = append(unresolved, err)
		case err != nil:
			return nil, err
		default:
			args = append(args, v)
		}
	}
	if len(unresolved) > 0 {
		return nil, errors.Join(unresolved...)
	}
	return args, nil
}

var _ ParameterResolver = (*Extension)(nil)
