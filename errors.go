package nasc

import (
	"fmt"
	"strings"

	"github.com/toutaio/toutago-nasc-testkit/registry"
)

// BindingNotFoundError is returned when a requested key has no binding and
// cannot be satisfied just in time.
type BindingNotFoundError = registry.BindingNotFoundError

// BindingAlreadyExistsError is returned when two bindings claim the same key,
// either inside one module or across composed modules.
type BindingAlreadyExistsError = registry.BindingAlreadyExistsError

// InvalidBindingError is returned when a binding has invalid parameters.
type InvalidBindingError struct {
	Key    Key
	Reason string
}

func (e *InvalidBindingError) Error() string {
	if e.Key.Type == nil {
		return fmt.Sprintf("invalid binding: %s", e.Reason)
	}
	return fmt.Sprintf("invalid binding for %v: %s", e.Key, e.Reason)
}

// ResolutionError is returned when instance resolution fails.
type ResolutionError struct {
	Key     Key
	Cause   error
	Context string
}

func (e *ResolutionError) Error() string {
	contextStr := ""
	if e.Context != "" {
		contextStr = fmt.Sprintf(": %s", e.Context)
	}

	causeStr := ""
	if e.Cause != nil {
		causeStr = fmt.Sprintf(": %v", e.Cause)
	}

	return fmt.Sprintf("failed to resolve %v%s%s", e.Key, contextStr, causeStr)
}

// Unwrap returns the underlying cause error.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// CircularDependencyError indicates a circular dependency was detected.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Path) == 0 {
		return "circular dependency detected"
	}
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Path, " -> "))
}

// QualifierConflictError is returned when one injection point carries more
// than one qualifier.
type QualifierConflictError struct {
	Point      string
	Qualifiers []string
}

func (e *QualifierConflictError) Error() string {
	return fmt.Sprintf("%s has more than one qualifier: %s", e.Point, strings.Join(e.Qualifiers, ", "))
}

// ModuleError reports a module that failed to configure or boot.
type ModuleError struct {
	Module string
	Phase  string
	Cause  error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s failed to %s: %v", e.Module, e.Phase, e.Cause)
}

func (e *ModuleError) Unwrap() error {
	return e.Cause
}
