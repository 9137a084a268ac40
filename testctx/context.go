// Package testctx models the nesting of test scopes (outer suite, nested
// suite, test method) and collects the modules each scope declares.
package testctx

import (
	"reflect"

	nasc "github.com/toutaio/toutago-nasc-testkit"
)

// Kind says what an Element stands for.
type Kind int

const (
	// KindSuite is a test suite type.
	KindSuite Kind = iota
	// KindMethod is a single test method.
	KindMethod
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSuite:
		return "suite"
	case KindMethod:
		return "method"
	}
	return "unknown"
}

// Element is the declarative stand-in for an annotated suite or method.
// Modules lists the modules it declares, in declaration order. Supertypes are
// suites whose declarations this element inherits. TypeArgs binds the type
// variables that injection points of this suite may mention.
type Element struct {
	Name       string
	Kind       Kind
	Modules    []nasc.ModuleID
	Supertypes []*Element
	TypeArgs   map[string]reflect.Type
}

// Suite returns a suite element declaring modules.
func Suite(name string, modules ...nasc.ModuleID) *Element {
	return &Element{Name: name, Kind: KindSuite, Modules: modules}
}

// Method returns a method element declaring modules.
func Method(name string, modules ...nasc.ModuleID) *Element {
	return &Element{Name: name, Kind: KindMethod, Modules: modules}
}

// Extends adds supertypes to e and returns e.
func (e *Element) Extends(supertypes ...*Element) *Element {
	e.Supertypes = append(e.Supertypes, supertypes...)
	return e
}

// WithTypeArg binds a type variable for injection points of e and returns e.
func (e *Element) WithTypeArg(name string, t reflect.Type) *Element {
	if e.TypeArgs == nil {
		e.TypeArgs = make(map[string]reflect.Type)
	}
	e.TypeArgs[name] = t
	return e
}

// Context is one node of the test scope tree. Element is nil for synthetic
// scopes such as the engine root. Parent is only followed, never owned.
type Context struct {
	Name    string
	Element *Element
	Parent  *Context
}

// Root returns an element-less context with no parent.
func Root(name string) *Context {
	return &Context{Name: name}
}

// Child returns a context for element nested in c.
func (c *Context) Child(element *Element) *Context {
	name := ""
	if element != nil {
		name = element.Name
	}
	return &Context{Name: name, Element: element, Parent: c}
}

// HasElement reports whether c carries an element.
func (c *Context) HasElement() bool {
	return c != nil && c.Element != nil
}

// DisplayName joins the names from the root to c.
func (c *Context) DisplayName() string {
	if c == nil {
		return ""
	}
	parent := c.Parent.DisplayName()
	switch {
	case parent == "":
		return c.Name
	case c.Name == "":
		return parent
	}
	return parent + " > " + c.Name
}

// Suite returns the nearest enclosing suite element, starting at c itself.
func (c *Context) Suite() *Element {
	for ctx := c; ctx != nil; ctx = ctx.Parent {
		if ctx.Element != nil && ctx.Element.Kind == KindSuite {
			return ctx.Element
		}
	}
	return nil
}
