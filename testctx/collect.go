package testctx

import (
	"reflect"

	nasc "github.com/toutaio/toutago-nasc-testkit"
)

// ElementModules returns the modules declared on e and, transitively, on its
// supertypes: e's own declarations first, then each supertype depth-first in
// the order listed.
func ElementModules(e *Element) nasc.ModuleSet {
	if e == nil {
		return nasc.NewModuleSet()
	}

	var ids []nasc.ModuleID
	visited := make(map[*Element]struct{})

	var walk func(*Element)
	walk = func(el *Element) {
		if el == nil {
			return
		}
		if _, seen := visited[el]; seen {
			return
		}
		visited[el] = struct{}{}

		ids = append(ids, el.Modules...)
		for _, super := range el.Supertypes {
			walk(super)
		}
	}
	walk(e)

	return nasc.NewModuleSet(ids...)
}

// CollectVisibleModules returns every module declared on ctx's element or on
// any enclosing context's element, nearest first.
// The walk stops at a context that has neither an element nor a parent.
func CollectVisibleModules(ctx *Context) nasc.ModuleSet {
	var ids []nasc.ModuleID

	for c := ctx; c != nil && (c.Element != nil || c.Parent != nil); c = c.Parent {
		ids = append(ids, ElementModules(c.Element).IDs()...)
	}

	return nasc.NewModuleSet(ids...)
}

// CollectNewModules returns the modules ctx's element declares that are not
// already visible from its parent. An element-less context introduces nothing.
func CollectNewModules(ctx *Context) nasc.ModuleSet {
	if !ctx.HasElement() {
		return nasc.NewModuleSet()
	}

	own := ElementModules(ctx.Element)
	if ctx.Parent == nil {
		return own
	}
	return own.Without(CollectVisibleModules(ctx.Parent))
}

// ElementTypeArgs returns the type variable bindings of e merged with those of
// its supertypes. A variable bound by e wins over one bound by a supertype, and
// an earlier supertype wins over a later one.
func ElementTypeArgs(e *Element) map[string]reflect.Type {
	args := make(map[string]reflect.Type)
	visited := make(map[*Element]struct{})

	var walk func(*Element)
	walk = func(el *Element) {
		if el == nil {
			return
		}
		if _, seen := visited[el]; seen {
			return
		}
		visited[el] = struct{}{}

		for name, t := range el.TypeArgs {
			if _, bound := args[name]; !bound {
				args[name] = t
			}
		}
		for _, super := range el.Supertypes {
			walk(super)
		}
	}
	walk(e)

	return args
}
