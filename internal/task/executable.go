package task

import "context"

// Executable is the closed capability union a materialized Task must
// satisfy. This replaces the source's duck typing ("anything callable, or
// anything with run()") with an explicit sum of the three shapes it
// actually accepted: a Runnable owned by the worker's parent chain, a
// plain callable, and a bare run()-object. The unexported isExecutable
// marker means only this package's types (and types embedding one of
// them, such as BaseRunnable) satisfy it, so Materialize cannot return an
// unrelated value. An Executable that exposes no Run method (for example
// a nil value) is turned into a failing result when the worker executes
// it.
type Executable interface {
	isExecutable()
}

// Runnable is adopted by the worker (becomes its parent) before running,
// mirroring entity.Runnable in the source: a sub-component that needs a
// parent reference to resolve its own configuration chain.
type Runnable interface {
	Executable
	Run(ctx context.Context) (any, error)
	SetParent(parent any)
	Parent() any
}

// CallableTask is a bare function with no parent-adoption semantics.
type CallableTask func(ctx context.Context) (any, error)

func (CallableTask) isExecutable() {}

// Run invokes the underlying function.
func (c CallableTask) Run(ctx context.Context) (any, error) { return c(ctx) }

// RunObjectTask is an object exposing only Run, with no parent to adopt.
type RunObjectTask interface {
	Executable
	Run(ctx context.Context) (any, error)
}

// BaseRunnable is an embeddable helper giving a struct the Runnable parent
// bookkeeping without repeating the boilerplate at each call site.
type BaseRunnable struct {
	parent any
}

func (*BaseRunnable) isExecutable() {}

func (b *BaseRunnable) SetParent(p any) { b.parent = p }
func (b *BaseRunnable) Parent() any     { return b.parent }
