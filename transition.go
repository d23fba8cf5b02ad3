package refract

import (
	"context"
	"fmt"
)

// Environment is the target environment a module is compiled for.
type Environment string

const (
	// EnvironmentNodeJS targets the Node.js server runtime.
	EnvironmentNodeJS Environment = "nodejs"

	// EnvironmentBrowser targets the browser.
	EnvironmentBrowser Environment = "browser"

	// EnvironmentEdge targets the edge runtime.
	EnvironmentEdge Environment = "edge"
)

// CompileTimeInfo describes the target environment and the global defines a
// module is compiled under.
type CompileTimeInfo struct {
	Environment Environment
	Defines     map[string]string
}

// ProcessingRule selects the transform pipeline for sources matching an
// extension.
type ProcessingRule struct {
	Extension string
	Pipeline  []string
}

// ModuleOptions configures the source processing rules used downstream of
// a graph edge.
type ModuleOptions struct {
	Rules []ProcessingRule
}

// ResolveOptions configures module resolution downstream of a graph edge.
type ResolveOptions struct {
	Aliases    map[string]string
	Conditions []string
	Extensions []string
}

// Transition rewrites a module's build context as graph traversal crosses
// an edge tagged with it. Context is attached to edges, not modules: the
// same source module reached through different transitions yields
// different compile-context views without duplicating the graph.
//
// Transitions are stateless policy objects, safe to share across
// arbitrarily many edges and evaluations. Every operation must be a pure
// function of its declared inputs. The three context operations are total;
// only ProcessModule may fail, and only with an engine error from
// resolving the module's capability, which propagates to the caller.
type Transition interface {
	// ProcessCompileTimeInfo substitutes the compile-time info used
	// downstream of the edge, independent of what it was upstream.
	ProcessCompileTimeInfo(info CompileTimeInfo) CompileTimeInfo

	// ProcessModuleOptions substitutes the source processing rules used
	// downstream of the edge.
	ProcessModuleOptions(options ModuleOptions) ModuleOptions

	// ProcessResolveOptions substitutes the resolution rules used
	// downstream of the edge.
	ProcessResolveOptions(options ResolveOptions) ResolveOptions

	// ProcessModule optionally wraps or replaces the module reached
	// through the edge, after it was processed under the transformed
	// contexts above. Modules not matching the transition's expected
	// capability pass through unchanged.
	ProcessModule(ctx context.Context, module Module, mc *ModuleContext) (Module, error)
}

// IdentityTransition passes every context and module through unchanged.
type IdentityTransition struct{}

func (IdentityTransition) ProcessCompileTimeInfo(info CompileTimeInfo) CompileTimeInfo {
	return info
}

func (IdentityTransition) ProcessModuleOptions(options ModuleOptions) ModuleOptions {
	return options
}

func (IdentityTransition) ProcessResolveOptions(options ResolveOptions) ResolveOptions {
	return options
}

func (IdentityTransition) ProcessModule(_ context.Context, module Module, _ *ModuleContext) (Module, error) {
	return module, nil
}

// Ensure IdentityTransition implements Transition.
var _ Transition = IdentityTransition{}

// ModuleContext bundles the contexts a module is processed under, plus the
// named transitions available on outgoing edges. Contexts are immutable;
// crossing a transition edge derives a new context rather than mutating
// the current one, so one context can be shared across a whole traversal.
type ModuleContext struct {
	compileTimeInfo CompileTimeInfo
	moduleOptions   ModuleOptions
	resolveOptions  ResolveOptions
	transitions     map[string]Transition
}

// NewModuleContext creates a context from baseline options and a named
// transition table. The table is copied.
func NewModuleContext(
	info CompileTimeInfo,
	moduleOptions ModuleOptions,
	resolveOptions ResolveOptions,
	transitions map[string]Transition,
) *ModuleContext {
	table := make(map[string]Transition, len(transitions))
	for name, t := range transitions {
		table[name] = t
	}
	return &ModuleContext{
		compileTimeInfo: info,
		moduleOptions:   moduleOptions,
		resolveOptions:  resolveOptions,
		transitions:     table,
	}
}

// CompileTimeInfo returns the context's compile-time info.
func (c *ModuleContext) CompileTimeInfo() CompileTimeInfo {
	return c.compileTimeInfo
}

// ModuleOptions returns the context's source processing rules.
func (c *ModuleContext) ModuleOptions() ModuleOptions {
	return c.moduleOptions
}

// ResolveOptions returns the context's resolution rules.
func (c *ModuleContext) ResolveOptions() ResolveOptions {
	return c.resolveOptions
}

// Transition returns the named transition, if registered.
func (c *ModuleContext) Transition(name string) (Transition, bool) {
	t, ok := c.transitions[name]
	return t, ok
}

// ApplyTransition returns the context seen on the far side of a transition
// edge: each of the three contexts rewritten by the transition, with the
// transition table carried over.
func (c *ModuleContext) ApplyTransition(t Transition) *ModuleContext {
	return &ModuleContext{
		compileTimeInfo: t.ProcessCompileTimeInfo(c.compileTimeInfo),
		moduleOptions:   t.ProcessModuleOptions(c.moduleOptions),
		resolveOptions:  t.ProcessResolveOptions(c.resolveOptions),
		transitions:     c.transitions,
	}
}

// WithTransition derives the context for the named transition edge. It
// fails when no transition is registered under the name; edges selected at
// runtime by metadata go through here, edges known at graph construction
// call ApplyTransition directly.
func (c *ModuleContext) WithTransition(name string) (*ModuleContext, error) {
	t, ok := c.transitions[name]
	if !ok {
		return nil, fmt.Errorf("unknown transition %q", name)
	}
	return c.ApplyTransition(t), nil
}

// ProcessModule runs the module step of crossing a transition edge: the
// module, already processed under the derived context, is handed to the
// transition for optional wrapping. Engine errors from the transition
// propagate unchanged.
func (c *ModuleContext) ProcessModule(ctx context.Context, t Transition, module Module) (Module, error) {
	return t.ProcessModule(ctx, module, c.ApplyTransition(t))
}
