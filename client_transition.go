package refract

import "context"

// ClientTransition forces the client build context on every module reached
// through its edge: browser compile-time info, client processing rules,
// and client resolution rules replace whatever was in effect upstream.
// Modules pass through unchanged.
type ClientTransition struct {
	compileTimeInfo CompileTimeInfo
	moduleOptions   ModuleOptions
	resolveOptions  ResolveOptions
}

// NewClientTransition creates a transition substituting the given client
// contexts.
func NewClientTransition(
	info CompileTimeInfo,
	moduleOptions ModuleOptions,
	resolveOptions ResolveOptions,
) *ClientTransition {
	return &ClientTransition{
		compileTimeInfo: info,
		moduleOptions:   moduleOptions,
		resolveOptions:  resolveOptions,
	}
}

func (t *ClientTransition) ProcessCompileTimeInfo(_ CompileTimeInfo) CompileTimeInfo {
	return t.compileTimeInfo
}

func (t *ClientTransition) ProcessModuleOptions(_ ModuleOptions) ModuleOptions {
	return t.moduleOptions
}

func (t *ClientTransition) ProcessResolveOptions(_ ResolveOptions) ResolveOptions {
	return t.resolveOptions
}

func (t *ClientTransition) ProcessModule(_ context.Context, module Module, _ *ModuleContext) (Module, error) {
	return module, nil
}

// Ensure ClientTransition implements Transition.
var _ Transition = (*ClientTransition)(nil)

// ClientChunksTransition forces the client build context like
// ClientTransition and additionally associates chunkable modules with the
// client chunking context, so modules pulled across the edge are emitted
// into the client artifact group rather than the group of their home
// graph.
type ClientChunksTransition struct {
	ClientTransition

	chunking *ChunkingContext
}

// NewClientChunksTransition creates a transition substituting the given
// client contexts and wrapping chunkable modules for the given chunking
// context.
func NewClientChunksTransition(
	info CompileTimeInfo,
	moduleOptions ModuleOptions,
	resolveOptions ResolveOptions,
	chunking *ChunkingContext,
) *ClientChunksTransition {
	return &ClientChunksTransition{
		ClientTransition: ClientTransition{
			compileTimeInfo: info,
			moduleOptions:   moduleOptions,
			resolveOptions:  resolveOptions,
		},
		chunking: chunking,
	}
}

// ProcessModule wraps chunkable modules in a WithChunksModule bound to the
// client chunking context. Deferred modules are forced first; a failure to
// resolve the underlying node is an engine error and propagates. Modules
// without the chunkable capability pass through unchanged.
func (t *ClientChunksTransition) ProcessModule(ctx context.Context, module Module, _ *ModuleContext) (Module, error) {
	if deferred, ok := module.(DeferredModule); ok {
		forced, err := deferred.Force(ctx)
		if err != nil {
			return nil, err
		}
		module = forced
	}
	if chunkable, ok := module.(ChunkableModule); ok {
		return &WithChunksModule{Module: chunkable, Chunking: t.chunking}, nil
	}
	return module, nil
}

// Ensure ClientChunksTransition implements Transition.
var _ Transition = (*ClientChunksTransition)(nil)
