package refract

import "context"

// Module is a node in the module graph. A module's identity is independent
// of which environment it is viewed under; context-dependent views are
// produced by Transitions on the edges leading to it, never by duplicating
// the node.
type Module interface {
	// Ident returns the module's stable graph identity.
	Ident() string
}

// ChunkableModule is the capability of modules that can be placed into
// output chunks.
type ChunkableModule interface {
	Module

	// Chunkable marks the capability. It carries no behavior in this
	// core; chunk emission belongs to the bundle output layer.
	Chunkable()
}

// DeferredModule is a module whose underlying graph node is resolved
// lazily through the engine. Force may fail with an engine error, for
// example when the node's source failed to parse.
type DeferredModule interface {
	Module

	// Force resolves the underlying module node.
	Force(ctx context.Context) (Module, error)
}

// ChunkingContext identifies the artifact group a module's chunks are
// emitted into. Shared by reference; immutable after construction.
type ChunkingContext struct {
	// Name identifies the artifact group, e.g. "client".
	Name string

	// OutputRoot is the root-relative directory the group's chunks are
	// written under.
	OutputRoot string
}

// WithChunksModule associates a chunkable module with a specific chunking
// context so it is emitted into that context's artifact group instead of
// the group of the graph it was reached from.
type WithChunksModule struct {
	Module   ChunkableModule
	Chunking *ChunkingContext
}

// Ident returns the wrapped module's identity qualified by the chunking
// context, keeping the two views of the module distinct in the graph.
func (m *WithChunksModule) Ident() string {
	return m.Module.Ident() + " (chunks: " + m.Chunking.Name + ")"
}

// SourceModule is a plain source-file module.
type SourceModule struct {
	// Path is the root-relative path of the source file.
	Path string
}

// Ident returns the source path.
func (m *SourceModule) Ident() string {
	return m.Path
}

// Chunkable marks source modules as chunk-placeable.
func (m *SourceModule) Chunkable() {}

// Ensure SourceModule carries the chunkable capability.
var _ ChunkableModule = (*SourceModule)(nil)
