package loader

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithRenderer is an option builder that sets the Renderer assets are uploaded with.
//
// Parameters:
//   - r: the renderer instance
//
// Returns:
//   - LoaderBuilderOption: a function that applies the renderer option to a loader
func WithRenderer(r renderer.Renderer) LoaderBuilderOption {
	return func(l *loader) {
		l.renderer = r
	}
}

// WithMeshBindings is an option builder that sets the provider bindings of the vertex and
// index buffers. The defaults are 0 and 1.
//
// Parameters:
//   - vertex: the vertex buffer binding
//   - index: the index buffer binding
//
// Returns:
//   - LoaderBuilderOption: a function that applies the bindings to a loader
func WithMeshBindings(vertex, index int) LoaderBuilderOption {
	return func(l *loader) {
		l.vertexBinding = vertex
		l.indexBinding = index
	}
}

// WithAsset is an option builder that pre-populates the cache.
//
// Parameters:
//   - key: the cache key
//   - asset: the asset to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the asset option to a loader
func WithAsset(key string, asset *GPUAsset) LoaderBuilderOption {
	return func(l *loader) {
		l.cache[key] = asset
	}
}
