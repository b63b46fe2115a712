// Package loader imports skinned glTF 2.0 assets: skins become BoneSets, animations become
// AnimationClips and mesh primitives become skinned vertex data on a model.Instantiable.
package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
)

// LoaderBackendType identifies the file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// MeshDraw locates one mesh inside an asset's combined index buffer. Indices are already
// offset into the combined vertex buffer.
type MeshDraw struct {
	FirstIndex uint32
	IndexCount uint32
}

// GPUAsset is an imported asset whose vertex and index data has been uploaded.
type GPUAsset struct {
	*ImportedAsset

	// Provider holds the vertex buffer and the index buffer.
	Provider bind_group_provider.BindGroupProvider

	// Draws is parallel to Meshes.
	Draws []MeshDraw
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	renderer      renderer.Renderer
	vertexBinding int
	indexBinding  int

	cache map[string]*GPUAsset

	backend loaderBackend
}

// Loader imports and caches skinned assets. With a Renderer configured every loaded asset
// is uploaded once; without one the GPUAsset carries CPU data only.
type Loader interface {
	// Load imports a .gltf or .glb file, or returns the asset cached under path.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *GPUAsset: the loaded and cached asset
	//   - error: error if the format is unsupported or loading fails
	Load(path string) (*GPUAsset, error)

	// LoadReader imports an asset from r and caches it under name, or returns the asset
	// already cached under name.
	//
	// Parameters:
	//   - name: the cache key, also used as the asset name when the document has none
	//   - r: the reader providing model data
	//   - isGLB: true if r provides GLB data
	//
	// Returns:
	//   - *GPUAsset: the loaded asset
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*GPUAsset, error)

	// Get returns the asset cached under name, or nil.
	Get(name string) *GPUAsset

	// Assets returns a copy of the cache.
	Assets() map[string]*GPUAsset

	// Release releases every uploaded buffer and empties the cache.
	Release()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the new Loader
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		vertexBinding: 0,
		indexBinding:  1,
		cache:         make(map[string]*GPUAsset),
	}
	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	default:
		panic(fmt.Sprintf("loader: unsupported backend %d", backendType))
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*GPUAsset, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}
	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}
	imported, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.store(path, imported)
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*GPUAsset, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}
	imported, err := l.backend.LoadReader(name, r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	return l.store(name, imported)
}

func (l *loader) Get(name string) *GPUAsset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache[name]
}

func (l *loader) Assets() map[string]*GPUAsset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]*GPUAsset, len(l.cache))
	for k, v := range l.cache {
		out[k] = v
	}
	return out
}

func (l *loader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.cache {
		if a.Provider != nil {
			a.Provider.Release()
		}
	}
	l.cache = make(map[string]*GPUAsset)
}

// store uploads the asset and caches it. A concurrent load of the same key keeps the first.
func (l *loader) store(key string, imported *ImportedAsset) (*GPUAsset, error) {
	asset, err := l.upload(imported)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.cache[key]; ok {
		if asset.Provider != nil {
			asset.Provider.Release()
		}
		return existing, nil
	}
	l.cache[key] = asset
	return asset, nil
}

// resolveBackend selects the backend for a file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported model format: %s", ext)
	}
}

// upload combines every mesh into one vertex and one index buffer, offsetting each mesh's
// indices by the vertices before it. Without a renderer only the draw ranges are filled.
func (l *loader) upload(imported *ImportedAsset) (*GPUAsset, error) {
	asset := &GPUAsset{ImportedAsset: imported, Draws: make([]MeshDraw, len(imported.Meshes))}

	var vertexBytes []byte
	var indices []uint32
	base := uint32(0)
	for i := range imported.Meshes {
		mesh := &imported.Meshes[i]
		asset.Draws[i] = MeshDraw{FirstIndex: uint32(len(indices)), IndexCount: uint32(len(mesh.Indices))}
		vertexBytes = append(vertexBytes, mesh.VertexBytes()...)
		for _, idx := range mesh.Indices {
			indices = append(indices, idx+base)
		}
		base += uint32(len(mesh.Vertices))
	}

	if l.renderer == nil || len(indices) == 0 {
		return asset, nil
	}
	provider := bind_group_provider.NewBindGroupProvider(imported.Name + " Mesh")
	if err := l.renderer.InitVertexBuffer(provider, l.vertexBinding, vertexBytes); err != nil {
		provider.Release()
		return nil, fmt.Errorf("loader: %s: %w", imported.Name, err)
	}
	if err := l.renderer.InitIndexBuffer(provider, l.indexBinding, common.SliceToBytes(indices)); err != nil {
		provider.Release()
		return nil, fmt.Errorf("loader: %s: %w", imported.Name, err)
	}
	asset.Provider = provider
	return asset, nil
}
