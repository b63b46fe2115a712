package loader

import "io"

// loaderBackend imports one file format. Concrete implementations, such as
// gltfLoaderBackend, handle the format details.
type loaderBackend interface {
	// Load imports the file at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *ImportedAsset: the imported asset
	//   - error: error if loading fails
	Load(path string) (*ImportedAsset, error)

	// LoadReader imports an asset from a reader stream.
	//
	// Parameters:
	//   - name: the asset name to fall back on
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides binary data
	//
	// Returns:
	//   - *ImportedAsset: the imported asset
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*ImportedAsset, error)
}
