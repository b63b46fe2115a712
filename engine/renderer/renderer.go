package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	device               *wgpu.Device
	forceFallbackAdapter bool
}

// Renderer uploads skinning data to the GPU.
//
// It creates the buffers a skinned instance needs on a BindGroupProvider and writes staged
// BufferWrites into them through the device queue. Drawing is left to the host application,
// which binds the provider's buffers in its own pipelines.
type Renderer interface {
	// InitBoneBuffer creates a storage buffer holding the given number of 4x4 float32 matrices
	// at the provider's binding. An existing buffer of the same size is kept.
	//
	// Parameters:
	//   - provider: the BindGroupProvider that will own the buffer
	//   - binding: the binding index
	//   - matrices: the number of matrices, usually Instantiable.NumBoneMatrices
	//
	// Returns:
	//   - error: an error if matrices is not positive or the buffer could not be created
	InitBoneBuffer(provider bind_group_provider.BindGroupProvider, binding, matrices int) error

	// InitInstanceBuffer creates a uniform buffer for one model.GPUInstanceData at the provider's binding.
	//
	// Parameters:
	//   - provider: the BindGroupProvider that will own the buffer
	//   - binding: the binding index
	//
	// Returns:
	//   - error: an error if the buffer could not be created
	InitInstanceBuffer(provider bind_group_provider.BindGroupProvider, binding int) error

	// InitVertexBuffer creates a vertex buffer at the provider's binding and uploads data into it.
	//
	// Parameters:
	//   - provider: the BindGroupProvider that will own the buffer
	//   - binding: the binding index
	//   - data: the marshalled vertices
	//
	// Returns:
	//   - error: an error if data is empty or the buffer could not be created
	InitVertexBuffer(provider bind_group_provider.BindGroupProvider, binding int, data []byte) error

	// InitIndexBuffer creates an index buffer at the provider's binding and uploads data,
	// a list of uint32 indices, into it.
	//
	// Parameters:
	//   - provider: the BindGroupProvider that will own the buffer
	//   - binding: the binding index
	//   - data: the little-endian uint32 indices
	//
	// Returns:
	//   - error: an error if data is empty or the buffer could not be created
	InitIndexBuffer(provider bind_group_provider.BindGroupProvider, binding int, data []byte) error

	// WriteBuffers uploads the staged writes. Writes whose target buffer does not exist or
	// is too small are skipped.
	//
	// Parameters:
	//   - writes: the staged writes
	//
	// Returns:
	//   - int: the number of writes submitted to the queue
	WriteBuffers(writes []bind_group_provider.BufferWrite) int

	// BackendType returns the backend the renderer was created with.
	BackendType() RendererBackendType

	// Device returns the device buffers are created on.
	Device() *wgpu.Device

	// Release releases the GPU objects the renderer created itself.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend type and options.
// Without WithDevice a headless device is requested from the first suitable adapter.
//
// Parameters:
//   - backendType: the type of backend to use (e.g., WGPU)
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if no device could be acquired
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		backend, err := newWGPURendererBackend(r.device, r.forceFallbackAdapter)
		if err != nil {
			return nil, fmt.Errorf("renderer: %w", err)
		}
		r.backend = backend
	default:
		return nil, fmt.Errorf("renderer: unsupported backend %v", backendType)
	}
	return r, nil
}

func (r *renderer) InitBoneBuffer(provider bind_group_provider.BindGroupProvider, binding, matrices int) error {
	if matrices <= 0 {
		return fmt.Errorf("renderer: bone buffer for %q needs at least one matrix, got %d", provider.Label(), matrices)
	}
	return r.backend.InitBuffer(provider, binding, boneBufferDescriptor(provider.Label(), matrices))
}

func (r *renderer) InitInstanceBuffer(provider bind_group_provider.BindGroupProvider, binding int) error {
	return r.backend.InitBuffer(provider, binding, instanceBufferDescriptor(provider.Label()))
}

func (r *renderer) InitVertexBuffer(provider bind_group_provider.BindGroupProvider, binding int, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("renderer: vertex buffer for %q has no data", provider.Label())
	}
	return r.initFilled(provider, binding, vertexBufferDescriptor(provider.Label(), len(data)), data)
}

func (r *renderer) InitIndexBuffer(provider bind_group_provider.BindGroupProvider, binding int, data []byte) error {
	if len(data) == 0 || len(data)%4 != 0 {
		return fmt.Errorf("renderer: index buffer for %q needs whole uint32 indices, got %d bytes", provider.Label(), len(data))
	}
	return r.initFilled(provider, binding, indexBufferDescriptor(provider.Label(), len(data)), data)
}

// initFilled creates a buffer and writes data into it from offset zero.
func (r *renderer) initFilled(provider bind_group_provider.BindGroupProvider, binding int, descriptor wgpu.BufferDescriptor, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.backend.InitBuffer(provider, binding, descriptor); err != nil {
		return err
	}
	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{{Provider: provider, Binding: binding, Data: data}})
	return nil
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.WriteBuffers(writes)
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Device() *wgpu.Device {
	return r.backend.Device()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.Release()
}
