package bind_group_provider

import (
	"sort"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu *sync.Mutex

	// label is a debug label, also used for the GPU buffers created for this provider.
	label string

	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	// They are populated by the Renderer and must be released when no longer needed.
	buffers map[int]*wgpu.Buffer
	// sizes holds the byte size of each buffer, keyed by binding index.
	sizes map[int]uint64
}

// BindGroupProvider owns the GPU buffers a skinned instance uploads into, keyed by binding index.
//
// Usage pattern:
//  1. The owner creates a BindGroupProvider with a label
//  2. Renderer.InitBoneBuffer(provider, binding, matrices) creates the storage buffer
//  3. Each frame a BufferWrite targeting the provider and binding is staged
//  4. Renderer.WriteBuffers uploads the staged writes
type BindGroupProvider interface {
	// Release releases every GPU buffer held by this provider and forgets them.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Buffer returns the GPU buffer at the given binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, or nil if none was created for the binding
	Buffer(binding int) *wgpu.Buffer

	// Size returns the byte size recorded for the buffer at the given binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the size in bytes, zero if no buffer was set
	Size(binding int) uint64

	// Bindings returns the binding indices that hold a buffer, in ascending order.
	//
	// Returns:
	//   - []int: the sorted binding indices
	Bindings() []int

	// SetBuffer stores a buffer and its byte size at the given binding index. A buffer
	// already at that binding is released first.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the GPU buffer
	//   - size: the buffer size in bytes
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64)

	// Fits reports whether a write of n bytes at offset stays inside the buffer at binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - offset: the byte offset of the write
	//   - n: the number of bytes written
	//
	// Returns:
	//   - bool: true if a buffer exists at binding and the write fits
	Fits(binding int, offset, n uint64) bool
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		mu:      &sync.Mutex{},
		label:   label,
		buffers: make(map[int]*wgpu.Buffer),
		sizes:   make(map[int]uint64),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[binding]
}

func (p *bindGroupProvider) Size(binding int) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sizes[binding]
}

func (p *bindGroupProvider) Bindings() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	bindings := make([]int, 0, len(p.sizes))
	for b := range p.sizes {
		bindings = append(bindings, b)
	}
	sort.Ints(bindings)
	return bindings
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer, size uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if old := p.buffers[binding]; old != nil && old != buf {
		old.Release()
	}
	p.buffers[binding] = buf
	p.sizes[binding] = size
}

func (p *bindGroupProvider) Fits(binding int, offset, n uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	size, ok := p.sizes[binding]
	return ok && offset+n <= size
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
		delete(p.sizes, i)
	}
}
