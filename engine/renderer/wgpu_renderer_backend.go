package renderer

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter

	// ownsDevice is false when the device came from WithDevice
	ownsDevice bool
}

type wgpuRendererBackend interface {
	// InitBuffer creates a buffer from descriptor and stores it on the provider at binding.
	// If the provider already holds a buffer of the same size there, nothing is created.
	//
	// Parameters:
	//   - provider: the BindGroupProvider that will own the buffer
	//   - binding: the binding index
	//   - descriptor: the buffer descriptor
	//
	// Returns:
	//   - error: an error if the buffer could not be created
	InitBuffer(provider bind_group_provider.BindGroupProvider, binding int, descriptor wgpu.BufferDescriptor) error

	// WriteBuffers submits every valid write to the queue.
	//
	// Parameters:
	//   - writes: the staged writes
	//
	// Returns:
	//   - int: the number of writes submitted
	WriteBuffers(writes []bind_group_provider.BufferWrite) int

	// Device returns the device buffers are created on.
	Device() *wgpu.Device

	// Queue returns the queue writes are submitted to.
	Queue() *wgpu.Queue

	// Release releases the queue and, if the backend created them, the device, adapter and instance.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(device *wgpu.Device, forceFallbackAdapter bool) (wgpuRendererBackend, error) {
	w := &wgpuRendererBackendImpl{
		mu: &sync.Mutex{},
	}
	if device != nil {
		w.device = device
		w.queue = device.GetQueue()
		return w, nil
	}

	w.instance = wgpu.CreateInstance(nil)
	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		w.instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Skinning Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		a.Release()
		w.instance.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()
	w.ownsDevice = true

	return w, nil
}

func (b *wgpuRendererBackendImpl) InitBuffer(provider bind_group_provider.BindGroupProvider, binding int, descriptor wgpu.BufferDescriptor) error {
	if provider == nil {
		return errors.New("renderer: nil BindGroupProvider")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if provider.Buffer(binding) != nil && provider.Size(binding) == descriptor.Size {
		return nil
	}
	buf, err := b.device.CreateBuffer(&descriptor)
	if err != nil {
		return fmt.Errorf("renderer: create %s: %w", descriptor.Label, err)
	}
	provider.SetBuffer(binding, buf, descriptor.Size)
	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	written := 0
	for _, w := range writes {
		if !w.Valid() {
			log.Printf("[Renderer] skipping write of %d bytes at offset %d to binding %d", len(w.Data), w.Offset, w.Binding)
			continue
		}
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		if err := b.queue.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			log.Printf("[Renderer] write to %s binding %d failed: %v", w.Provider.Label(), w.Binding, err)
			continue
		}
		written++
	}
	return written
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if !b.ownsDevice {
		return
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
