package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithDevice makes the renderer upload through an existing device, typically the one the
// host application renders with. The renderer does not release a device it was given.
//
// Parameters:
//   - device: the device to create buffers on
//
// Returns:
//   - RendererBuilderOption: a function that applies the device option to a renderer
func WithDevice(device *wgpu.Device) RendererBuilderOption {
	return func(r *renderer) {
		r.device = device
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter when the
// renderer creates its own device. This requires a software Vulkan ICD to be installed on
// the system (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
