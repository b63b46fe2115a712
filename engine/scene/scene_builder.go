package scene

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/game_object"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is updated by the Engine.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithObjects adds initial objects to the scene once it is constructed.
// Objects without IDs will be assigned new IDs; objects whose GPU buffers cannot be
// created are logged and skipped.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		s.pending = append(s.pending, objects...)
	}
}

// WithUpdateWorkers sets the number of worker goroutines used for the parallel
// instance updates of Update. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of update workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithUpdateWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.updateWorkers = n
	}
}

// WithBindings sets the binding indices of the bone matrix storage buffer and the
// instance uniform buffer on every object's BindGroupProvider. Defaults are 0 and 1.
//
// Parameters:
//   - bone: the bone matrix binding
//   - instance: the instance uniform binding
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBindings(bone, instance int) SceneBuilderOption {
	return func(s *scene) {
		s.boneBinding = bone
		s.instanceBinding = instance
	}
}
