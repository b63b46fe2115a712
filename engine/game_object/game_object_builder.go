package game_object

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/animator"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithEnabled sets whether the GameObject is updated by its Scene. Objects start enabled.
//
// Parameters:
//   - enabled: true to update the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithAnimators attaches animators to the GameObject. Nil animators are ignored.
//
// Parameters:
//   - animators: the animators to advance with the object
//
// Returns:
//   - GameObjectBuilderOption: functional option to attach the animators
func WithAnimators(animators ...animator.Animator) GameObjectBuilderOption {
	return func(obj *gameObject) {
		for _, a := range animators {
			obj.AddAnimator(a)
		}
	}
}

// WithBindGroupProvider sets the provider the object's bone matrices are uploaded into.
//
// Parameters:
//   - p: the BindGroupProvider
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the provider
func WithBindGroupProvider(p bind_group_provider.BindGroupProvider) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.provider = p
	}
}

// WithPosition places the instance at pos.
func WithPosition(pos mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.SetPosition(pos)
	}
}

// WithRotation rotates the instance by rot.
func WithRotation(rot mgl32.Quat) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.SetRotation(rot)
	}
}

// WithScale scales the instance by scale.
func WithScale(scale mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.SetScale(scale)
	}
}
