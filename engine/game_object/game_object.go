package game_object

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-skin/engine/animator"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

type gameObject struct {
	id        uint64
	enabled   atomic.Bool
	instance  model.Instance
	animators []animator.Animator
	provider  bind_group_provider.BindGroupProvider
}

// GameObject is a scene entity wrapping one Instance, the Animators driving its pose sets
// and the BindGroupProvider its bone matrices are uploaded into.
//
// Position, rotation and scale read and write the Instance's transformation, so there is
// no per-object copy to keep in sync.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID, zero until the object is added to a Scene
	ID() uint64

	// Enabled returns whether this object is updated by its Scene.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Instance returns the Instance this object places in the scene.
	//
	// Returns:
	//   - model.Instance: the instance
	Instance() model.Instance

	// Animators returns the animators advanced with this object, usually one per pose set.
	//
	// Returns:
	//   - []animator.Animator: the animators, possibly empty
	Animators() []animator.Animator

	// BindGroupProvider returns the provider holding this object's GPU buffers.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider, or nil for a CPU-only object
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// Position returns the world position of the instance.
	Position() mgl32.Vec3

	// Rotation returns the world rotation of the instance.
	Rotation() mgl32.Quat

	// Scale returns the world scale of the instance.
	Scale() mgl32.Vec3

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the new ID
	SetID(id uint64)

	// SetEnabled sets whether this object is updated by its Scene.
	//
	// Parameters:
	//   - enabled: true to update the object
	SetEnabled(enabled bool)

	// AddAnimator attaches another animator to the object.
	//
	// Parameters:
	//   - a: the animator, which must pose one of the instance's pose sets
	AddAnimator(a animator.Animator)

	// SetBindGroupProvider replaces the provider holding this object's GPU buffers.
	//
	// Parameters:
	//   - p: the provider
	SetBindGroupProvider(p bind_group_provider.BindGroupProvider)

	// SetPosition moves the instance.
	SetPosition(pos mgl32.Vec3)

	// SetRotation rotates the instance.
	SetRotation(rot mgl32.Quat)

	// SetScale scales the instance.
	SetScale(scale mgl32.Vec3)

	// Advance advances every animator by dt seconds.
	//
	// Parameters:
	//   - dt: the elapsed time in seconds
	Advance(dt float32)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new enabled GameObject for the given Instance.
//
// Parameters:
//   - inst: the instance to place, which must not be nil
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(inst model.Instance, options ...GameObjectBuilderOption) GameObject {
	if inst == nil {
		panic("game_object: NewGameObject requires an Instance")
	}
	obj := &gameObject{instance: inst}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Instance() model.Instance {
	return g.instance
}

func (g *gameObject) Animators() []animator.Animator {
	return g.animators
}

func (g *gameObject) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return g.provider
}

func (g *gameObject) Position() mgl32.Vec3 {
	return g.instance.Transformation().Translation
}

func (g *gameObject) Rotation() mgl32.Quat {
	return g.instance.Transformation().Rotation
}

func (g *gameObject) Scale() mgl32.Vec3 {
	return g.instance.Transformation().Scale
}

func (g *gameObject) SetID(id uint64) {
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) AddAnimator(a animator.Animator) {
	if a != nil {
		g.animators = append(g.animators, a)
	}
}

func (g *gameObject) SetBindGroupProvider(p bind_group_provider.BindGroupProvider) {
	g.provider = p
}

func (g *gameObject) SetPosition(pos mgl32.Vec3) {
	g.instance.SetTransformation(g.instance.Transformation().WithTranslation(pos))
}

func (g *gameObject) SetRotation(rot mgl32.Quat) {
	g.instance.SetTransformation(g.instance.Transformation().WithRotation(rot))
}

func (g *gameObject) SetScale(scale mgl32.Vec3) {
	g.instance.SetTransformation(g.instance.Transformation().WithScale(scale))
}

func (g *gameObject) Advance(dt float32) {
	for _, a := range g.animators {
		a.Advance(dt)
	}
}
