package model

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// --- Mesh Types ---

// BoneRange is a contiguous range of an Instance's bone matrix array.
type BoneRange struct {
	// First is the index of the first matrix in the range.
	First int

	// Count is the number of matrices in the range. A mesh that uses no bones has Count 0.
	Count int
}

// End returns one past the last matrix index of the range.
func (r BoneRange) End() int {
	return r.First + r.Count
}

// MeshIndexData locates the data a mesh needs at draw time.
type MeshIndexData struct {
	// MeshMatrixIndex is the index into the Instantiable's mesh matrices.
	MeshMatrixIndex int

	// Bones is the range of bone matrices the mesh is skinned with.
	Bones BoneRange
}

// --- Animation Types ---

// AnimationClip represents a single animation (walk, run, attack, etc.).
type AnimationClip struct {
	// Name is the animation identifier.
	Name string

	// Duration is the total length of the animation in seconds.
	Duration float32

	// Channels contains animation data for each animated bone.
	Channels []AnimationChannel
}

// AnimationChannel contains keyframe data for a single bone. Any of the key lists may be
// empty, in which case that component of the bone's rest transformation is kept.
type AnimationChannel struct {
	// BoneIndex is the index of the animated bone within its BoneSet.
	BoneIndex int

	// PositionKeys are keyframes for translation.
	PositionKeys []VectorKeyframe

	// RotationKeys are keyframes for rotation.
	RotationKeys []QuaternionKeyframe

	// ScaleKeys are keyframes for scale.
	ScaleKeys []VectorKeyframe
}

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the 3D vector value at this keyframe.
	Value mgl32.Vec3
}

// QuaternionKeyframe stores a rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the unit quaternion at this keyframe.
	Value mgl32.Quat
}

// Validate checks that the clip can be sampled against a skeleton of boneCount bones:
// the duration is not negative, every channel targets an existing bone and every key
// list is sorted by time.
//
// Parameters:
//   - boneCount: the number of bones in the target BoneSet
//
// Returns:
//   - error: a description of the first problem found, or nil
func (c *AnimationClip) Validate(boneCount int) error {
	if c.Duration < 0 {
		return fmt.Errorf("clip %q: negative duration %g", c.Name, c.Duration)
	}
	for i, ch := range c.Channels {
		if ch.BoneIndex < 0 || ch.BoneIndex >= boneCount {
			return fmt.Errorf("clip %q channel %d: bone index %d out of range [0, %d)", c.Name, i, ch.BoneIndex, boneCount)
		}
		if err := checkSorted(len(ch.PositionKeys), func(k int) float32 { return ch.PositionKeys[k].Time }); err != nil {
			return fmt.Errorf("clip %q channel %d position keys: %w", c.Name, i, err)
		}
		if err := checkSorted(len(ch.RotationKeys), func(k int) float32 { return ch.RotationKeys[k].Time }); err != nil {
			return fmt.Errorf("clip %q channel %d rotation keys: %w", c.Name, i, err)
		}
		if err := checkSorted(len(ch.ScaleKeys), func(k int) float32 { return ch.ScaleKeys[k].Time }); err != nil {
			return fmt.Errorf("clip %q channel %d scale keys: %w", c.Name, i, err)
		}
	}
	return nil
}

func checkSorted(n int, time func(int) float32) error {
	for k := 1; k < n; k++ {
		if time(k) < time(k-1) {
			return fmt.Errorf("key %d at %g precedes key %d at %g", k, time(k), k-1, time(k-1))
		}
	}
	return nil
}
