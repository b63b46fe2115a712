package skeleton

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/go-gl/mathgl/mgl32"
)

// BonePose is a live pose of one Bone. Many poses may refer to the same bone.
type BonePose struct {
	bone           *Bone
	transformation common.Transformation

	// posed-bone-to-parent, the forward matrix of transformation
	pbtp        mgl32.Mat4
	animatedBTM mgl32.Mat4
	animatedMTM mgl32.Mat4
}

// NewBonePose creates a pose of bone starting at its rest transformation.
//
// Parameters:
//   - bone: the posed bone, which must outlive the pose
//
// Returns:
//   - BonePose: the new pose
func NewBonePose(bone *Bone) BonePose {
	if bone == nil {
		panic("skeleton: NewBonePose requires a bone")
	}
	p := BonePose{bone: bone}
	p.SetTransformation(bone.Transformation)
	return p
}

// Bone returns the posed bone.
func (p *BonePose) Bone() *Bone {
	return p.bone
}

// Transformation returns the current pose transformation.
func (p *BonePose) Transformation() common.Transformation {
	return p.transformation
}

// SetTransformation replaces the pose transformation relative to the parent bone.
//
// Parameters:
//   - transformation: the new pose
func (p *BonePose) SetTransformation(transformation common.Transformation) {
	p.transformation = transformation
	p.pbtp = transformation.Mat4()
}

// TransformationReset restores the pose to the bone's rest transformation.
func (p *BonePose) TransformationReset() {
	p.SetTransformation(p.bone.Transformation)
}

// DeriveAnimation computes the animated bone-to-model matrix, pbtp for a root and
// parentBTM * pbtp otherwise, and folds in the bone's rest mesh-to-bone matrix to get
// the mesh-to-model skinning matrix. The bone's rest matrices must already be derived.
//
// Parameters:
//   - isRoot: true if the bone has no parent, in which case parentBTM is ignored
//   - parentBTM: the parent's animated bone-to-model matrix from this pass
//
// Returns:
//   - mgl32.Mat4: the animated bone-to-model matrix, for use by children
func (p *BonePose) DeriveAnimation(isRoot bool, parentBTM mgl32.Mat4) mgl32.Mat4 {
	if isRoot {
		p.animatedBTM = p.pbtp
	} else {
		p.animatedBTM = parentBTM.Mul4(p.pbtp)
	}
	p.animatedMTM = p.animatedBTM.Mul4(p.bone.mtb)
	return p.animatedBTM
}

// AnimatedBTM returns the animated bone-to-model matrix of the last DeriveAnimation.
func (p *BonePose) AnimatedBTM() mgl32.Mat4 {
	return p.animatedBTM
}

// AnimatedMTM returns the mesh-to-model skinning matrix of the last DeriveAnimation.
func (p *BonePose) AnimatedMTM() mgl32.Mat4 {
	return p.animatedMTM
}

func (p *BonePose) String() string {
	return fmt.Sprintf("Pose %d : %s", p.bone.MatrixIndex, p.transformation)
}
