// Package skeleton derives skinning matrices for bone hierarchies.
//
// A BoneSet holds the authored rest pose of a skeleton and derives, once, the rest matrices
// of every bone. A BonePoseSet holds a live pose for every bone of a BoneSet and derives,
// once per tick, the mesh-to-model matrices a renderer uploads for skinning.
//
// For a chain of bones Root -> A -> B, a mesh vertex v ends up at
//
//	A.btp(t) * B.btp(t) * B.ptb * A.ptb * v
//
// where btp(t) is the posed bone-to-parent matrix and ptb the rest parent-to-bone matrix.
package skeleton

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Bone is one node of a skeleton. Its Transformation maps points in bone space to its
// parent's space (or mesh space for a root) at rest.
type Bone struct {
	// Transformation is the rest transform relative to the parent bone.
	Transformation common.Transformation

	// MatrixIndex is the slot of this bone's final matrix in the output matrix array.
	// It is independent of the bone's index within its BoneSet.
	MatrixIndex int

	ptb mgl32.Mat4
	mtb mgl32.Mat4
}

// NewBone creates a bone with a rest transformation and an output matrix slot.
// The rest matrices are zero until DeriveMatrices runs.
//
// Parameters:
//   - transformation: the rest transform relative to the parent
//   - matrixIndex: the output matrix slot
//
// Returns:
//   - Bone: the new bone
func NewBone(transformation common.Transformation, matrixIndex int) Bone {
	return Bone{Transformation: transformation, MatrixIndex: matrixIndex}
}

// PTB returns the rest parent-to-bone matrix.
func (b *Bone) PTB() mgl32.Mat4 {
	return b.ptb
}

// MTB returns the rest mesh-to-bone matrix.
func (b *Bone) MTB() mgl32.Mat4 {
	return b.mtb
}

// DeriveMatrices recomputes the rest matrices from the bone's transformation and its
// parent's mesh-to-bone matrix. ptb is the inverse of the rest transformation; mtb equals
// ptb for a root and ptb * parentMTB otherwise.
//
// Parameters:
//   - isRoot: true if the bone has no parent, in which case parentMTB is ignored
//   - parentMTB: the parent's already derived mesh-to-bone matrix
//
// Returns:
//   - mgl32.Mat4: the bone's new mesh-to-bone matrix
func (b *Bone) DeriveMatrices(isRoot bool, parentMTB mgl32.Mat4) mgl32.Mat4 {
	b.ptb = b.Transformation.Mat4Inverse()
	if isRoot {
		b.mtb = b.ptb
	} else {
		b.mtb = b.ptb.Mul4(parentMTB)
	}
	return b.mtb
}

func (b *Bone) String() string {
	return fmt.Sprintf("Bone %d : %s", b.MatrixIndex, b.Transformation)
}
