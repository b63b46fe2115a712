package skeleton

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// BonePoseSet poses every bone of a BoneSet and holds the resulting skinning matrices,
// indexed by each bone's MatrixIndex, ready for upload.
//
// Poses are indexed like the bones of the set, not by matrix index. The set must not be
// structurally changed while the BonePoseSet exists.
type BonePoseSet struct {
	bones *BoneSet
	poses []BonePose

	data    []mgl32.Mat4
	scratch []mgl32.Mat4

	lastUpdated uint64
}

// NewBonePoseSet creates a pose for every bone of bs, each at its rest transformation.
// bs is resolved if it is not already; its rest matrices must be derived before the first
// Update for the skinning matrices to be meaningful.
//
// Parameters:
//   - bs: the posed BoneSet
//
// Returns:
//   - *BonePoseSet: the new pose set, last updated at tick 0
func NewBonePoseSet(bs *BoneSet) *BonePoseSet {
	if bs == nil {
		panic("skeleton: NewBonePoseSet requires a BoneSet")
	}
	bs.Resolve()
	ps := &BonePoseSet{
		bones:   bs,
		poses:   make([]BonePose, bs.Len()),
		data:    make([]mgl32.Mat4, bs.MaxIndex()),
		scratch: make([]mgl32.Mat4, bs.Depth()),
	}
	for i := range ps.poses {
		ps.poses[i] = NewBonePose(bs.Bone(i))
	}
	return ps
}

// BoneSet returns the posed BoneSet.
func (ps *BonePoseSet) BoneSet() *BoneSet {
	return ps.bones
}

// Pose returns the pose of the bone at index within the BoneSet.
func (ps *BonePoseSet) Pose(index int) *BonePose {
	return &ps.poses[index]
}

// Len returns the number of poses.
func (ps *BonePoseSet) Len() int {
	return len(ps.poses)
}

// DeriveAnimation derives the animated matrices of every pose, parents before children,
// by replaying the BoneSet's recipes. It does not touch Data.
func (ps *BonePoseSet) DeriveAnimation() {
	if ps.bones.Len() != len(ps.poses) || !ps.bones.Resolved() {
		panic("skeleton: BoneSet changed after its BonePoseSet was created")
	}
	replay(ps.bones.Recipes(), ps.scratch, func(node int, isRoot bool, parent mgl32.Mat4) mgl32.Mat4 {
		return ps.poses[node].DeriveAnimation(isRoot, parent)
	})
}

// Update recomputes the skinning matrices once per tick. If tick equals the last updated
// tick nothing is done; otherwise the animation is derived and every pose's skinning
// matrix is written to Data at its bone's MatrixIndex.
//
// Parameters:
//   - tick: the current frame counter
//
// Returns:
//   - bool: true if the matrices were recomputed
func (ps *BonePoseSet) Update(tick uint64) bool {
	if tick == ps.lastUpdated {
		return false
	}
	ps.lastUpdated = tick
	ps.DeriveAnimation()
	if n := ps.bones.MaxIndex(); n != len(ps.data) {
		// indices were rewritten since construction
		ps.data = make([]mgl32.Mat4, n)
	}
	for i := range ps.poses {
		ps.data[ps.poses[i].bone.MatrixIndex] = ps.poses[i].animatedMTM
	}
	return true
}

// Data returns the skinning matrices indexed by matrix index. The slice is reused by
// every Update.
func (ps *BonePoseSet) Data() []mgl32.Mat4 {
	return ps.data
}

// LastUpdated returns the tick of the last recomputation.
func (ps *BonePoseSet) LastUpdated() uint64 {
	return ps.lastUpdated
}

// ResetAll restores every pose to its bone's rest transformation. The matrices are not
// recomputed until the next Update with a new tick.
func (ps *BonePoseSet) ResetAll() {
	for i := range ps.poses {
		ps.poses[i].TransformationReset()
	}
}

func (ps *BonePoseSet) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "BonePoseSet %d poses, %d matrices, tick %d\n", len(ps.poses), len(ps.data), ps.lastUpdated)
	for _, recipe := range ps.bones.Recipes() {
		depth := 0
		for _, op := range recipe.Ops() {
			if op.IsPop() {
				depth--
				continue
			}
			depth++
			sb.WriteString(strings.Repeat(" ", depth))
			sb.WriteString(ps.poses[op.Index].String())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
