package skeleton

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/hierarchy"
	"github.com/go-gl/mathgl/mgl32"
)

// BoneSet is a skeleton, or several: a hierarchy of bones with one or more roots.
//
// Bones are added and related first. Resolve then caches the roots, one traversal Recipe
// per root and the scratch space the traversals need; after that the structure must not
// change while any BonePoseSet refers to the set.
type BoneSet struct {
	name  string
	bones *hierarchy.Hierarchy[Bone]

	resolved bool
	roots    []int
	recipes  []*hierarchy.Recipe
	scratch  []mgl32.Mat4
	maxIndex int

	policy           IndexPolicy
	rewriteOnResolve bool
}

// NewBoneSet creates an empty BoneSet.
//
// Parameters:
//   - options: variadic list of BoneSetBuilderOption functions to configure the set
//
// Returns:
//   - *BoneSet: the new, unresolved set
func NewBoneSet(options ...BoneSetBuilderOption) *BoneSet {
	bs := &BoneSet{
		bones:  hierarchy.New[Bone](),
		policy: IndexPolicyAuto,
	}
	for _, opt := range options {
		opt(bs)
	}
	return bs
}

// Name returns the name given with WithName.
func (bs *BoneSet) Name() string {
	return bs.name
}

// AddBone adds a parentless bone and invalidates any previous Resolve.
//
// Parameters:
//   - transformation: the rest transform relative to the parent the bone will have
//   - matrixIndex: the output matrix slot, which must not be negative
//
// Returns:
//   - int: the bone's index within the set
func (bs *BoneSet) AddBone(transformation common.Transformation, matrixIndex int) int {
	if matrixIndex < 0 {
		panic(fmt.Sprintf("skeleton: negative matrix index %d", matrixIndex))
	}
	bs.invalidate()
	return bs.bones.AddNode(NewBone(transformation, matrixIndex))
}

// Relate makes parent the parent bone of child and invalidates any previous Resolve.
// Invalid relations panic, see hierarchy.Hierarchy.Relate.
func (bs *BoneSet) Relate(parent, child int) {
	bs.bones.Relate(parent, child)
	bs.invalidate()
}

// Bone returns the bone at index for in-place edits of its transformation. Matrix indices
// are changed with SetMatrixIndex. The pointer is valid until the next AddBone.
func (bs *BoneSet) Bone(index int) *Bone {
	return bs.bones.Data(index)
}

// SetMatrixIndex moves the bone at index to another output matrix slot and invalidates
// any previous Resolve, so MaxIndex and the Data of its pose sets are resized on the next
// Resolve.
//
// Parameters:
//   - index: the bone's index within the set
//   - matrixIndex: the output matrix slot, which must not be negative
func (bs *BoneSet) SetMatrixIndex(index, matrixIndex int) {
	if matrixIndex < 0 {
		panic(fmt.Sprintf("skeleton: negative matrix index %d", matrixIndex))
	}
	bs.bones.Data(index).MatrixIndex = matrixIndex
	bs.invalidate()
}

// Len returns the number of bones.
func (bs *BoneSet) Len() int {
	return bs.bones.Len()
}

// Hierarchy exposes the underlying bone hierarchy for traversal.
func (bs *BoneSet) Hierarchy() *hierarchy.Hierarchy[Bone] {
	return bs.bones
}

// Resolve finds the roots, records one traversal Recipe per root, sizes the scratch
// space to the deepest recipe and computes MaxIndex. It does nothing if the set is
// already resolved, so it may be called before any operation that needs it.
func (bs *BoneSet) Resolve() {
	if bs.resolved {
		return
	}
	bs.bones.FindRoots()
	bs.roots = append(bs.roots[:0], bs.bones.Roots()...)
	bs.recipes = bs.recipes[:0]
	maxDepth := 0
	for _, r := range bs.roots {
		recipe := hierarchy.RecipeFrom(bs.bones, r)
		bs.recipes = append(bs.recipes, recipe)
		maxDepth = max(maxDepth, recipe.Depth())
	}
	bs.scratch = make([]mgl32.Mat4, maxDepth)
	bs.maxIndex = bs.findMaxIndex()
	bs.resolved = true

	if bs.rewriteOnResolve {
		bs.rewriteIndices()
	}
}

// RewriteIndices resolves the set and then, as the set's IndexPolicy dictates, assigns
// every bone the matrix index 0, 1, 2, ... in the order bones are first reached by the
// traversals of the roots.
//
// Returns:
//   - bool: true if the indices were rewritten
func (bs *BoneSet) RewriteIndices() bool {
	bs.Resolve()
	return bs.rewriteIndices()
}

func (bs *BoneSet) rewriteIndices() bool {
	switch bs.policy {
	case IndexPolicyAuthored:
		return false
	case IndexPolicyAuto:
		if bs.maxIndex >= bs.bones.Len() {
			return false
		}
	}

	next := 0
	for _, recipe := range bs.recipes {
		for _, op := range recipe.Ops() {
			if op.IsPop() {
				continue
			}
			bs.bones.Data(op.Index).MatrixIndex = next
			next++
		}
	}
	bs.maxIndex = next
	return true
}

// DeriveMatrices computes the rest matrices of every bone, parents before children, in a
// single pass over the recipes. It panics if the set has not been resolved.
func (bs *BoneSet) DeriveMatrices() {
	if !bs.resolved {
		panic("skeleton: Resolve must be called before DeriveMatrices")
	}
	replay(bs.recipes, bs.scratch, func(node int, isRoot bool, parent mgl32.Mat4) mgl32.Mat4 {
		return bs.bones.Data(node).DeriveMatrices(isRoot, parent)
	})
}

// Resolved reports whether the cached roots and recipes are current.
func (bs *BoneSet) Resolved() bool {
	return bs.resolved
}

// Roots returns the root bone indices found by the last Resolve.
func (bs *BoneSet) Roots() []int {
	return bs.roots
}

// Recipes returns one traversal recipe per root, parallel to Roots.
func (bs *BoneSet) Recipes() []*hierarchy.Recipe {
	return bs.recipes
}

// MaxIndex returns one past the highest matrix index, the length of the output matrix array.
// It is zero for an empty or unresolved set.
func (bs *BoneSet) MaxIndex() int {
	return bs.maxIndex
}

// Depth returns the depth of the deepest recipe, zero for an unresolved set.
func (bs *BoneSet) Depth() int {
	return len(bs.scratch)
}

func (bs *BoneSet) String() string {
	var sb strings.Builder
	if bs.name != "" {
		fmt.Fprintf(&sb, "BoneSet %s\n", bs.name)
	}
	sb.WriteString(bs.bones.String())
	return sb.String()
}

func (bs *BoneSet) invalidate() {
	bs.resolved = false
	bs.roots = bs.roots[:0]
	bs.recipes = bs.recipes[:0]
	bs.scratch = nil
	bs.maxIndex = 0
}

func (bs *BoneSet) findMaxIndex() int {
	maxIndex := 0
	for i := 0; i < bs.bones.Len(); i++ {
		if idx := bs.bones.Data(i).MatrixIndex; idx >= maxIndex {
			maxIndex = idx + 1
		}
	}
	return maxIndex
}
