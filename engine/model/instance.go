package model

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// instance is the implementation of the Instance interface.
type instance struct {
	mu *sync.Mutex

	instantiable Instantiable

	transformation common.Transformation
	transMat       mgl32.Mat4

	bonePoses    []*skeleton.BonePoseSet
	ranges       []BoneRange
	boneMatrices []mgl32.Mat4
}

// Instance is one use of an Instantiable: a placement in the world plus a live pose for
// every BoneSet, and the bone matrix array a renderer uploads for it.
type Instance interface {
	// Instantiable retrieves the asset this instance was created from.
	//
	// Returns:
	//   - Instantiable: the source asset
	Instantiable() Instantiable

	// Transformation retrieves the model-to-world transformation of the instance.
	//
	// Returns:
	//   - common.Transformation: the transformation
	Transformation() common.Transformation

	// SetTransformation replaces the model-to-world transformation. TransMat follows on the
	// next Update.
	//
	// Parameters:
	//   - t: the new transformation
	SetTransformation(t common.Transformation)

	// TransMat retrieves the model-to-world matrix computed by the last Update.
	//
	// Returns:
	//   - mgl32.Mat4: the matrix
	TransMat() mgl32.Mat4

	// BonePoses retrieves one pose set per BoneSet of the Instantiable, in the same order.
	// Poses may be edited between updates.
	//
	// Returns:
	//   - []*skeleton.BonePoseSet: the pose sets
	BonePoses() []*skeleton.BonePoseSet

	// BoneMatrices retrieves the bone matrix array, NumBoneMatrices long. It is rewritten
	// in place by Update.
	//
	// Returns:
	//   - []mgl32.Mat4: the skinning matrices of every BoneSet, each in its BoneRange
	BoneMatrices() []mgl32.Mat4

	// Update recomputes every pose set for tick, copies each set's matrices into its range
	// of the bone matrix array and recomputes TransMat. It panics if a BoneSet's matrix
	// count changed after it was added to the Instantiable.
	//
	// Parameters:
	//   - tick: the current frame counter
	//
	// Returns:
	//   - bool: true if any pose set was recomputed
	Update(tick uint64) bool

	// BoneMatrixBytes returns a byte view of the bone matrix array ready for upload.
	// The view shares memory with the array and is only valid until the next Update.
	//
	// Returns:
	//   - []byte: the column-major matrices, 64 bytes each
	BoneMatrixBytes() []byte

	// InstanceData returns the per-instance uniform for the current TransMat.
	//
	// Returns:
	//   - GPUInstanceData: the uniform data
	InstanceData() GPUInstanceData
}

var _ Instance = &instance{}

func newInstance(in Instantiable, poses []*skeleton.BonePoseSet, ranges []BoneRange, numBoneMatrices int) *instance {
	t := common.NewTransformation()
	return &instance{
		mu:             &sync.Mutex{},
		instantiable:   in,
		transformation: t,
		transMat:       t.Mat4(),
		bonePoses:      poses,
		ranges:         ranges,
		boneMatrices:   make([]mgl32.Mat4, numBoneMatrices),
	}
}

func (i *instance) Instantiable() Instantiable {
	return i.instantiable
}

func (i *instance) Transformation() common.Transformation {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.transformation
}

func (i *instance) SetTransformation(t common.Transformation) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.transformation = t
}

func (i *instance) TransMat() mgl32.Mat4 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.transMat
}

func (i *instance) BonePoses() []*skeleton.BonePoseSet {
	return i.bonePoses
}

func (i *instance) BoneMatrices() []mgl32.Mat4 {
	return i.boneMatrices
}

func (i *instance) Update(tick uint64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.transMat = i.transformation.Mat4()
	updated := false
	for n, ps := range i.bonePoses {
		if !ps.Update(tick) {
			continue
		}
		updated = true
		r := i.ranges[n]
		if len(ps.Data()) != r.Count {
			panic(fmt.Sprintf("model: BoneSet %q has %d matrices but was added with %d",
				ps.BoneSet().Name(), len(ps.Data()), r.Count))
		}
		copy(i.boneMatrices[r.First:r.End()], ps.Data())
	}
	return updated
}

func (i *instance) BoneMatrixBytes() []byte {
	return common.SliceToBytes(i.boneMatrices)
}

func (i *instance) InstanceData() GPUInstanceData {
	i.mu.Lock()
	defer i.mu.Unlock()
	return GPUInstanceData{Model: i.transMat}
}
