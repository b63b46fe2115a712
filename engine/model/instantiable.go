package model

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// boneSetSlot is a BoneSet together with its range of the instance bone matrix array.
type boneSetSlot struct {
	set   *skeleton.BoneSet
	bones BoneRange
}

// instantiable is the implementation of the Instantiable interface.
type instantiable struct {
	mu *sync.Mutex

	name       string
	animations []*AnimationClip

	boneSets        []boneSetSlot
	meshMatrices    []mgl32.Mat4
	meshData        []MeshIndexData
	numBoneMatrices int
}

// Instantiable is a reusable skinned asset: a set of meshes with their transform matrices
// and the BoneSets that skin them. It refers to mesh vertex data by index only; the
// vertex data itself lives with the renderer.
// An Instantiable is built once and then instantiated any number of times; its BoneSets
// must not change structurally after the first Instantiate.
type Instantiable interface {
	// Name retrieves the asset identifier.
	//
	// Returns:
	//   - string: the asset name
	Name() string

	// AddMesh adds a mesh. Its matrix is parent's matrix times transform when both are given,
	// parent's matrix when only parent is given, transform when only transform is given, and
	// the identity otherwise.
	//
	// Parameters:
	//   - parent: the index of a previously added mesh, or nil
	//   - transform: the mesh transform relative to the parent, or nil
	//   - bones: the bone matrices the mesh is skinned with, as returned by AddBoneSet
	//
	// Returns:
	//   - int: the mesh index
	AddMesh(parent *int, transform *mgl32.Mat4, bones BoneRange) int

	// AddBoneSet resolves bs, derives its rest matrices and allocates a range of the
	// instance bone matrix array for it.
	//
	// Parameters:
	//   - bs: the BoneSet to add
	//
	// Returns:
	//   - BoneRange: the bone matrix range of the set
	AddBoneSet(bs *skeleton.BoneSet) BoneRange

	// MeshData retrieves the matrix index and bone range of a mesh.
	//
	// Parameters:
	//   - index: the mesh index returned by AddMesh
	//
	// Returns:
	//   - MeshIndexData: the mesh data
	MeshData(index int) MeshIndexData

	// MeshCount returns the number of meshes added.
	//
	// Returns:
	//   - int: the mesh count
	MeshCount() int

	// MeshMatrices retrieves the mesh transform matrices.
	//
	// Returns:
	//   - []mgl32.Mat4: the matrices, indexed by MeshIndexData.MeshMatrixIndex
	MeshMatrices() []mgl32.Mat4

	// BoneSets retrieves the added BoneSets in order.
	//
	// Returns:
	//   - []*skeleton.BoneSet: the bone sets
	BoneSets() []*skeleton.BoneSet

	// BoneRange retrieves the bone matrix range allocated to the i-th BoneSet.
	//
	// Parameters:
	//   - index: the BoneSet position in BoneSets
	//
	// Returns:
	//   - BoneRange: the range
	BoneRange(index int) BoneRange

	// NumBoneMatrices returns the length of every instance's bone matrix array.
	//
	// Returns:
	//   - int: the total number of bone matrices
	NumBoneMatrices() int

	// Animations retrieves the animation clips bundled with the asset.
	//
	// Returns:
	//   - []*AnimationClip: the animation clips
	Animations() []*AnimationClip

	// AnimationIndex returns the index of an animation by name.
	//
	// Parameters:
	//   - name: the animation clip name to search for
	//
	// Returns:
	//   - int: the animation index, or -1 if not found
	AnimationIndex(name string) int

	// Instantiate creates an Instance with the identity transformation and every bone at rest.
	//
	// Returns:
	//   - Instance: the new instance
	Instantiate() Instance
}

var _ Instantiable = &instantiable{}

// NewInstantiable creates an empty Instantiable with the specified options applied.
//
// Parameters:
//   - options: a variadic list of InstantiableBuilderOption functions to configure the Instantiable
//
// Returns:
//   - Instantiable: the new Instantiable
func NewInstantiable(options ...InstantiableBuilderOption) Instantiable {
	in := &instantiable{mu: &sync.Mutex{}}
	for _, opt := range options {
		opt(in)
	}
	return in
}

func (in *instantiable) Name() string {
	return in.name
}

func (in *instantiable) AddMesh(parent *int, transform *mgl32.Mat4, bones BoneRange) int {
	in.mu.Lock()
	defer in.mu.Unlock()

	var matrixIndex int
	switch {
	case parent != nil:
		if *parent < 0 || *parent >= len(in.meshData) {
			panic(fmt.Sprintf("model: parent mesh %d out of range [0, %d)", *parent, len(in.meshData)))
		}
		matrixIndex = in.meshData[*parent].MeshMatrixIndex
		if transform != nil {
			m := in.meshMatrices[matrixIndex].Mul4(*transform)
			matrixIndex = len(in.meshMatrices)
			in.meshMatrices = append(in.meshMatrices, m)
		}
	case transform != nil:
		matrixIndex = len(in.meshMatrices)
		in.meshMatrices = append(in.meshMatrices, *transform)
	default:
		matrixIndex = len(in.meshMatrices)
		in.meshMatrices = append(in.meshMatrices, mgl32.Ident4())
	}

	in.meshData = append(in.meshData, MeshIndexData{MeshMatrixIndex: matrixIndex, Bones: bones})
	return len(in.meshData) - 1
}

func (in *instantiable) AddBoneSet(bs *skeleton.BoneSet) BoneRange {
	if bs == nil {
		panic("model: AddBoneSet requires a BoneSet")
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	bs.Resolve()
	bs.DeriveMatrices()
	r := BoneRange{First: in.numBoneMatrices, Count: bs.MaxIndex()}
	in.boneSets = append(in.boneSets, boneSetSlot{set: bs, bones: r})
	in.numBoneMatrices = r.End()
	return r
}

func (in *instantiable) MeshData(index int) MeshIndexData {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.meshData[index]
}

func (in *instantiable) MeshCount() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.meshData)
}

func (in *instantiable) MeshMatrices() []mgl32.Mat4 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.meshMatrices
}

func (in *instantiable) BoneSets() []*skeleton.BoneSet {
	in.mu.Lock()
	defer in.mu.Unlock()
	sets := make([]*skeleton.BoneSet, len(in.boneSets))
	for i, s := range in.boneSets {
		sets[i] = s.set
	}
	return sets
}

func (in *instantiable) BoneRange(index int) BoneRange {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.boneSets[index].bones
}

func (in *instantiable) NumBoneMatrices() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.numBoneMatrices
}

func (in *instantiable) Animations() []*AnimationClip {
	return in.animations
}

func (in *instantiable) AnimationIndex(name string) int {
	for i, anim := range in.animations {
		if anim.Name == name {
			return i
		}
	}
	return -1
}

func (in *instantiable) Instantiate() Instance {
	in.mu.Lock()
	defer in.mu.Unlock()

	poses := make([]*skeleton.BonePoseSet, len(in.boneSets))
	ranges := make([]BoneRange, len(in.boneSets))
	for i, s := range in.boneSets {
		poses[i] = skeleton.NewBonePoseSet(s.set)
		ranges[i] = s.bones
	}
	return newInstance(in, poses, ranges, in.numBoneMatrices)
}
