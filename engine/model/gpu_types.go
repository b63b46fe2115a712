package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUSkinnedVertex is a mesh vertex influenced by up to four bones. Positions are in mesh
// space; the matrices the bones are skinned with map mesh space directly to model space.
//
// Memory layout (56 bytes):
type GPUSkinnedVertex struct {
	Position    [3]float32 // offset  0: vertex position in mesh space (12 bytes)
	Normal      [3]float32 // offset 12: vertex normal (12 bytes)
	BoneIndices [4]uint32  // offset 24: bone matrix indices within the mesh's BoneRange (16 bytes)
	BoneWeights [4]float32 // offset 40: blend weights for each bone, summing to 1.0 (16 bytes)
}

// Size returns the size of the GPUSkinnedVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes
func (g *GPUSkinnedVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSkinnedVertex into a byte slice matching the vertex buffer layout.
//
// Returns:
//   - []byte: the little-endian encoded vertex
func (g *GPUSkinnedVertex) Marshal() []byte {
	buf := make([]byte, 56)
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Position[i]))
		binary.LittleEndian.PutUint32(buf[12+i*4:], math.Float32bits(g.Normal[i]))
	}
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[24+i*4:], g.BoneIndices[i])
		binary.LittleEndian.PutUint32(buf[40+i*4:], math.Float32bits(g.BoneWeights[i]))
	}
	return buf
}

// SkinPosition applies linear blend skinning to the vertex position on the CPU, the same
// computation a skinning shader performs with the uploaded bone matrices.
//
// Parameters:
//   - bones: the bone matrices of the mesh's BoneRange
//
// Returns:
//   - mgl32.Vec3: the animated model-space position
func (g *GPUSkinnedVertex) SkinPosition(bones []mgl32.Mat4) mgl32.Vec3 {
	p := mgl32.Vec4{g.Position[0], g.Position[1], g.Position[2], 1}
	var out mgl32.Vec4
	for i := 0; i < 4; i++ {
		w := g.BoneWeights[i]
		if w == 0 {
			continue
		}
		out = out.Add(bones[g.BoneIndices[i]].Mul4x1(p).Mul(w))
	}
	return out.Vec3()
}

// GPUInstanceData is the per-instance uniform holding the model-to-world matrix.
//
// Memory layout (64 bytes):
type GPUInstanceData struct {
	Model mgl32.Mat4 // offset 0: 4x4 model-to-world transform matrix, column-major (64 bytes)
}

// Size returns the size of the GPUInstanceData struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes
func (g *GPUInstanceData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstanceData into a byte slice matching the uniform layout.
//
// Returns:
//   - []byte: the little-endian encoded matrix
func (g *GPUInstanceData) Marshal() []byte {
	buf := make([]byte, 64)
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(g.Model[i]))
	}
	return buf
}
