package loader

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// ImportedMesh is one glTF primitive converted to skinned vertices.
type ImportedMesh struct {
	// Name is the glTF mesh name, suffixed with the primitive index after the first.
	Name string

	// Vertices hold mesh-space positions and normals. For skinned meshes BoneIndices are
	// matrix indices within Bones and BoneWeights sum to one; otherwise both are zero.
	Vertices []model.GPUSkinnedVertex

	// Indices is the triangle list.
	Indices []uint32

	// Skin is the index of the skin the mesh is bound to, or -1.
	Skin int

	// Bones is the range of the instance bone matrix array the mesh is skinned with.
	// It is set by the importer and has Count 0 for unskinned meshes.
	Bones model.BoneRange

	// BoundsMin and BoundsMax are the corners of the rest pose bounding box.
	BoundsMin mgl32.Vec3
	BoundsMax mgl32.Vec3
}

// VertexBytes returns the vertices in vertex buffer layout.
//
// Returns:
//   - []byte: the little-endian encoded vertices
func (m *ImportedMesh) VertexBytes() []byte {
	var size model.GPUSkinnedVertex
	out := make([]byte, 0, len(m.Vertices)*size.Size())
	for i := range m.Vertices {
		out = append(out, m.Vertices[i].Marshal()...)
	}
	return out
}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor converts glTF mesh primitives into skinned vertex data.
type gltfMeshExtractor interface {
	// ExtractMesh extracts every primitive of a mesh. When skin is not -1 the primitives
	// must carry JOINTS_0 and WEIGHTS_0 and every joint must exist in the skin.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//   - skin: the skin the mesh is bound to, or -1
	//
	// Returns:
	//   - []ImportedMesh: one ImportedMesh per primitive
	//   - error: error if extraction fails
	ExtractMesh(meshIndex, skin int) ([]ImportedMesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a mesh extractor over a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex, skin int) ([]ImportedMesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}
	joints := 0
	if skin >= 0 {
		if skin >= len(doc.Skins) {
			return nil, fmt.Errorf("mesh %d: skin %d out of range", meshIndex, skin)
		}
		joints = len(doc.Skins[skin].Joints)
	}

	mesh := &doc.Meshes[meshIndex]
	result := make([]ImportedMesh, 0, len(mesh.Primitives))
	for p := range mesh.Primitives {
		imported, err := e.extractPrimitive(&mesh.Primitives[p], joints)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, p, err)
		}
		imported.Skin = skin
		imported.Name = mesh.Name
		if imported.Name == "" {
			imported.Name = fmt.Sprintf("mesh_%d", meshIndex)
		}
		if p > 0 {
			imported.Name = fmt.Sprintf("%s_prim%d", imported.Name, p)
		}
		result = append(result, imported)
	}
	return result, nil
}

// extractPrimitive reads one triangle primitive. joints is the joint count of the bound
// skin, zero for an unskinned mesh.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive, joints int) (ImportedMesh, error) {
	var out ImportedMesh
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return out, fmt.Errorf("unsupported primitive mode %d, only triangles are supported", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return out, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := e.parser.ReadVec3s(posAccessor)
	if err != nil {
		return out, fmt.Errorf("failed to read positions: %w", err)
	}
	out.Vertices = make([]model.GPUSkinnedVertex, len(positions))
	for i, pos := range positions {
		out.Vertices[i].Position = pos
	}
	out.BoundsMin, out.BoundsMax = gltfBounds(positions)

	hasNormals := false
	if a, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := e.parser.ReadVec3s(a)
		if err != nil {
			return out, fmt.Errorf("failed to read normals: %w", err)
		}
		if len(normals) != len(positions) {
			return out, fmt.Errorf("%d normals for %d positions", len(normals), len(positions))
		}
		for i, n := range normals {
			out.Vertices[i].Normal = n
		}
		hasNormals = true
	}

	if prim.Indices != nil {
		if out.Indices, err = e.parser.ReadIndices(*prim.Indices); err != nil {
			return out, fmt.Errorf("failed to read indices: %w", err)
		}
		for _, idx := range out.Indices {
			if int(idx) >= len(positions) {
				return out, fmt.Errorf("index %d out of range for %d vertices", idx, len(positions))
			}
		}
	} else {
		out.Indices = make([]uint32, len(positions))
		for i := range out.Indices {
			out.Indices[i] = uint32(i)
		}
	}
	if len(out.Indices)%3 != 0 {
		return out, fmt.Errorf("%d indices do not form whole triangles", len(out.Indices))
	}
	if !hasNormals {
		generateNormals(out.Vertices, out.Indices)
	}

	if joints > 0 {
		if err := e.readSkinning(prim, joints, out.Vertices); err != nil {
			return out, err
		}
	}
	return out, nil
}

// readSkinning fills bone indices and normalized weights from JOINTS_0 and WEIGHTS_0.
func (e *gltfMeshExtractorImpl) readSkinning(prim *gltfPrimitive, joints int, vertices []model.GPUSkinnedVertex) error {
	jAccessor, okJ := prim.Attributes["JOINTS_0"]
	wAccessor, okW := prim.Attributes["WEIGHTS_0"]
	if !okJ || !okW {
		return fmt.Errorf("skinned primitive needs JOINTS_0 and WEIGHTS_0")
	}
	indices, err := e.parser.ReadJoints(jAccessor)
	if err != nil {
		return fmt.Errorf("failed to read joints: %w", err)
	}
	weights, err := e.parser.ReadVec4s(wAccessor)
	if err != nil {
		return fmt.Errorf("failed to read weights: %w", err)
	}
	if len(indices) != len(vertices) || len(weights) != len(vertices) {
		return fmt.Errorf("%d joints and %d weights for %d vertices", len(indices), len(weights), len(vertices))
	}

	for i := range vertices {
		w := weights[i]
		sum := w[0] + w[1] + w[2] + w[3]
		if sum <= 0 {
			return fmt.Errorf("vertex %d has no bone weight", i)
		}
		for k := 0; k < 4; k++ {
			if w[k] > 0 && int(indices[i][k]) >= joints {
				return fmt.Errorf("vertex %d: joint %d out of range for %d joints", i, indices[i][k], joints)
			}
			vertices[i].BoneIndices[k] = indices[i][k]
			vertices[i].BoneWeights[k] = w[k] / sum
		}
	}
	return nil
}

// --- Helper Functions ---

// gltfBounds computes the axis-aligned bounding box of positions.
func gltfBounds(positions []mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	if len(positions) == 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	lo := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, p := range positions {
		for c := 0; c < 3; c++ {
			lo[c] = min(lo[c], p[c])
			hi[c] = max(hi[c], p[c])
		}
	}
	return lo, hi
}

// generateNormals computes smooth vertex normals for meshes without a NORMAL attribute.
// Face normals, weighted by triangle area, are summed onto every vertex of the face and
// then normalized.
//
// Parameters:
//   - vertices: the vertex slice to write normal data into
//   - indices: the triangle index buffer
func generateNormals(vertices []model.GPUSkinnedVertex, indices []uint32) {
	acc := make([]mgl32.Vec3, len(vertices))
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		p0 := mgl32.Vec3(vertices[i0].Position)
		e1 := mgl32.Vec3(vertices[i1].Position).Sub(p0)
		e2 := mgl32.Vec3(vertices[i2].Position).Sub(p0)
		n := e1.Cross(e2)
		acc[i0] = acc[i0].Add(n)
		acc[i1] = acc[i1].Add(n)
		acc[i2] = acc[i2].Add(n)
	}
	for i, n := range acc {
		if n.Len() > 0 {
			vertices[i].Normal = n.Normalize()
		} else {
			vertices[i].Normal = [3]float32{0, 1, 0}
		}
	}
}
