package loader

import (
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// ibmTolerance is the largest per-element difference tolerated between a skin's inverse
// bind matrices and the rest matrices derived from its joint nodes.
const ibmTolerance = 1e-3

// gltfSkeleton is one glTF skin converted to a BoneSet. Bone i of Set is joint i of the
// skin and writes matrix slot i, so a vertex's JOINTS_0 values are matrix indices.
type gltfSkeleton struct {
	Set *skeleton.BoneSet

	// JointNodes holds the node index of every joint, parallel to the bones.
	JointNodes []int

	// JointNames holds the node name of every joint, or bone_<i> for unnamed nodes.
	JointNames []string

	// Folded holds, per bone index, the transform of the non-joint nodes between the bone
	// and its parent joint, or above a root joint. Such bones have it folded into their
	// rest transformation, and animation keys for them must be folded the same way.
	Folded map[int]common.Transformation

	// BindMismatches counts joints whose inverse bind matrix differs from the derived
	// rest mesh-to-bone matrix.
	BindMismatches int
}

// BoneIndex returns the bone index of the joint at node, or -1.
func (s *gltfSkeleton) BoneIndex(node int) int {
	for i, n := range s.JointNodes {
		if n == node {
			return i
		}
	}
	return -1
}

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	parser  gltfParser
	parents []int
}

// gltfSkeletonExtractor converts glTF skins into BoneSets.
type gltfSkeletonExtractor interface {
	// ExtractSkin builds the BoneSet of one skin. Joints are related along the node tree;
	// nodes between two joints, and above a root joint, are folded into the lower joint's
	// rest transformation. Folding is exact for nodes with uniform scale.
	//
	// Parameters:
	//   - skinIndex: index into the document's skins
	//
	// Returns:
	//   - *gltfSkeleton: the resolved BoneSet with derived rest matrices
	//   - error: error if the skin or its nodes are malformed
	ExtractSkin(skinIndex int) (*gltfSkeleton, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a skeleton extractor over a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(parser gltfParser) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{parser: parser}
}

func (e *gltfSkeletonExtractorImpl) ExtractSkin(skinIndex int) (*gltfSkeleton, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, fmt.Errorf("skin index %d out of range", skinIndex)
	}
	if e.parents == nil {
		parents, err := gltfNodeParents(doc)
		if err != nil {
			return nil, err
		}
		e.parents = parents
	}

	skin := &doc.Skins[skinIndex]
	name := skin.Name
	if name == "" {
		name = fmt.Sprintf("skin_%d", skinIndex)
	}

	boneOf := make(map[int]int, len(skin.Joints))
	for i, node := range skin.Joints {
		if node < 0 || node >= len(doc.Nodes) {
			return nil, fmt.Errorf("skin %q joint %d: invalid node index %d", name, i, node)
		}
		if prev, dup := boneOf[node]; dup {
			return nil, fmt.Errorf("skin %q: node %d is both joint %d and joint %d", name, node, prev, i)
		}
		boneOf[node] = i
	}

	out := &gltfSkeleton{
		Set:        skeleton.NewBoneSet(skeleton.WithName(name), skeleton.WithIndexPolicy(skeleton.IndexPolicyAuthored)),
		JointNodes: append([]int(nil), skin.Joints...),
		JointNames: make([]string, len(skin.Joints)),
		Folded:     make(map[int]common.Transformation),
	}

	parentBone := make([]int, len(skin.Joints))
	for i, node := range skin.Joints {
		n := &doc.Nodes[node]
		out.JointNames[i] = n.Name
		if n.Name == "" {
			out.JointNames[i] = fmt.Sprintf("bone_%d", i)
		}

		// climb to the nearest joint ancestor, folding the nodes passed on the way
		folded := false
		var above mgl32.Mat4
		parentBone[i] = -1
		for p, steps := e.parents[node], 0; p >= 0; p, steps = e.parents[p], steps+1 {
			if steps > len(doc.Nodes) {
				return nil, fmt.Errorf("skin %q: node tree has a cycle above node %d", name, node)
			}
			if b, ok := boneOf[p]; ok {
				parentBone[i] = b
				break
			}
			m := gltfNodeTransformation(&doc.Nodes[p]).Mat4()
			if folded {
				above = m.Mul4(above)
			} else {
				above, folded = m, true
			}
		}
		rest := gltfNodeTransformation(n)
		if folded {
			var base common.Transformation
			base.FromMat4(above)
			out.Folded[i] = base
			rest.Combine(base, rest)
		}
		out.Set.AddBone(rest, i)
	}
	for child, parent := range parentBone {
		if parent >= 0 {
			out.Set.Relate(parent, child)
		}
	}
	out.Set.Resolve()
	out.Set.DeriveMatrices()

	if skin.InverseBindMatrices != nil {
		ibms, err := e.parser.ReadMat4s(*skin.InverseBindMatrices)
		if err != nil {
			return nil, fmt.Errorf("skin %q: failed to read inverse bind matrices: %w", name, err)
		}
		for i := 0; i < min(len(ibms), out.Set.Len()); i++ {
			if !common.Mat4ApproxEqual(out.Set.Bone(i).MTB(), ibms[i], ibmTolerance) {
				out.BindMismatches++
			}
		}
		if out.BindMismatches > 0 {
			log.Printf("[Loader] skin %q: %d of %d inverse bind matrices differ from the node rest pose, using the rest pose",
				name, out.BindMismatches, out.Set.Len())
		}
	}

	return out, nil
}

// --- Helper Functions ---

// gltfNodeParents returns the parent of every node, -1 for scene roots. A node listed as
// the child of two nodes, or a node that is its own ancestor, is an error.
func gltfNodeParents(doc *gltfDocument) ([]int, error) {
	parents := make([]int, len(doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i, node := range doc.Nodes {
		for _, c := range node.Children {
			if c < 0 || c >= len(doc.Nodes) || c == i {
				return nil, fmt.Errorf("node %d: invalid child %d", i, c)
			}
			if parents[c] >= 0 {
				return nil, fmt.Errorf("node %d has two parents, %d and %d", c, parents[c], i)
			}
			parents[c] = i
		}
	}
	// nodes already known to reach a root
	rooted := make([]bool, len(parents))
	for i := range parents {
		steps := 0
		for p := i; p >= 0 && !rooted[p]; p = parents[p] {
			if steps > len(parents) {
				return nil, fmt.Errorf("node %d: node tree has a cycle", i)
			}
			steps++
		}
		for p := i; p >= 0 && !rooted[p]; p = parents[p] {
			rooted[p] = true
		}
	}
	return parents, nil
}

// gltfNodeTransformation returns the local transform of a node. A matrix is decomposed
// into translation, rotation and scale.
func gltfNodeTransformation(node *gltfNode) common.Transformation {
	t := common.NewTransformation()
	if node.Matrix != nil {
		t.FromMat4(mgl32.Mat4(*node.Matrix))
		return t
	}
	if node.Translation != nil {
		t.Translation = mgl32.Vec3(*node.Translation)
	}
	if node.Rotation != nil {
		r := *node.Rotation
		t.Rotation = gltfQuat(r[0], r[1], r[2], r[3]).Normalize()
	}
	if node.Scale != nil {
		t.Scale = mgl32.Vec3(*node.Scale)
	}
	return t
}
