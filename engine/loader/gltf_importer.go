package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// ImportedSkin is one glTF skin and the clips that animate it.
type ImportedSkin struct {
	// Set is the skin's BoneSet, already added to the asset's Instantiable.
	Set *skeleton.BoneSet

	// JointNames holds one name per bone.
	JointNames []string

	// Bones is the range of the instance bone matrix array the set writes.
	Bones model.BoneRange

	// Clips are the animations targeting this skin, with bone indices into Set.
	Clips []*model.AnimationClip
}

// ImportedAsset is the result of importing a glTF document.
type ImportedAsset struct {
	// Name is the default scene's name or the file name without extension.
	Name string

	// Instantiable holds every mesh and skin. Its animations are the clips of the first skin.
	Instantiable model.Instantiable

	// Meshes is parallel to the Instantiable's mesh indices.
	Meshes []ImportedMesh

	Skins []ImportedSkin
}

// SkinFor returns the skin that an Instance's i-th BonePoseSet poses, the order AddBoneSet
// was called in.
func (a *ImportedAsset) SkinFor(i int) *ImportedSkin {
	if i < 0 || i >= len(a.Skins) {
		return nil
	}
	return &a.Skins[i]
}

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct{}

// gltfImporter runs the parser and every extractor over one document.
type gltfImporter interface {
	// Import parses the file at path and imports it.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *ImportedAsset: the imported asset
	//   - error: error if parsing or extraction fails
	Import(path string) (*ImportedAsset, error)

	// ImportReader parses a document from r and imports it.
	//
	// Parameters:
	//   - name: the asset name to use when the document names no scene
	//   - r: the reader providing glTF JSON or GLB data
	//   - isGLB: true if r provides GLB data
	//
	// Returns:
	//   - *ImportedAsset: the imported asset
	//   - error: error if parsing or extraction fails
	ImportReader(name string, r io.Reader, isGLB bool) (*ImportedAsset, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter() gltfImporter {
	return &gltfImporterImpl{}
}

func (imp *gltfImporterImpl) Import(path string) (*ImportedAsset, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	base := filepath.Base(path)
	return imp.importFromParser(parser, strings.TrimSuffix(base, filepath.Ext(base)))
}

func (imp *gltfImporterImpl) ImportReader(name string, r io.Reader, isGLB bool) (*ImportedAsset, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}
	return imp.importFromParser(parser, name)
}

// importFromParser builds the asset: every skin becomes a BoneSet with its clips, then
// every mesh is added with the bone range of the skin it is bound to.
func (imp *gltfImporterImpl) importFromParser(parser gltfParser, fallbackName string) (*ImportedAsset, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, errors.New("no document after parsing")
	}
	parents, err := gltfNodeParents(doc)
	if err != nil {
		return nil, err
	}

	skeletons := newGLTFSkeletonExtractor(parser)
	animations := newGLTFAnimationExtractor(parser)
	meshes := newGLTFMeshExtractor(parser)

	asset := &ImportedAsset{Name: gltfAssetName(doc, fallbackName)}
	skins := make([]ImportedSkin, len(doc.Skins))
	for i := range doc.Skins {
		skel, err := skeletons.ExtractSkin(i)
		if err != nil {
			return nil, fmt.Errorf("skeleton extraction failed: %w", err)
		}
		clips, err := animations.ExtractClips(skel)
		if err != nil {
			return nil, fmt.Errorf("animation extraction failed: %w", err)
		}
		skins[i] = ImportedSkin{Set: skel.Set, JointNames: skel.JointNames, Clips: clips}
	}

	var options []model.InstantiableBuilderOption
	options = append(options, model.WithName(asset.Name))
	if len(skins) > 0 {
		options = append(options, model.WithAnimations(skins[0].Clips...))
	}
	asset.Instantiable = model.NewInstantiable(options...)
	for i := range skins {
		skins[i].Bones = asset.Instantiable.AddBoneSet(skins[i].Set)
	}
	asset.Skins = skins

	for m := range doc.Meshes {
		node := gltfMeshNode(doc, m)
		skin := -1
		if node >= 0 && doc.Nodes[node].Skin != nil {
			skin = *doc.Nodes[node].Skin
		}
		prims, err := meshes.ExtractMesh(m, skin)
		if err != nil {
			return nil, fmt.Errorf("mesh extraction failed: %w", err)
		}

		// skinned vertices are already in skin space; static meshes keep their node's place
		var transform *mgl32.Mat4
		if skin < 0 && node >= 0 {
			global := gltfNodeGlobal(doc, parents, node)
			transform = &global
		}
		for p := range prims {
			if skin >= 0 {
				prims[p].Bones = skins[skin].Bones
			}
			asset.Instantiable.AddMesh(nil, transform, prims[p].Bones)
			asset.Meshes = append(asset.Meshes, prims[p])
		}
	}

	return asset, nil
}

// --- Helper Functions ---

// gltfMeshNode returns the first node that instances mesh, preferring a skinned one, or -1.
func gltfMeshNode(doc *gltfDocument, mesh int) int {
	found := -1
	for i, node := range doc.Nodes {
		if node.Mesh == nil || *node.Mesh != mesh {
			continue
		}
		if node.Skin != nil {
			return i
		}
		if found < 0 {
			found = i
		}
	}
	return found
}

// gltfNodeGlobal multiplies the local matrices from the scene root down to node.
func gltfNodeGlobal(doc *gltfDocument, parents []int, node int) mgl32.Mat4 {
	m := gltfNodeTransformation(&doc.Nodes[node]).Mat4()
	for p, steps := parents[node], 0; p >= 0 && steps <= len(doc.Nodes); p, steps = parents[p], steps+1 {
		m = gltfNodeTransformation(&doc.Nodes[p]).Mat4().Mul4(m)
	}
	return m
}

// gltfAssetName returns the default scene's name, falling back to fallback.
func gltfAssetName(doc *gltfDocument, fallback string) string {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}
	if fallback != "" {
		return fallback
	}
	return "unnamed_model"
}
