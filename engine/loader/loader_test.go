package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/animator"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const epsilon = 1e-4

func assertVec3(t *testing.T, name string, got, want mgl32.Vec3) {
	t.Helper()
	if got.Sub(want).Len() > epsilon {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

// gltfFixture accumulates a binary buffer together with its views and accessors.
type gltfFixture struct {
	bin       bytes.Buffer
	views     []any
	accessors []map[string]any
}

func (f *gltfFixture) add(t *testing.T, data any, componentType, count int, typ string) int {
	t.Helper()
	for f.bin.Len()%4 != 0 {
		f.bin.WriteByte(0)
	}
	offset := f.bin.Len()
	if err := binary.Write(&f.bin, binary.LittleEndian, data); err != nil {
		t.Fatalf("binary.Write: %v", err)
	}
	f.views = append(f.views, map[string]any{"buffer": 0, "byteOffset": offset, "byteLength": f.bin.Len() - offset})
	f.accessors = append(f.accessors, map[string]any{
		"bufferView":    len(f.views) - 1,
		"componentType": componentType,
		"count":         count,
		"type":          typ,
	})
	return len(f.accessors) - 1
}

// rigDoc builds an armature at z=5 holding Root (+y) -> Tip (+x), a three vertex triangle
// skinned to both joints, and a one second "Wave" clip: Tip slides from x=1 to x=2 while
// Root steps from y=1 to y=3.
func rigDoc(t *testing.T) (map[string]any, *gltfFixture) {
	t.Helper()
	f := &gltfFixture{}
	ibm := f.add(t, []mgl32.Mat4{mgl32.Translate3D(0, -1, -5), mgl32.Translate3D(-1, -1, -5)}, gltfComponentTypeFloat, 2, "MAT4")
	pos := f.add(t, []float32{0, 1, 5, 1, 1, 5, 1, 2, 5}, gltfComponentTypeFloat, 3, "VEC3")
	joints := f.add(t, []uint8{0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0}, gltfComponentTypeUnsignedByte, 3, "VEC4")
	weights := f.add(t, []float32{1, 0, 0, 0, 1, 0, 0, 0, 1, 1, 0, 0}, gltfComponentTypeFloat, 3, "VEC4")
	indices := f.add(t, []uint16{0, 1, 2}, gltfComponentTypeUnsignedShort, 3, "SCALAR")
	times := f.add(t, []float32{0, 1}, gltfComponentTypeFloat, 2, "SCALAR")
	tipKeys := f.add(t, []float32{1, 0, 0, 2, 0, 0}, gltfComponentTypeFloat, 2, "VEC3")
	rootKeys := f.add(t, []float32{0, 1, 0, 0, 3, 0}, gltfComponentTypeFloat, 2, "VEC3")

	doc := map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"nodes": []int{0}}},
		"nodes": []any{
			map[string]any{"name": "Armature", "translation": []float32{0, 0, 5}, "children": []int{1, 3}},
			map[string]any{"name": "Root", "translation": []float32{0, 1, 0}, "children": []int{2}},
			map[string]any{"name": "Tip", "translation": []float32{1, 0, 0}},
			map[string]any{"name": "Body", "mesh": 0, "skin": 0},
		},
		"meshes": []any{map[string]any{
			"name": "Body",
			"primitives": []any{map[string]any{
				"attributes": map[string]int{"POSITION": pos, "JOINTS_0": joints, "WEIGHTS_0": weights},
				"indices":    indices,
			}},
		}},
		"skins": []any{map[string]any{"name": "Rig", "inverseBindMatrices": ibm, "joints": []int{1, 2}}},
		"animations": []any{map[string]any{
			"name": "Wave",
			"samplers": []any{
				map[string]any{"input": times, "output": tipKeys},
				map[string]any{"input": times, "output": rootKeys, "interpolation": "STEP"},
			},
			"channels": []any{
				map[string]any{"sampler": 0, "target": map[string]any{"node": 2, "path": "translation"}},
				map[string]any{"sampler": 1, "target": map[string]any{"node": 1, "path": "translation"}},
			},
		}},
	}
	return doc, f
}

func node(doc map[string]any, i int) map[string]any {
	return doc["nodes"].([]any)[i].(map[string]any)
}

// encodeGLTF embeds the buffer as a base64 data URI.
func encodeGLTF(t *testing.T, doc map[string]any, f *gltfFixture) []byte {
	t.Helper()
	doc["bufferViews"] = f.views
	doc["accessors"] = f.accessors
	doc["buffers"] = []any{map[string]any{
		"byteLength": f.bin.Len(),
		"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(f.bin.Bytes()),
	}}
	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	return out
}

// encodeGLB packs the document and buffer into JSON and BIN chunks.
func encodeGLB(t *testing.T, doc map[string]any, f *gltfFixture) []byte {
	t.Helper()
	doc["bufferViews"] = f.views
	doc["accessors"] = f.accessors
	doc["buffers"] = []any{map[string]any{"byteLength": f.bin.Len()}}
	js, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	bin := append([]byte(nil), f.bin.Bytes()...)
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	var out bytes.Buffer
	write := func(v any) {
		if err := binary.Write(&out, binary.LittleEndian, v); err != nil {
			t.Fatalf("binary.Write: %v", err)
		}
	}
	write(gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(12 + 8 + len(js) + 8 + len(bin))})
	write(gltfGLBChunkHeader{ChunkLength: uint32(len(js)), ChunkType: gltfGLBChunkJSON})
	out.Write(js)
	write(gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN})
	out.Write(bin)
	return out.Bytes()
}

func loadRig(t *testing.T, data []byte, isGLB bool) *GPUAsset {
	t.Helper()
	l := NewLoader(BackendTypeGLTF)
	asset, err := l.LoadReader("rig", bytes.NewReader(data), isGLB)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	return asset
}

func TestImportBuildsBoneSetFromSkin(t *testing.T) {
	doc, f := rigDoc(t)
	asset := loadRig(t, encodeGLTF(t, doc, f), false)

	if asset.Name != "rig" {
		t.Errorf("Name = %q, want rig", asset.Name)
	}
	if len(asset.Skins) != 1 {
		t.Fatalf("len(Skins) = %d, want 1", len(asset.Skins))
	}
	skin := asset.Skins[0]
	bs := skin.Set
	if bs.Name() != "Rig" || bs.Len() != 2 || bs.MaxIndex() != 2 {
		t.Fatalf("BoneSet %q: %d bones, MaxIndex %d", bs.Name(), bs.Len(), bs.MaxIndex())
	}
	if roots := bs.Roots(); len(roots) != 1 || roots[0] != 0 {
		t.Errorf("Roots = %v, want [0]", roots)
	}
	if p, ok := bs.Hierarchy().Parent(1); !ok || p != 0 {
		t.Errorf("Parent(1) = %d, %v", p, ok)
	}
	if strings.Join(skin.JointNames, ",") != "Root,Tip" {
		t.Errorf("JointNames = %v", skin.JointNames)
	}
	if skin.Bones.First != 0 || skin.Bones.Count != 2 {
		t.Errorf("Bones = %+v", skin.Bones)
	}

	// the armature's offset is folded into the root joint
	assertVec3(t, "root rest", bs.Bone(0).Transformation.Translation, mgl32.Vec3{0, 1, 5})
	assertVec3(t, "tip rest", bs.Bone(1).Transformation.Translation, mgl32.Vec3{1, 0, 0})
	if !common.Mat4ApproxEqual(bs.Bone(1).MTB(), mgl32.Translate3D(-1, -1, -5), epsilon) {
		t.Errorf("tip MTB = %v", bs.Bone(1).MTB())
	}
	if n := asset.Instantiable.NumBoneMatrices(); n != 2 {
		t.Errorf("NumBoneMatrices = %d, want 2", n)
	}
}

func TestImportReadsSkinnedMesh(t *testing.T) {
	doc, f := rigDoc(t)
	asset := loadRig(t, encodeGLTF(t, doc, f), false)

	if len(asset.Meshes) != 1 || asset.Instantiable.MeshCount() != 1 {
		t.Fatalf("meshes = %d, Instantiable meshes = %d", len(asset.Meshes), asset.Instantiable.MeshCount())
	}
	mesh := asset.Meshes[0]
	if mesh.Name != "Body" || mesh.Skin != 0 || mesh.Bones.Count != 2 {
		t.Errorf("mesh %q skin %d bones %+v", mesh.Name, mesh.Skin, mesh.Bones)
	}
	if got := asset.Instantiable.MeshData(0).Bones; got != mesh.Bones {
		t.Errorf("MeshData(0).Bones = %+v, want %+v", got, mesh.Bones)
	}
	v := mesh.Vertices[2]
	if v.BoneIndices != [4]uint32{0, 1, 0, 0} || v.BoneWeights != [4]float32{0.5, 0.5, 0, 0} {
		t.Errorf("vertex 2 joints %v weights %v", v.BoneIndices, v.BoneWeights)
	}
	assertVec3(t, "generated normal", mgl32.Vec3(v.Normal), mgl32.Vec3{0, 0, 1})
	assertVec3(t, "BoundsMin", mesh.BoundsMin, mgl32.Vec3{0, 1, 5})
	assertVec3(t, "BoundsMax", mesh.BoundsMax, mgl32.Vec3{1, 2, 5})
	if len(asset.Draws) != 1 || asset.Draws[0] != (MeshDraw{FirstIndex: 0, IndexCount: 3}) {
		t.Errorf("Draws = %+v", asset.Draws)
	}
	if len(mesh.VertexBytes()) != 3*56 {
		t.Errorf("len(VertexBytes) = %d", len(mesh.VertexBytes()))
	}
}

func TestImportedClipDrivesInstance(t *testing.T) {
	doc, f := rigDoc(t)
	asset := loadRig(t, encodeGLB(t, doc, f), true)

	clips := asset.Instantiable.Animations()
	if len(clips) != 1 || clips[0].Name != "Wave" || clips[0].Duration != 1 {
		t.Fatalf("Animations = %+v", clips)
	}
	if got := len(clips[0].Channels); got != 2 || clips[0].Channels[0].BoneIndex != 0 {
		t.Fatalf("channels = %+v", clips[0].Channels)
	}

	inst := asset.Instantiable.Instantiate()
	a := animator.NewAnimator(inst.BonePoses()[0], animator.WithClips(clips...))
	if err := a.Play(0, false); err != nil {
		t.Fatalf("Play: %v", err)
	}
	mesh := asset.Meshes[0]
	skinned := func(i int) mgl32.Vec3 {
		bones := inst.BoneMatrices()[mesh.Bones.First:mesh.Bones.End()]
		return mesh.Vertices[i].SkinPosition(bones)
	}

	a.Advance(0.5)
	inst.Update(1)
	assertVec3(t, "root vertex", skinned(0), mgl32.Vec3{0, 1, 5})
	assertVec3(t, "tip vertex", skinned(1), mgl32.Vec3{1.5, 1, 5})
	assertVec3(t, "shared vertex", skinned(2), mgl32.Vec3{1.25, 2, 5})

	// past the end the step key has switched and the clip holds its last pose
	a.Advance(1)
	inst.Update(2)
	assertVec3(t, "root vertex at end", skinned(0), mgl32.Vec3{0, 3, 5})
	assertVec3(t, "tip vertex at end", skinned(1), mgl32.Vec3{2, 3, 5})
	assertVec3(t, "shared vertex at end", skinned(2), mgl32.Vec3{1.5, 4, 5})
}

func TestInverseBindMismatchIsCounted(t *testing.T) {
	doc, f := rigDoc(t)
	node(doc, 2)["translation"] = []float32{3, 0, 0}
	p := newGLTFParser()
	if err := p.ParseReader(bytes.NewReader(encodeGLTF(t, doc, f)), false); err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	skel, err := newGLTFSkeletonExtractor(p).ExtractSkin(0)
	if err != nil {
		t.Fatalf("ExtractSkin: %v", err)
	}
	if skel.BindMismatches != 1 {
		t.Errorf("BindMismatches = %d, want 1", skel.BindMismatches)
	}
	if skel.BoneIndex(2) != 1 || skel.BoneIndex(0) != -1 {
		t.Errorf("BoneIndex(2) = %d, BoneIndex(0) = %d", skel.BoneIndex(2), skel.BoneIndex(0))
	}
}

func TestLoadFromFileCachesByPath(t *testing.T) {
	doc, f := rigDoc(t)
	path := filepath.Join(t.TempDir(), "walker.gltf")
	if err := os.WriteFile(path, encodeGLTF(t, doc, f), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(BackendTypeGLTF)
	first, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.Name != "walker" {
		t.Errorf("Name = %q, want walker", first.Name)
	}
	second, err := l.Load(path)
	if err != nil || second != first {
		t.Errorf("second Load = %p, %v; want cached %p", second, err, first)
	}
	if l.Get(path) != first || len(l.Assets()) != 1 {
		t.Error("asset not cached under its path")
	}
	if _, err := l.Load(filepath.Join(t.TempDir(), "walker.fbx")); err == nil {
		t.Error("Load of an unsupported format succeeded")
	}
}

// uploadRenderer records the buffers created on providers.
type uploadRenderer struct {
	mu      sync.Mutex
	sizes   map[int]uint64
	written int
}

func (u *uploadRenderer) InitBoneBuffer(p bind_group_provider.BindGroupProvider, binding, matrices int) error {
	return nil
}

func (u *uploadRenderer) InitInstanceBuffer(p bind_group_provider.BindGroupProvider, binding int) error {
	return nil
}

func (u *uploadRenderer) InitVertexBuffer(p bind_group_provider.BindGroupProvider, binding int, data []byte) error {
	return u.init(p, binding, data)
}

func (u *uploadRenderer) InitIndexBuffer(p bind_group_provider.BindGroupProvider, binding int, data []byte) error {
	return u.init(p, binding, data)
}

func (u *uploadRenderer) init(p bind_group_provider.BindGroupProvider, binding int, data []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	p.SetBuffer(binding, nil, uint64(len(data)))
	u.sizes[binding] = uint64(len(data))
	u.written++
	return nil
}

func (u *uploadRenderer) WriteBuffers(writes []bind_group_provider.BufferWrite) int { return 0 }
func (u *uploadRenderer) BackendType() renderer.RendererBackendType                { return renderer.BackendTypeWGPU }
func (u *uploadRenderer) Device() *wgpu.Device                                     { return nil }
func (u *uploadRenderer) Release()                                                 {}

func TestLoaderUploadsMeshBuffers(t *testing.T) {
	doc, f := rigDoc(t)
	r := &uploadRenderer{sizes: make(map[int]uint64)}
	l := NewLoader(BackendTypeGLTF, WithRenderer(r), WithMeshBindings(2, 3))
	asset, err := l.LoadReader("rig", bytes.NewReader(encodeGLTF(t, doc, f)), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if asset.Provider == nil {
		t.Fatal("no provider after upload")
	}
	if r.sizes[2] != 3*56 || r.sizes[3] != 3*4 {
		t.Errorf("buffer sizes = %v", r.sizes)
	}
	if asset.Provider.Size(2) != 3*56 || asset.Provider.Size(3) != 12 {
		t.Errorf("provider sizes = %d, %d", asset.Provider.Size(2), asset.Provider.Size(3))
	}

	if again, err := l.LoadReader("rig", strings.NewReader(""), false); err != nil || again != asset {
		t.Errorf("cached LoadReader = %p, %v", again, err)
	}
	if r.written != 2 {
		t.Errorf("buffers created = %d, want 2", r.written)
	}

	l.Release()
	if len(l.Assets()) != 0 || len(asset.Provider.Bindings()) != 0 {
		t.Error("Release kept assets or buffers")
	}
}

func TestImportErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		want   string
	}{
		{
			name:   "old version",
			mutate: func(doc map[string]any) { doc["asset"] = map[string]any{"version": "1.0"} },
			want:   "invalid glTF version",
		},
		{
			name: "joint outside skin",
			mutate: func(doc map[string]any) {
				doc["skins"].([]any)[0].(map[string]any)["joints"] = []int{1}
			},
			want: "out of range for 1 joints",
		},
		{
			name:   "node with two parents",
			mutate: func(doc map[string]any) { node(doc, 3)["children"] = []int{2} },
			want:   "two parents",
		},
		{
			name: "cyclic node tree",
			mutate: func(doc map[string]any) {
				node(doc, 0)["children"] = []int{3}
				node(doc, 2)["children"] = []int{1}
			},
			want: "node tree has a cycle",
		},
		{
			name: "rotation from a vec3 accessor",
			mutate: func(doc map[string]any) {
				ch := doc["animations"].([]any)[0].(map[string]any)["channels"].([]any)[0].(map[string]any)
				ch["target"] = map[string]any{"node": 2, "path": "rotation"}
			},
			want: "is VEC3, want VEC4",
		},
		{
			name: "unknown interpolation",
			mutate: func(doc map[string]any) {
				s := doc["animations"].([]any)[0].(map[string]any)["samplers"].([]any)[0].(map[string]any)
				s["interpolation"] = "BEZIER"
			},
			want: "unknown interpolation",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, f := rigDoc(t)
			tc.mutate(doc)
			_, err := NewLoader(BackendTypeGLTF).LoadReader("rig", bytes.NewReader(encodeGLTF(t, doc, f)), false)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestParserNormalizesIntegerComponents(t *testing.T) {
	f := &gltfFixture{}
	acc := f.add(t, []uint8{255, 0, 51, 0}, gltfComponentTypeUnsignedByte, 1, "VEC4")
	f.accessors[acc]["normalized"] = true
	shorts := f.add(t, []int16{-32768, 32767, 0, 0}, gltfComponentTypeShort, 1, "VEC4")
	f.accessors[shorts]["normalized"] = true

	doc := map[string]any{"asset": map[string]any{"version": "2.0"}}
	p := newGLTFParser()
	if err := p.ParseReader(bytes.NewReader(encodeGLTF(t, doc, f)), false); err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	v, err := p.ReadVec4s(acc)
	if err != nil {
		t.Fatalf("ReadVec4s: %v", err)
	}
	if v[0] != (mgl32.Vec4{1, 0, 0.2, 0}) {
		t.Errorf("unsigned byte = %v", v[0])
	}
	s, err := p.ReadVec4s(shorts)
	if err != nil {
		t.Fatalf("ReadVec4s: %v", err)
	}
	if s[0][0] != -1 || s[0][1] != 1 {
		t.Errorf("short = %v", s[0])
	}
	if _, err := p.ReadJoints(shorts); err == nil {
		t.Error("ReadJoints accepted signed components")
	}
}

func TestStepKeysHoldValues(t *testing.T) {
	type key struct {
		t float32
		v int
	}
	keys := gltfKeys([]float32{0, 1, 2}, []int{10, 20, 30}, gltfInterpolationStep, func(t float32, v int) key {
		return key{t, v}
	})
	want := []key{{0, 10}, {1, 10}, {1, 20}, {2, 20}, {2, 30}}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %v, want %v", i, keys[i], want[i])
		}
	}

	cubic, err := gltfSamplerValues([]int{0, 1, 2, 3, 4, 5}, 2, gltfInterpolationCubicSpline)
	if err != nil || len(cubic) != 2 || cubic[0] != 1 || cubic[1] != 4 {
		t.Errorf("cubic values = %v, %v", cubic, err)
	}
}
