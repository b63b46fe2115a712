package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errNoDocument         = errors.New("no document loaded")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir        string
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser loads a glTF or GLB document and decodes its accessors into the math types
// the skeleton and model packages use.
type gltfParser interface {
	// Parse loads and parses a .gltf or .glb file. GLB is detected by extension or magic.
	//
	// Parameters:
	//   - path: path to the file
	//
	// Returns:
	//   - error: error if reading or parsing fails
	Parse(path string) error

	// ParseReader parses a document from r. Relative buffer URIs resolve against BaseDir,
	// which is empty unless set by a previous Parse.
	//
	// Parameters:
	//   - r: reader holding glTF JSON or GLB data
	//   - isGLB: true if r holds GLB data
	//
	// Returns:
	//   - error: error if parsing fails
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the parsed document, or nil before a successful parse.
	Document() *gltfDocument

	// BaseDir returns the directory relative buffer URIs resolve against.
	BaseDir() string

	// ReadScalars reads a SCALAR accessor as floats.
	ReadScalars(accessorIndex int) ([]float32, error)

	// ReadVec3s reads a VEC3 accessor.
	ReadVec3s(accessorIndex int) ([]mgl32.Vec3, error)

	// ReadVec4s reads a VEC4 accessor, normalizing integer components.
	ReadVec4s(accessorIndex int) ([]mgl32.Vec4, error)

	// ReadQuats reads a VEC4 accessor of x, y, z, w rotations.
	ReadQuats(accessorIndex int) ([]mgl32.Quat, error)

	// ReadMat4s reads a MAT4 accessor of column-major matrices.
	ReadMat4s(accessorIndex int) ([]mgl32.Mat4, error)

	// ReadIndices reads a SCALAR accessor of unsigned integers.
	ReadIndices(accessorIndex int) ([]uint32, error)

	// ReadJoints reads a VEC4 accessor of unsigned byte or short joint indices.
	ReadJoints(accessorIndex int) ([][4]uint32, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a parser with no document loaded.
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) BaseDir() string {
	return p.baseDir
}

func (p *gltfParserImpl) Parse(path string) error {
	p.baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".glb" || (len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic) {
		return p.parseGLB(data)
	}
	return p.decodeDocument(data)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	if isGLB {
		return p.parseGLB(data)
	}
	return p.decodeDocument(data)
}

// decodeDocument unmarshals the JSON document, checks its version and loads its buffers.
func (p *gltfParserImpl) decodeDocument(jsonData []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}
	p.document = &doc
	return nil
}

// parseGLB splits a GLB file into its JSON and BIN chunks.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < 12 {
		return errors.New("GLB file too small")
	}
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return errInvalidGLBVersion
	}

	var jsonData []byte
	p.glbBinaryChunk = nil
	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read chunk header: %w", err)
		}
		if int64(chunk.ChunkLength) > int64(r.Len()) {
			return fmt.Errorf("chunk of %d bytes overruns file", chunk.ChunkLength)
		}
		body := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return fmt.Errorf("failed to read chunk data: %w", err)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = body
		case gltfGLBChunkBIN:
			p.glbBinaryChunk = body
		}
	}
	if jsonData == nil {
		return errMissingJSONChunk
	}
	return p.decodeDocument(jsonData)
}

// loadBuffers fills every buffer's Data from its URI or, for a URI-less first buffer,
// the GLB binary chunk.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI != "":
			data, err := p.loadBufferURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		case i == 0 && p.glbBinaryChunk != nil:
			buf.Data = p.glbBinaryChunk
		default:
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

func (p *gltfParserImpl) loadBufferURI(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		return decodeDataURI(uri)
	}
	data, err := os.ReadFile(filepath.Join(p.baseDir, uri))
	if err != nil {
		return nil, fmt.Errorf("failed to load buffer file %q: %w", uri, err)
	}
	return data, nil
}

// decodeDataURI decodes data:[<mediatype>];base64,<data>.
func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, errInvalidBufferURI
	}
	if header := uri[len("data:"):comma]; !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("unsupported data URI encoding %q", header)
	}
	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

// --- Accessor decoding ---

// accessor is a validated accessor together with the bytes of each of its elements.
type accessor struct {
	*gltfAccessor
	components int
	compSize   int
	stride     int
	base       []byte
}

// element returns the bytes of element i.
func (a accessor) element(i int) []byte {
	off := i * a.stride
	return a.base[off : off+a.components*a.compSize]
}

// lookup validates accessorIndex against the document, the wanted type and the bounds of
// its buffer view.
func (p *gltfParserImpl) lookup(accessorIndex int, wantType string) (accessor, error) {
	doc := p.document
	if doc == nil {
		return accessor{}, errNoDocument
	}
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return accessor{}, fmt.Errorf("accessor index %d out of range", accessorIndex)
	}
	acc := &doc.Accessors[accessorIndex]
	if acc.Type != wantType {
		return accessor{}, fmt.Errorf("accessor %d is %s, want %s", accessorIndex, acc.Type, wantType)
	}
	if acc.Sparse != nil {
		return accessor{}, fmt.Errorf("accessor %d: sparse accessors are not supported", accessorIndex)
	}
	if acc.BufferView == nil || *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
		return accessor{}, fmt.Errorf("accessor %d has no valid bufferView", accessorIndex)
	}
	bv := &doc.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return accessor{}, fmt.Errorf("bufferView %d: buffer %d out of range", *acc.BufferView, bv.Buffer)
	}

	a := accessor{
		gltfAccessor: acc,
		components:   gltfAccessorTypeComponentCount(acc.Type),
		compSize:     gltfComponentTypeSize(acc.ComponentType),
	}
	if a.compSize == 0 {
		return accessor{}, fmt.Errorf("accessor %d: unknown component type %d", accessorIndex, acc.ComponentType)
	}
	a.stride = a.components * a.compSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		a.stride = *bv.ByteStride
	}

	data := doc.Buffers[bv.Buffer].Data
	start := bv.ByteOffset + acc.ByteOffset
	end := bv.ByteOffset + bv.ByteLength
	need := 0
	if acc.Count > 0 {
		need = (acc.Count-1)*a.stride + a.components*a.compSize
	}
	if start < 0 || end > len(data) || start+need > end {
		return accessor{}, fmt.Errorf("accessor %d: %d elements overrun bufferView %d", accessorIndex, acc.Count, *acc.BufferView)
	}
	a.base = data[start:end]
	return a, nil
}

// component decodes component c of elem as a float, normalizing integer types when the
// accessor is normalized.
func (a accessor) component(elem []byte, c int) float32 {
	b := elem[c*a.compSize:]
	switch a.ComponentType {
	case gltfComponentTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfComponentTypeUnsignedByte:
		if a.Normalized {
			return float32(b[0]) / 255
		}
		return float32(b[0])
	case gltfComponentTypeByte:
		if a.Normalized {
			return max(float32(int8(b[0]))/127, -1)
		}
		return float32(int8(b[0]))
	case gltfComponentTypeUnsignedShort:
		v := binary.LittleEndian.Uint16(b)
		if a.Normalized {
			return float32(v) / 65535
		}
		return float32(v)
	case gltfComponentTypeShort:
		v := int16(binary.LittleEndian.Uint16(b))
		if a.Normalized {
			return max(float32(v)/32767, -1)
		}
		return float32(v)
	default:
		return float32(binary.LittleEndian.Uint32(b))
	}
}

// unsigned decodes component c of elem as an unsigned integer.
func (a accessor) unsigned(elem []byte, c int) (uint32, error) {
	b := elem[c*a.compSize:]
	switch a.ComponentType {
	case gltfComponentTypeUnsignedByte:
		return uint32(b[0]), nil
	case gltfComponentTypeUnsignedShort:
		return uint32(binary.LittleEndian.Uint16(b)), nil
	case gltfComponentTypeUnsignedInt:
		return binary.LittleEndian.Uint32(b), nil
	default:
		return 0, fmt.Errorf("component type %d is not an unsigned integer", a.ComponentType)
	}
}

// readFloats decodes every element of a wantType accessor into n floats and hands them
// to store.
func (p *gltfParserImpl) readFloats(accessorIndex int, wantType string, store func(i int, v []float32)) error {
	a, err := p.lookup(accessorIndex, wantType)
	if err != nil {
		return err
	}
	if a.ComponentType == gltfComponentTypeUnsignedInt {
		return fmt.Errorf("accessor %d: unsigned int components cannot hold float data", accessorIndex)
	}
	v := make([]float32, a.components)
	for i := 0; i < a.Count; i++ {
		elem := a.element(i)
		for c := range v {
			v[c] = a.component(elem, c)
		}
		store(i, v)
	}
	return nil
}

func (p *gltfParserImpl) count(accessorIndex int) int {
	if p.document == nil || accessorIndex < 0 || accessorIndex >= len(p.document.Accessors) {
		return 0
	}
	return p.document.Accessors[accessorIndex].Count
}

func (p *gltfParserImpl) ReadScalars(accessorIndex int) ([]float32, error) {
	out := make([]float32, p.count(accessorIndex))
	err := p.readFloats(accessorIndex, gltfAccessorTypeScalar, func(i int, v []float32) {
		out[i] = v[0]
	})
	return out, err
}

func (p *gltfParserImpl) ReadVec3s(accessorIndex int) ([]mgl32.Vec3, error) {
	out := make([]mgl32.Vec3, p.count(accessorIndex))
	err := p.readFloats(accessorIndex, gltfAccessorTypeVec3, func(i int, v []float32) {
		out[i] = mgl32.Vec3{v[0], v[1], v[2]}
	})
	return out, err
}

func (p *gltfParserImpl) ReadVec4s(accessorIndex int) ([]mgl32.Vec4, error) {
	out := make([]mgl32.Vec4, p.count(accessorIndex))
	err := p.readFloats(accessorIndex, gltfAccessorTypeVec4, func(i int, v []float32) {
		out[i] = mgl32.Vec4{v[0], v[1], v[2], v[3]}
	})
	return out, err
}

func (p *gltfParserImpl) ReadQuats(accessorIndex int) ([]mgl32.Quat, error) {
	out := make([]mgl32.Quat, p.count(accessorIndex))
	err := p.readFloats(accessorIndex, gltfAccessorTypeVec4, func(i int, v []float32) {
		out[i] = gltfQuat(v[0], v[1], v[2], v[3])
	})
	return out, err
}

func (p *gltfParserImpl) ReadMat4s(accessorIndex int) ([]mgl32.Mat4, error) {
	out := make([]mgl32.Mat4, p.count(accessorIndex))
	err := p.readFloats(accessorIndex, gltfAccessorTypeMat4, func(i int, v []float32) {
		copy(out[i][:], v)
	})
	return out, err
}

func (p *gltfParserImpl) ReadIndices(accessorIndex int) ([]uint32, error) {
	a, err := p.lookup(accessorIndex, gltfAccessorTypeScalar)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, a.Count)
	for i := range out {
		if out[i], err = a.unsigned(a.element(i), 0); err != nil {
			return nil, fmt.Errorf("accessor %d: %w", accessorIndex, err)
		}
	}
	return out, nil
}

func (p *gltfParserImpl) ReadJoints(accessorIndex int) ([][4]uint32, error) {
	a, err := p.lookup(accessorIndex, gltfAccessorTypeVec4)
	if err != nil {
		return nil, err
	}
	if a.ComponentType == gltfComponentTypeUnsignedInt {
		return nil, fmt.Errorf("accessor %d: joints must be unsigned byte or short", accessorIndex)
	}
	out := make([][4]uint32, a.Count)
	for i := range out {
		elem := a.element(i)
		for c := 0; c < 4; c++ {
			if out[i][c], err = a.unsigned(elem, c); err != nil {
				return nil, fmt.Errorf("accessor %d: %w", accessorIndex, err)
			}
		}
	}
	return out, nil
}

// --- Helper Functions ---

// gltfQuat converts a glTF x, y, z, w rotation.
func gltfQuat(x, y, z, w float32) mgl32.Quat {
	return mgl32.Quat{W: w, V: mgl32.Vec3{x, y, z}}
}

// gltfComponentTypeSize returns the byte size of a component type, zero if unknown.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components of an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4:
		return 4
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
