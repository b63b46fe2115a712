package loader

import (
	"cmp"
	"fmt"
	"log"
	"slices"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
}

// gltfAnimationExtractor converts glTF animations into clips over a skin's BoneSet.
type gltfAnimationExtractor interface {
	// ExtractClip converts one animation. Channels that do not target a joint of skel, and
	// morph weight channels, are dropped. Keys of bones with folded ancestors are folded
	// like the bones' rest transformations. STEP samplers are expanded into linear keys
	// that hold each value; CUBICSPLINE samplers keep only their values.
	//
	// Parameters:
	//   - animIndex: index into the document's animations
	//   - skel: the skeleton the clip will drive
	//
	// Returns:
	//   - *model.AnimationClip: the clip, with one channel per animated bone in bone order
	//   - error: error if a sampler or accessor is malformed
	ExtractClip(animIndex int, skel *gltfSkeleton) (*model.AnimationClip, error)

	// ExtractClips converts every animation that targets at least one joint of skel.
	ExtractClips(skel *gltfSkeleton) ([]*model.AnimationClip, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates an animation extractor over a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(parser gltfParser) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser}
}

func (e *gltfAnimationExtractorImpl) ExtractClips(skel *gltfSkeleton) ([]*model.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	var clips []*model.AnimationClip
	for i := range doc.Animations {
		if !gltfAnimationTargets(&doc.Animations[i], skel) {
			continue
		}
		clip, err := e.ExtractClip(i, skel)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func (e *gltfAnimationExtractorImpl) ExtractClip(animIndex int, skel *gltfSkeleton) (*model.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", animIndex)
	}
	anim := &doc.Animations[animIndex]
	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}

	byBone := make(map[int]*model.AnimationChannel)
	var duration float32
	cubic := false

	for i := range anim.Channels {
		ch := &anim.Channels[i]
		if ch.Target.Node == nil {
			continue
		}
		bone := skel.BoneIndex(*ch.Target.Node)
		if bone < 0 {
			continue
		}
		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathRotation, gltfAnimPathScale:
		default:
			continue
		}
		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d", name, i, ch.Sampler)
		}
		sampler := &anim.Samplers[ch.Sampler]

		times, err := e.parser.ReadScalars(sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read times: %w", name, i, err)
		}
		if len(times) > 0 {
			duration = max(duration, times[len(times)-1])
		}

		out, ok := byBone[bone]
		if !ok {
			out = &model.AnimationChannel{BoneIndex: bone}
			byBone[bone] = out
		}

		mode := sampler.Interpolation
		switch mode {
		case "", gltfInterpolationLinear, gltfInterpolationStep:
		case gltfInterpolationCubicSpline:
			cubic = true
		default:
			return nil, fmt.Errorf("animation %q channel %d: unknown interpolation %q", name, i, mode)
		}

		if ch.Target.Path == gltfAnimPathRotation {
			values, err := e.parser.ReadQuats(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read rotations: %w", name, i, err)
			}
			values, err = gltfSamplerValues(values, len(times), mode)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %w", name, i, err)
			}
			base, folded := skel.Folded[bone]
			out.RotationKeys = gltfKeys(times, values, mode, func(t float32, q mgl32.Quat) model.QuaternionKeyframe {
				q = q.Normalize()
				if folded {
					q = base.Rotation.Mul(q)
				}
				return model.QuaternionKeyframe{Time: t, Value: q}
			})
			continue
		}

		values, err := e.parser.ReadVec3s(sampler.Output)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read %s: %w", name, i, ch.Target.Path, err)
		}
		values, err = gltfSamplerValues(values, len(times), mode)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: %w", name, i, err)
		}
		fold := gltfVec3Fold(skel, bone, ch.Target.Path)
		keys := gltfKeys(times, values, mode, func(t float32, v mgl32.Vec3) model.VectorKeyframe {
			return model.VectorKeyframe{Time: t, Value: fold(v)}
		})
		if ch.Target.Path == gltfAnimPathTranslation {
			out.PositionKeys = keys
		} else {
			out.ScaleKeys = keys
		}
	}

	if cubic {
		log.Printf("[Loader] animation %q: cubic spline tangents dropped, sampling linearly", name)
	}

	clip := &model.AnimationClip{Name: name, Duration: duration}
	for _, ch := range byBone {
		clip.Channels = append(clip.Channels, *ch)
	}
	slices.SortFunc(clip.Channels, func(a, b model.AnimationChannel) int {
		return cmp.Compare(a.BoneIndex, b.BoneIndex)
	})
	if err := clip.Validate(skel.Set.Len()); err != nil {
		return nil, err
	}
	return clip, nil
}

// --- Helper Functions ---

// gltfAnimationTargets reports whether any channel of anim targets a joint of skel.
func gltfAnimationTargets(anim *gltfAnimation, skel *gltfSkeleton) bool {
	for _, ch := range anim.Channels {
		if ch.Target.Node != nil && skel.BoneIndex(*ch.Target.Node) >= 0 {
			return true
		}
	}
	return false
}

// gltfVec3Fold returns the mapping from a glTF translation or scale key to the bone's
// space when the bone has folded ancestors, matching common.Transformation.Combine.
func gltfVec3Fold(skel *gltfSkeleton, bone int, path string) func(mgl32.Vec3) mgl32.Vec3 {
	base, folded := skel.Folded[bone]
	if !folded {
		return func(v mgl32.Vec3) mgl32.Vec3 { return v }
	}
	if path == gltfAnimPathScale {
		return func(v mgl32.Vec3) mgl32.Vec3 {
			return mgl32.Vec3{base.Scale[0] * v[0], base.Scale[1] * v[1], base.Scale[2] * v[2]}
		}
	}
	return func(v mgl32.Vec3) mgl32.Vec3 {
		var t common.Transformation
		t.Combine(base, common.NewTransformation().WithTranslation(v))
		return t.Translation
	}
}

// gltfSamplerValues returns one value per key time. Cubic spline outputs hold an in
// tangent, a value and an out tangent per key, of which only the value is kept.
func gltfSamplerValues[T any](values []T, keys int, mode string) ([]T, error) {
	if mode == gltfInterpolationCubicSpline {
		if len(values) != 3*keys {
			return nil, fmt.Errorf("cubic spline sampler has %d values for %d keys", len(values), keys)
		}
		out := make([]T, keys)
		for k := range out {
			out[k] = values[3*k+1]
		}
		return out, nil
	}
	if len(values) != keys {
		return nil, fmt.Errorf("sampler has %d values for %d keys", len(values), keys)
	}
	return values, nil
}

// gltfKeys pairs times with values. For STEP samplers every key after the first is
// preceded by a key at the same time holding the previous value, so linear sampling
// holds each value until the next key.
func gltfKeys[V, K any](times []float32, values []V, mode string, key func(float32, V) K) []K {
	if mode != gltfInterpolationStep {
		keys := make([]K, len(times))
		for k := range keys {
			keys[k] = key(times[k], values[k])
		}
		return keys
	}
	keys := make([]K, 0, 2*len(times))
	for k := range times {
		if k > 0 {
			keys = append(keys, key(times[k], values[k-1]))
		}
		keys = append(keys, key(times[k], values[k]))
	}
	return keys
}
