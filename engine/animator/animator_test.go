package animator

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween/ease"
)

const epsilon = 1e-4

func assertNear(t *testing.T, name string, got, want float32) {
	t.Helper()
	if d := got - want; d > epsilon || d < -epsilon {
		t.Errorf("%s = %g, want %g", name, got, want)
	}
}

func assertVec3(t *testing.T, name string, got, want mgl32.Vec3) {
	t.Helper()
	if got.Sub(want).Len() > epsilon {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

// newPoses builds root -> child (+x) and returns a pose set for it.
func newPoses() *skeleton.BonePoseSet {
	bs := skeleton.NewBoneSet(skeleton.WithIndexPolicy(skeleton.IndexPolicyDense))
	root := bs.AddBone(common.NewTransformation(), 0)
	child := bs.AddBone(common.NewTransformation().WithTranslation(mgl32.Vec3{1, 0, 0}), 0)
	bs.Relate(root, child)
	bs.RewriteIndices()
	bs.DeriveMatrices()
	return skeleton.NewBonePoseSet(bs)
}

// slideClip moves the child from x=1 to x=3 over one second.
func slideClip() *model.AnimationClip {
	return &model.AnimationClip{
		Name:     "slide",
		Duration: 1,
		Channels: []model.AnimationChannel{{
			BoneIndex: 1,
			PositionKeys: []model.VectorKeyframe{
				{Time: 0, Value: mgl32.Vec3{1, 0, 0}},
				{Time: 1, Value: mgl32.Vec3{3, 0, 0}},
			},
		}},
	}
}

// liftClip holds the child at (1, 2, 0).
func liftClip() *model.AnimationClip {
	return &model.AnimationClip{
		Name:     "lift",
		Duration: 1,
		Channels: []model.AnimationChannel{{
			BoneIndex:    1,
			PositionKeys: []model.VectorKeyframe{{Time: 0, Value: mgl32.Vec3{1, 2, 0}}},
		}},
	}
}

func childTranslation(a Animator) mgl32.Vec3 {
	return a.PoseSet().Pose(1).Transformation().Translation
}

func TestPlaySamplesAndClamps(t *testing.T) {
	a := NewAnimator(newPoses(), WithClips(slideClip()))
	if err := a.Play(0, false); err != nil {
		t.Fatal(err)
	}
	a.Advance(0.5)
	assertVec3(t, "t=0.5", childTranslation(a), mgl32.Vec3{2, 0, 0})
	assertVec3(t, "scale kept", a.PoseSet().Pose(1).Transformation().Scale, mgl32.Vec3{1, 1, 1})

	a.Advance(1)
	assertNear(t, "time", a.Time(), 1)
	assertVec3(t, "clamped", childTranslation(a), mgl32.Vec3{3, 0, 0})
}

func TestLoopWraps(t *testing.T) {
	a := NewAnimator(newPoses(), WithClips(slideClip()))
	a.Play(0, true)
	a.Advance(1.25)
	assertNear(t, "time", a.Time(), 0.25)
	assertVec3(t, "t=0.25", childTranslation(a), mgl32.Vec3{1.5, 0, 0})

	a.SetSpeed(-1)
	a.Advance(0.5)
	assertNear(t, "reversed time", a.Time(), 0.75)
	assertVec3(t, "t=0.75", childTranslation(a), mgl32.Vec3{2.5, 0, 0})
}

func TestRotationKeysSlerp(t *testing.T) {
	quarter := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})
	clip := &model.AnimationClip{Name: "turn", Duration: 1, Channels: []model.AnimationChannel{{
		BoneIndex: 0,
		RotationKeys: []model.QuaternionKeyframe{
			{Time: 0, Value: mgl32.QuatIdent()},
			{Time: 1, Value: quarter},
		},
	}}}
	a := NewAnimator(newPoses(), WithClips(clip))
	a.Play(0, false)
	a.Advance(0.5)

	got := a.PoseSet().Pose(0).Transformation().Rotation
	want := mgl32.QuatRotate(math.Pi/4, mgl32.Vec3{0, 0, 1})
	if common.QuatDistance(got, want) > epsilon {
		t.Errorf("rotation = %v, want %v", got, want)
	}
}

func TestBlendMixesClips(t *testing.T) {
	a := NewAnimator(newPoses(), WithClips(slideClip(), liftClip()))
	a.Play(0, true)
	if err := a.BlendTo(1, 1, ease.Linear); err != nil {
		t.Fatal(err)
	}
	a.Advance(0.25)

	if !a.IsBlending() {
		t.Fatal("expected blending")
	}
	assertNear(t, "progress", a.BlendProgress(), 0.25)
	assertNear(t, "weight", a.BlendWeight(), 0.25)
	// 0.75 * (1.5, 0, 0) + 0.25 * (1, 2, 0)
	assertVec3(t, "mixed", childTranslation(a), mgl32.Vec3{1.375, 0.5, 0})

	a.Advance(0.75)
	if a.IsBlending() {
		t.Error("blend should have finished")
	}
	if a.Clip() != 1 {
		t.Errorf("Clip = %d, want 1", a.Clip())
	}
	assertNear(t, "progress after blend", a.BlendProgress(), 0)
	assertVec3(t, "target", childTranslation(a), mgl32.Vec3{1, 2, 0})
}

func TestCancelBlendKeepsPlayingClip(t *testing.T) {
	a := NewAnimator(newPoses(), WithClips(slideClip(), liftClip()))
	a.Play(0, false)
	a.BlendTo(1, 2, nil)
	a.Advance(0.5)
	a.CancelBlend()
	if a.IsBlending() || a.Clip() != 0 {
		t.Fatalf("blending=%t clip=%d", a.IsBlending(), a.Clip())
	}
	a.Advance(0.25)
	assertVec3(t, "slide only", childTranslation(a), mgl32.Vec3{2.5, 0, 0})
}

func TestBlendWithoutPlayingStartsTarget(t *testing.T) {
	a := NewAnimator(newPoses(), WithClips(slideClip(), liftClip()))
	if err := a.BlendTo(1, 1, nil); err != nil {
		t.Fatal(err)
	}
	if a.IsBlending() || a.Clip() != 1 {
		t.Errorf("blending=%t clip=%d", a.IsBlending(), a.Clip())
	}
}

func TestUnanimatedBonesKeepTheirPose(t *testing.T) {
	a := NewAnimator(newPoses(), WithClips(slideClip()))
	manual := common.NewTransformation().WithTranslation(mgl32.Vec3{0, 5, 0})
	a.PoseSet().Pose(0).SetTransformation(manual)
	a.Play(0, false)
	a.Advance(0.5)
	if got := a.PoseSet().Pose(0).Transformation(); got != manual {
		t.Errorf("root pose = %v, want %v", got, manual)
	}
}

func TestAdvanceFeedsPoseSet(t *testing.T) {
	a := NewAnimator(newPoses(), WithClips(slideClip()))
	a.Play(0, false)
	a.Advance(0.5)
	ps := a.PoseSet()
	ps.Update(1)
	child := ps.BoneSet().Bone(1).MatrixIndex
	if !common.Mat4ApproxEqual(ps.Data()[child], mgl32.Translate3D(1, 0, 0), epsilon) {
		t.Errorf("child matrix = %v", ps.Data()[child])
	}
}

func TestAdvanceWithoutClipIsNoop(t *testing.T) {
	a := NewAnimator(newPoses())
	a.Advance(1)
	if a.Clip() != -1 {
		t.Errorf("Clip = %d, want -1", a.Clip())
	}
	assertVec3(t, "rest", childTranslation(a), mgl32.Vec3{1, 0, 0})
}

func TestClipErrors(t *testing.T) {
	a := NewAnimator(newPoses())
	bad := slideClip()
	bad.Channels[0].BoneIndex = 9
	if _, err := a.AddClip(bad); err == nil {
		t.Error("expected AddClip error for an unknown bone")
	}
	if _, err := a.AddClip(nil); err == nil {
		t.Error("expected AddClip error for a nil clip")
	}
	if err := a.Play(0, false); err == nil {
		t.Error("expected Play error with no clips")
	}
	if err := a.BlendTo(3, 1, nil); err == nil {
		t.Error("expected BlendTo error for an unknown clip")
	}

	skipped := NewAnimator(newPoses(), WithClips(bad, slideClip()))
	if skipped.ClipCount() != 1 {
		t.Errorf("ClipCount = %d, want 1", skipped.ClipCount())
	}
}

func TestKeySpan(t *testing.T) {
	times := []float32{0, 1, 1, 3}
	at := func(i int) float32 { return times[i] }

	lo, hi, f := keySpan(len(times), -1, at)
	if lo != 0 || hi != 0 || f != 0 {
		t.Errorf("before start = %d %d %g", lo, hi, f)
	}
	lo, hi, f = keySpan(len(times), 0.5, at)
	if lo != 0 || hi != 1 || f != 0.5 {
		t.Errorf("0.5 = %d %d %g", lo, hi, f)
	}
	lo, hi, f = keySpan(len(times), 2, at)
	if lo != 2 || hi != 3 || f != 0.5 {
		t.Errorf("2 = %d %d %g", lo, hi, f)
	}
	lo, hi, _ = keySpan(len(times), 5, at)
	if lo != 3 || hi != 3 {
		t.Errorf("after end = %d %d", lo, hi)
	}
}
