package animator

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// keySpan finds the keys surrounding t in a list of n keys sorted by time. It returns the
// lower and upper key and the fraction of the way from lower to upper. Outside the key
// range both indices are the nearest end key.
func keySpan(n int, t float32, time func(int) float32) (lo, hi int, f float32) {
	if t <= time(0) {
		return 0, 0, 0
	}
	if t >= time(n-1) {
		return n - 1, n - 1, 0
	}
	hi = sort.Search(n, func(i int) bool { return time(i) > t })
	lo = hi - 1
	span := time(hi) - time(lo)
	if span <= 0 {
		return hi, hi, 0
	}
	return lo, hi, (t - time(lo)) / span
}

func sampleVec3(keys []model.VectorKeyframe, t float32, rest mgl32.Vec3) mgl32.Vec3 {
	if len(keys) == 0 {
		return rest
	}
	lo, hi, f := keySpan(len(keys), t, func(i int) float32 { return keys[i].Time })
	a, b := keys[lo].Value, keys[hi].Value
	return a.Add(b.Sub(a).Mul(f))
}

func sampleQuat(keys []model.QuaternionKeyframe, t float32, rest mgl32.Quat) mgl32.Quat {
	if len(keys) == 0 {
		return rest
	}
	lo, hi, f := keySpan(len(keys), t, func(i int) float32 { return keys[i].Time })
	if lo == hi {
		return keys[lo].Value
	}
	return common.Slerp(keys[lo].Value, keys[hi].Value, f)
}

// sampleChannel evaluates a channel at time t. Components without keys keep their value
// from rest.
func sampleChannel(ch *model.AnimationChannel, t float32, rest common.Transformation) common.Transformation {
	return common.Transformation{
		Translation: sampleVec3(ch.PositionKeys, t, rest.Translation),
		Rotation:    sampleQuat(ch.RotationKeys, t, rest.Rotation),
		Scale:       sampleVec3(ch.ScaleKeys, t, rest.Scale),
	}
}
