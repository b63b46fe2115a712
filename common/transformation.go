package common

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Transformation is a decomposed transform made of a translation, a per-axis scale and a rotation.
// A point p in the transformed space maps to translate(rotate(scale(p))) in the outer space, so
// the matrix form is T * R * S in column-major order.
type Transformation struct {
	// Translation is the offset applied after scaling and rotation.
	Translation mgl32.Vec3

	// Scale is the non-uniform scale applied first. Components must be non-zero for
	// Mat4Inverse and FromMat4 to be meaningful.
	Scale mgl32.Vec3

	// Rotation is a unit quaternion applied after scaling.
	Rotation mgl32.Quat
}

// NewTransformation creates the identity transformation: zero translation, unit scale and no rotation.
//
// Returns:
//   - Transformation: the identity transformation
func NewTransformation() Transformation {
	return Transformation{
		Translation: mgl32.Vec3{0, 0, 0},
		Scale:       mgl32.Vec3{1, 1, 1},
		Rotation:    mgl32.QuatIdent(),
	}
}

// WithTranslation returns a copy of the transformation with the translation replaced.
//
// Parameters:
//   - translation: the new translation
//
// Returns:
//   - Transformation: the modified copy
func (t Transformation) WithTranslation(translation mgl32.Vec3) Transformation {
	t.Translation = translation
	return t
}

// WithScale returns a copy of the transformation with the scale replaced.
//
// Parameters:
//   - scale: the new per-axis scale
//
// Returns:
//   - Transformation: the modified copy
func (t Transformation) WithScale(scale mgl32.Vec3) Transformation {
	t.Scale = scale
	return t
}

// WithRotation returns a copy of the transformation with the rotation replaced.
//
// Parameters:
//   - rotation: the new rotation quaternion
//
// Returns:
//   - Transformation: the modified copy
func (t Transformation) WithRotation(rotation mgl32.Quat) Transformation {
	t.Rotation = rotation
	return t
}

// Mat4 builds the column-major matrix T * R * S for this transformation.
//
// Returns:
//   - mgl32.Mat4: the forward matrix
func (t Transformation) Mat4() mgl32.Mat4 {
	m := t.Rotation.Mat4()
	for col := 0; col < 3; col++ {
		m[4*col+0] *= t.Scale[col]
		m[4*col+1] *= t.Scale[col]
		m[4*col+2] *= t.Scale[col]
	}
	m[12] = t.Translation[0]
	m[13] = t.Translation[1]
	m[14] = t.Translation[2]
	return m
}

// Mat4Inverse builds the exact inverse of Mat4 without a general 4x4 inversion:
// inv(T * R * S) = inv(S) * transpose(R) * inv(T).
//
// Returns:
//   - mgl32.Mat4: the inverse matrix
func (t Transformation) Mat4Inverse() mgl32.Mat4 {
	m := t.Rotation.Conjugate().Mat4()
	// Scaling rows by 1/s is inv(S) * R^T.
	for row := 0; row < 3; row++ {
		inv := 1 / t.Scale[row]
		m[row+0] *= inv
		m[row+4] *= inv
		m[row+8] *= inv
	}
	// Fold in inv(T): the upper 3x3 applied to -translation.
	tx, ty, tz := -t.Translation[0], -t.Translation[1], -t.Translation[2]
	m[12] = m[0]*tx + m[4]*ty + m[8]*tz
	m[13] = m[1]*tx + m[5]*ty + m[9]*tz
	m[14] = m[2]*tx + m[6]*ty + m[10]*tz
	return m
}

// Mat4After returns pre * Mat4(), i.e. this transformation applied before pre.
//
// Parameters:
//   - pre: the matrix applied after this transformation
//
// Returns:
//   - mgl32.Mat4: the combined matrix
func (t Transformation) Mat4After(pre mgl32.Mat4) mgl32.Mat4 {
	return pre.Mul4(t.Mat4())
}

// FromMat4 decomposes an affine matrix into this transformation. The translation is read
// from column 3, the scale from the lengths of columns 0..2 and the rotation from the
// normalised 3x3 block. Matrices with a zero-length column cannot be decomposed and leave
// the rotation as identity.
//
// Parameters:
//   - m: the matrix to decompose
func (t *Transformation) FromMat4(m mgl32.Mat4) {
	t.Translation = mgl32.Vec3{m[12], m[13], m[14]}

	rot := mgl32.Ident4()
	degenerate := false
	for col := 0; col < 3; col++ {
		v := mgl32.Vec3{m[4*col+0], m[4*col+1], m[4*col+2]}
		l := v.Len()
		t.Scale[col] = l
		if l == 0 {
			degenerate = true
			continue
		}
		rot[4*col+0] = v[0] / l
		rot[4*col+1] = v[1] / l
		rot[4*col+2] = v[2] / l
	}
	if degenerate {
		t.Rotation = mgl32.QuatIdent()
		return
	}
	t.Rotation = mgl32.Mat4ToQuat(rot).Normalize()
}

// Combine sets this transformation to base followed by other, with other expressed in
// base's space. Rotations and scales multiply; other's translation is carried through
// base's scale and rotation. The result matches base.Mat4() * other.Mat4() exactly when
// base has a uniform scale.
//
// Parameters:
//   - base: the outer transformation
//   - other: the inner transformation
func (t *Transformation) Combine(base, other Transformation) {
	scaled := mgl32.Vec3{
		base.Scale[0] * other.Translation[0],
		base.Scale[1] * other.Translation[1],
		base.Scale[2] * other.Translation[2],
	}
	t.Translation = base.Translation.Add(base.Rotation.Rotate(scaled))
	t.Rotation = base.Rotation.Mul(other.Rotation)
	t.Scale = mgl32.Vec3{
		base.Scale[0] * other.Scale[0],
		base.Scale[1] * other.Scale[1],
		base.Scale[2] * other.Scale[2],
	}
}

// Translate adds scale * translation to the current translation.
func (t *Transformation) Translate(translation mgl32.Vec3, scale float32) {
	t.Translation = t.Translation.Add(translation.Mul(scale))
}

// Rotate applies a further rotation of angle radians about axis, after the current rotation.
func (t *Transformation) Rotate(axis mgl32.Vec3, angle float32) {
	q := mgl32.QuatRotate(angle, axis.Normalize())
	t.Rotation = q.Mul(t.Rotation)
}

// Interpolate sets this transformation between a (at 0) and b (at 1). Translation and
// scale are interpolated linearly, rotation spherically along the shortest arc.
//
// Parameters:
//   - amount: the interpolation factor, normally in [0, 1]
//   - a: the transformation at amount 0
//   - b: the transformation at amount 1
func (t *Transformation) Interpolate(amount float32, a, b Transformation) {
	inv := 1 - amount
	for i := 0; i < 3; i++ {
		t.Translation[i] = inv*a.Translation[i] + amount*b.Translation[i]
		t.Scale[i] = inv*a.Scale[i] + amount*b.Scale[i]
	}
	t.Rotation = Slerp(a.Rotation, b.Rotation, amount)
}

// Distance returns an approximate distance between two transformations: the sum of the
// translation distance, the scale distance and the quaternion distance. It is zero only
// for equivalent transformations and is meant for thresholds, not geometry.
//
// Parameters:
//   - other: the transformation to compare with
//
// Returns:
//   - float32: the approximate distance
func (t Transformation) Distance(other Transformation) float32 {
	td := t.Translation.Sub(other.Translation).Len()
	sd := t.Scale.Sub(other.Scale).Len()
	return td + sd + QuatDistance(t.Rotation, other.Rotation)
}

func (t Transformation) String() string {
	return fmt.Sprintf("Transform +%v:@[%g %g %g %g]:*%v",
		t.Translation, t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W, t.Scale)
}

// Slerp spherically interpolates between two rotations along the shortest arc.
// mgl32.QuatSlerp does not flip hemispheres, so q2 is negated when the rotations are
// more than 90 degrees apart in quaternion space.
//
// Parameters:
//   - q1: the rotation at amount 0
//   - q2: the rotation at amount 1
//   - amount: the interpolation factor
//
// Returns:
//   - mgl32.Quat: the interpolated unit quaternion
func Slerp(q1, q2 mgl32.Quat, amount float32) mgl32.Quat {
	if q1.Dot(q2) < 0 {
		q2 = q2.Scale(-1)
	}
	return mgl32.QuatSlerp(q1, q2, amount).Normalize()
}

// QuatDistance is the Euclidean distance between two unit quaternions, taking the
// double cover into account so q and -q are at distance zero.
func QuatDistance(q1, q2 mgl32.Quat) float32 {
	d := q1.Sub(q2).Len()
	s := q1.Add(q2).Len()
	return float32(math.Min(float64(d), float64(s)))
}
