package vmath

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Mat4 is a column-major 4x4 affine transform, same memory layout as glTF "matrix"
type Mat4 = mgl64.Mat4

// Ident4 returns the identity transform
func Ident4() Mat4 {
	return mgl64.Ident4()
}

// MatFromArray builds a transform from 16 column-major components
func MatFromArray(a [16]float64) Mat4 {
	return Mat4(a)
}

// TRS composes T(translation) * R(rotation) * S(scale)
// Nil components default to identity; rotation is a quaternion in [x, y, z, w] order
func TRS(translation *[3]float64, rotation *[4]float64, scale *[3]float64) Mat4 {
	t := mgl64.Ident4()
	if translation != nil {
		t = mgl64.Translate3D(translation[0], translation[1], translation[2])
	}

	r := mgl64.Ident4()
	if rotation != nil {
		q := mgl64.Quat{W: rotation[3], V: mgl64.Vec3{rotation[0], rotation[1], rotation[2]}}
		r = q.Mat4()
	}

	s := mgl64.Ident4()
	if scale != nil {
		s = mgl64.Scale3D(scale[0], scale[1], scale[2])
	}

	return t.Mul4(r).Mul4(s)
}

// Compose returns parent * local
func Compose(parent, local Mat4) Mat4 {
	return parent.Mul4(local)
}

// TransformPoint applies m to a point (w = 1)
func TransformPoint(m Mat4, p Vec3F) Vec3F {
	v := m.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return Vec3F{v[0], v[1], v[2]}
}

// TransformDir applies m to a direction (w = 0), translation is ignored
// Result is not normalized, scale carries through
func TransformDir(m Mat4, d Vec3F) Vec3F {
	v := m.Mul4x1(mgl64.Vec4{d.X, d.Y, d.Z, 0})
	return Vec3F{v[0], v[1], v[2]}
}
