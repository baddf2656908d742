package gltfscene

import (
	"sort"

	"github.com/qmuntal/gltf"

	tmath "github.com/Faultbox/toyexport/pkg/math"
)

// track is one animated property of a joint.
type track struct {
	times  []float32
	interp gltf.Interpolation
	vec3   [][3]float32
	quat   [][4]float32
}

// span finds the keys around t and the blend factor between them. Times
// outside the track clamp to the first or last key.
func (tr *track) span(t float32) (i0, i1 int, f float32) {
	last := len(tr.times) - 1
	if t <= tr.times[0] {
		return 0, 0, 0
	}
	if t >= tr.times[last] {
		return last, last, 0
	}

	i1 = sort.Search(len(tr.times), func(i int) bool { return tr.times[i] > t })
	i0 = i1 - 1
	if tr.interp == gltf.InterpolationStep {
		return i0, i0, 0
	}
	if d := tr.times[i1] - tr.times[i0]; d > 0 {
		f = (t - tr.times[i0]) / d
	}
	return i0, i1, f
}

// key maps a keyframe index to its value index. Cubic spline samplers store
// in-tangent, value and out-tangent per key.
func (tr *track) key(i int) int {
	if tr.interp == gltf.InterpolationCubicSpline {
		return i*3 + 1
	}
	return i
}

// vec3At samples a translation or scale track, or returns def for a nil
// track.
func (tr *track) vec3At(t float32, def tmath.Vec3) tmath.Vec3 {
	if tr == nil || tr.vec3 == nil {
		return def
	}
	i0, i1, f := tr.span(t)
	a := tmath.Vec3FromArray(tr.vec3[tr.key(i0)])
	return a.Lerp(tmath.Vec3FromArray(tr.vec3[tr.key(i1)]), f)
}

// quatAt samples a rotation track with spherical interpolation, or returns
// def for a nil track.
func (tr *track) quatAt(t float32, def tmath.Quat) tmath.Quat {
	if tr == nil || tr.quat == nil {
		return def
	}
	i0, i1, f := tr.span(t)
	a, b := tr.quat[tr.key(i0)], tr.quat[tr.key(i1)]
	qa := tmath.Quat{X: a[0], Y: a[1], Z: a[2], W: a[3]}
	if i0 == i1 {
		return qa.Normalize()
	}
	qb := tmath.Quat{X: b[0], Y: b[1], Z: b[2], W: b[3]}
	return qa.Slerp(qb, f)
}
