package math

import "fmt"

// Basis identifies the coordinate convention of source data. Output is always
// right-handed Y-up.
type Basis int

const (
	BasisYUp Basis = iota // Already in output space
	BasisZUp              // Right-handed Z-up (Blender and most DCC tools)
)

// String returns the basis name as used in config and scene files.
func (b Basis) String() string {
	switch b {
	case BasisYUp:
		return "y"
	case BasisZUp:
		return "z"
	default:
		return fmt.Sprintf("Unknown(%d)", int(b))
	}
}

// ParseBasis parses an up axis name ("y", "z", "y-up", "z-up").
func ParseBasis(s string) (Basis, error) {
	switch s {
	case "y", "Y", "y-up", "Y-up", "yup":
		return BasisYUp, nil
	case "z", "Z", "z-up", "Z-up", "zup":
		return BasisZUp, nil
	}
	return 0, fmt.Errorf("unknown up axis %q", s)
}

// Point converts a position or direction into output space.
// Z-up maps (x, y, z) to (x, z, -y).
func (b Basis) Point(v Vec3) Vec3 {
	if b == BasisZUp {
		return Vec3{v.X, v.Z, -v.Y}
	}
	return v
}

// Rotation converts a quaternion into output space. The vector part follows
// Point and w is unchanged, which keeps handedness.
func (b Basis) Rotation(q Quat) Quat {
	if b == BasisZUp {
		return Quat{X: q.X, Y: q.Z, Z: -q.Y, W: q.W}
	}
	return q
}

// Scale converts a per-axis scale into output space. Scale has no sign, so
// only the axes are permuted.
func (b Basis) Scale(s Vec3) Vec3 {
	if b == BasisZUp {
		return Vec3{s.X, s.Z, s.Y}
	}
	return s
}
