package toy

import "errors"

// Encoding errors. All of them abort the export; callers wrap them with the
// offending mesh, animation or value.
var (
	ErrValueOutOfRange    = errors.New("value out of range for field")
	ErrStringTooLong      = errors.New("string too long: must be shorter than 256 bytes")
	ErrInvalidTag         = errors.New("invalid section tag: must be exactly 4 bytes")
	ErrUnbalancedSections = errors.New("unbalanced section stack")
	ErrTooManyVertices    = errors.New("too many vertices: limit is 65535")
	ErrTooManyTriangles   = errors.New("too many triangles: limit is 65535")
	ErrNonTriangularFace  = errors.New("face is not a triangle")
	ErrTooManyBones       = errors.New("too many bones: limit is 255")
	ErrFrameCountMismatch = errors.New("animation channels have different frame counts")
	ErrColorLayerMismatch = errors.New("color layer count does not match mesh layers")
	ErrTooManyMeshes      = errors.New("too many meshes: limit is 65535")
	ErrWriterClosed       = errors.New("writer already closed")
)
