package toy

import (
	tmath "github.com/Faultbox/toyexport/pkg/math"
)

// Section tags.
const (
	TagMesh       = "MESH"
	TagMeshData   = "MDTA" // Color layer block inside MESH; a bare tag, not a section
	TagWeights    = "WEIG"
	TagAnimations = "ANMS"
	TagAnimation  = "ANIM"
	TagEntity     = "ENTY"
	TagScene      = "SCNE"
)

// Format limits.
const (
	MaxVertices         = 65535
	MaxTriangles        = 65535
	MaxBones            = 255 // The bone count is a single byte
	MaxWeightsPerVertex = 3
	MaxMeshes           = 65535

	// Meshes below this vertex count use 1-byte triangle indices.
	byteIndexLimit = 256
)

// Mesh is a welded mesh ready for encoding, in output space.
type Mesh struct {
	Name        string
	Positions   []tmath.Vec3
	Indices     []int // Three per triangle, into Positions
	ColorLayers []ColorLayer
	Skin        *Skin // Nil for static meshes
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// ColorLayer holds one color per vertex.
type ColorLayer struct {
	Name   string
	Values []tmath.Vec4
}

// Skin is the optional skinning payload of a mesh.
type Skin struct {
	Bones      []Bone
	Weights    [][]BoneWeight // Per vertex, heaviest first, at most MaxWeightsPerVertex
	Animations []Animation
}

// Bone is an entry of a mesh's compact bone table.
type Bone struct {
	Name string
	Head tmath.Vec3
	Tail tmath.Vec3
}

// BoneWeight is a weight against an index into the mesh bone table.
type BoneWeight struct {
	Bone   int
	Weight float32
}

// Animation is a set of per-bone tracks sampled at a fixed rate.
type Animation struct {
	Name     string
	FPS      float32
	Channels []AnimationChannel
}

// AnimationChannel is the sampled track of one bone.
type AnimationChannel struct {
	Bone   string
	Frames []Frame
}

// Frame is a bone's local transform at one sampled frame.
type Frame struct {
	Position tmath.Vec3
	Rotation tmath.Quat
	Scale    tmath.Vec3
}

// Entity is a scene graph node as written to an ENTY section.
type Entity struct {
	Name     string
	ID       int // 1-based, unique per export
	MeshID   int // 0 for none, else 1-based mesh id
	Position tmath.Vec3
	Rotation tmath.Quat
	Scale    tmath.Vec3
}

// Scene lists the entities making up a scene.
type Scene struct {
	Name      string
	EntityIDs []int
}
