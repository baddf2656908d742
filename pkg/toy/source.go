package toy

import (
	"fmt"

	tmath "github.com/Faultbox/toyexport/pkg/math"
)

// The types in this file describe already extracted scene data, the input
// side of an export. Extraction adapters (authoring tool dumps, glTF files)
// build a Project; the exporter never looks at a tool's object model.
//
// Identity matters: a *MeshSource referenced by several objects or scenes is
// encoded once, and an *Object listed in several scenes gets one entity id.

// ObjectKind classifies scene objects.
type ObjectKind int

const (
	ObjectEmpty    ObjectKind = iota // Transform only
	ObjectMesh                       // References a MeshSource
	ObjectArmature                   // Skeleton; encoded with its mesh, not as an entity
)

// String returns a human-readable kind name.
func (k ObjectKind) String() string {
	switch k {
	case ObjectEmpty:
		return "empty"
	case ObjectMesh:
		return "mesh"
	case ObjectArmature:
		return "armature"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Project is everything one export writes.
type Project struct {
	Up     tmath.Basis // Coordinate convention of all source data
	Scenes []*SceneSource
}

// SceneSource is a named, ordered list of objects.
type SceneSource struct {
	Name    string
	Objects []*Object
}

// Object is a scene graph node with a local transform.
type Object struct {
	Name     string
	Kind     ObjectKind
	Mesh     *MeshSource // Set for ObjectMesh
	Location tmath.Vec3
	Rotation tmath.Quat
	Scale    tmath.Vec3
}

// MeshSource is triangulated, deformation-baked geometry in object space.
type MeshSource struct {
	Name        string
	ColorLayers []string // Names of the per-corner color layers, in order
	Faces       []Face
	Groups      []string        // Vertex group names, indexed by GroupWeight.Group
	Armature    *ArmatureSource // Optional skeleton deforming this mesh
}

// Face is one polygon as the list of its corners. Only triangles can be
// encoded.
type Face []RawVertex

// RawVertex is a face corner before welding.
type RawVertex struct {
	Position tmath.Vec3
	Colors   []tmath.Vec4 // One RGBA value per color layer
	Weights  []GroupWeight
}

// GroupWeight is a vertex group influence.
type GroupWeight struct {
	Group  int
	Weight float32
}

// ArmatureSource is a skeleton in rest pose plus the animations that fit it.
type ArmatureSource struct {
	Bones      []BoneRest
	Animations []Animation
}

// BoneRest is a bone's rest pose in the deformed mesh's object space.
type BoneRest struct {
	Name string
	Head tmath.Vec3
	Tail tmath.Vec3
}

// Bone returns the bone record with positions converted by basis.
func (b BoneRest) Bone(basis tmath.Basis) Bone {
	return Bone{Name: b.Name, Head: basis.Point(b.Head), Tail: basis.Point(b.Tail)}
}

// FaceCount returns the number of faces.
func (m *MeshSource) FaceCount() int {
	return len(m.Faces)
}

// CornerCount returns the number of face corners.
func (m *MeshSource) CornerCount() int {
	n := 0
	for _, f := range m.Faces {
		n += len(f)
	}
	return n
}
