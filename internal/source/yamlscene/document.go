package yamlscene

import (
	"fmt"

	"gopkg.in/yaml.v3"

	tmath "github.com/Faultbox/toyexport/pkg/math"
)

// document is the top-level YAML layout.
type document struct {
	Up        string        `yaml:"up"`
	Meshes    []meshDoc     `yaml:"meshes"`
	Armatures []armatureDoc `yaml:"armatures"`
	Objects   []objectDoc   `yaml:"objects"`
	Scenes    []sceneDoc    `yaml:"scenes"`
}

type meshDoc struct {
	Name        string        `yaml:"name"`
	ColorLayers []string      `yaml:"color_layers"`
	Groups      []string      `yaml:"groups"`
	Armature    string        `yaml:"armature"`
	Vertices    []vertexDoc   `yaml:"vertices"`
	Faces       [][]cornerDoc `yaml:"faces"`
}

// vertexDoc is a shared vertex referenced by corners through "v".
type vertexDoc struct {
	Position vec3Doc     `yaml:"position"`
	Weights  []weightDoc `yaml:"weights"`
}

// cornerDoc is one face corner. Position and weights come from the shared
// vertex when V is set, else from the corner itself.
type cornerDoc struct {
	V        *int        `yaml:"v"`
	Position *vec3Doc    `yaml:"position"`
	Weights  []weightDoc `yaml:"weights"`
	Colors   []vec4Doc   `yaml:"colors"`
}

type weightDoc struct {
	Group  string  `yaml:"group"`
	Weight float32 `yaml:"weight"`
}

type armatureDoc struct {
	Name    string      `yaml:"name"`
	Bones   []boneDoc   `yaml:"bones"`
	Actions []actionDoc `yaml:"actions"`
}

type boneDoc struct {
	Name string  `yaml:"name"`
	Head vec3Doc `yaml:"head"`
	Tail vec3Doc `yaml:"tail"`
}

type actionDoc struct {
	Name     string       `yaml:"name"`
	FPS      float32      `yaml:"fps"`
	Channels []channelDoc `yaml:"channels"`
}

type channelDoc struct {
	Bone   string     `yaml:"bone"`
	Frames []frameDoc `yaml:"frames"`
}

type frameDoc struct {
	Location *vec3Doc `yaml:"location"`
	Rotation *quatDoc `yaml:"rotation"`
	Scale    *vec3Doc `yaml:"scale"`
}

type objectDoc struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"`
	Mesh     string   `yaml:"mesh"`
	Location *vec3Doc `yaml:"location"`
	Rotation *quatDoc `yaml:"rotation"`
	Euler    *vec3Doc `yaml:"euler"` // XYZ radians, used when rotation is absent
	Scale    *vec3Doc `yaml:"scale"`
}

type sceneDoc struct {
	Name    string   `yaml:"name"`
	Objects []string `yaml:"objects"`
}

// vec3Doc is written as a three element sequence: [x, y, z].
type vec3Doc tmath.Vec3

func (v *vec3Doc) UnmarshalYAML(node *yaml.Node) error {
	f, err := decodeFloats(node, 3)
	if err != nil {
		return err
	}
	*v = vec3Doc{X: f[0], Y: f[1], Z: f[2]}
	return nil
}

// vec4Doc is an RGBA color: [r, g, b, a].
type vec4Doc tmath.Vec4

func (v *vec4Doc) UnmarshalYAML(node *yaml.Node) error {
	f, err := decodeFloats(node, 4)
	if err != nil {
		return err
	}
	*v = vec4Doc{f[0], f[1], f[2], f[3]}
	return nil
}

// quatDoc is a quaternion in [x, y, z, w] order.
type quatDoc tmath.Quat

func (q *quatDoc) UnmarshalYAML(node *yaml.Node) error {
	f, err := decodeFloats(node, 4)
	if err != nil {
		return err
	}
	*q = quatDoc{X: f[0], Y: f[1], Z: f[2], W: f[3]}
	return nil
}

func decodeFloats(node *yaml.Node, n int) ([]float32, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a sequence of %d numbers", node.Line, n)
	}
	if len(node.Content) != n {
		return nil, fmt.Errorf("line %d: expected %d numbers, got %d", node.Line, n, len(node.Content))
	}
	var f []float32
	if err := node.Decode(&f); err != nil {
		return nil, err
	}
	return f, nil
}

func (v *vec3Doc) vec(def tmath.Vec3) tmath.Vec3 {
	if v == nil {
		return def
	}
	return tmath.Vec3(*v)
}

func (q *quatDoc) quat() tmath.Quat {
	if q == nil {
		return tmath.QuatIdentity()
	}
	return tmath.Quat(*q)
}
