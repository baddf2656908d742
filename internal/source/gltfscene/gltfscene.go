// Package gltfscene converts glTF 2.0 documents (.gltf and .glb) into a
// toy.Project.
//
// glTF is Y-up, so no axis conversion happens. Each (mesh, skin) pair
// becomes one MeshSource, skins become armatures with baked animations, and
// the node tree of every scene is flattened into objects with local
// transforms.
package gltfscene

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	tmath "github.com/Faultbox/toyexport/pkg/math"
	"github.com/Faultbox/toyexport/pkg/toy"
)

var (
	ErrSceneNotFound   = errors.New("scene not found")
	ErrInvalidDocument = errors.New("invalid glTF document")
)

// DefaultFPS is the animation sampling rate when Options.FPS is unset.
const DefaultFPS = 24

// Options controls conversion.
type Options struct {
	FPS    float32 // Animation sampling rate
	Scene  string  // Convert only the scene with this name
	Logger *zap.Logger
}

// Load opens a .gltf or .glb file and converts it.
func Load(path string, opts Options) (*toy.Project, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	p, err := Convert(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Convert builds a project from a decoded document.
func Convert(doc *gltf.Document, opts Options) (*toy.Project, error) {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	c := &converter{
		doc:       doc,
		opts:      opts,
		log:       log,
		parents:   make(map[uint32]uint32),
		joints:    make(map[uint32]bool),
		meshes:    make(map[meshKey]*toy.MeshSource),
		armatures: make(map[uint32]*toy.ArmatureSource),
		objects:   make(map[uint32]*toy.Object),
	}
	if err := c.index(); err != nil {
		return nil, err
	}

	p := &toy.Project{Up: tmath.BasisYUp}
	roots, err := c.sceneRoots()
	if err != nil {
		return nil, err
	}
	for _, sr := range roots {
		scene := &toy.SceneSource{Name: sr.name}
		if err := c.walk(sr.nodes, scene); err != nil {
			return nil, fmt.Errorf("scene %q: %w", sr.name, err)
		}
		p.Scenes = append(p.Scenes, scene)
	}

	log.Debug("converted glTF document",
		zap.Int("scenes", len(p.Scenes)),
		zap.Int("meshes", len(c.meshes)),
		zap.Int("armatures", len(c.armatures)),
		zap.Int("objects", len(c.objects)))
	return p, nil
}

// meshKey identifies one exported mesh: a glTF mesh as deformed by one skin.
type meshKey struct {
	mesh    uint32
	skin    uint32
	skinned bool
}

type converter struct {
	doc  *gltf.Document
	opts Options
	log  *zap.Logger

	parents map[uint32]uint32 // child node to parent node
	joints  map[uint32]bool   // nodes used as a joint by any skin

	meshes    map[meshKey]*toy.MeshSource
	armatures map[uint32]*toy.ArmatureSource // by skin index
	objects   map[uint32]*toy.Object         // by node index
}

// index records the parent of every node and the set of joint nodes.
func (c *converter) index() error {
	n := uint32(len(c.doc.Nodes))
	for i, node := range c.doc.Nodes {
		for _, child := range node.Children {
			if child >= n {
				return fmt.Errorf("%w: node %d has child %d of %d", ErrInvalidDocument, i, child, n)
			}
			if _, dup := c.parents[child]; dup {
				return fmt.Errorf("%w: node %d has two parents", ErrInvalidDocument, child)
			}
			c.parents[child] = uint32(i)
		}
	}
	for i := range c.doc.Nodes {
		steps := uint32(0)
		for p, ok := c.parents[uint32(i)]; ok; p, ok = c.parents[p] {
			if steps++; steps > n {
				return fmt.Errorf("%w: node %d is its own ancestor", ErrInvalidDocument, i)
			}
		}
	}
	for si, skin := range c.doc.Skins {
		for _, j := range skin.Joints {
			if j >= n {
				return fmt.Errorf("%w: skin %d joint %d of %d", ErrInvalidDocument, si, j, n)
			}
			c.joints[j] = true
		}
	}
	return nil
}

type sceneRoot struct {
	name  string
	nodes []uint32
}

// sceneRoots lists the scenes to convert. A document without scenes is
// treated as one scene holding every root node.
func (c *converter) sceneRoots() ([]sceneRoot, error) {
	if len(c.doc.Scenes) == 0 {
		if c.opts.Scene != "" {
			return nil, fmt.Errorf("%w: %q (document has no scenes)", ErrSceneNotFound, c.opts.Scene)
		}
		var roots []uint32
		for i := range c.doc.Nodes {
			if _, ok := c.parents[uint32(i)]; !ok {
				roots = append(roots, uint32(i))
			}
		}
		return []sceneRoot{{name: "Scene", nodes: roots}}, nil
	}

	var out []sceneRoot
	for i, s := range c.doc.Scenes {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("scene_%d", i)
		}
		if c.opts.Scene != "" && name != c.opts.Scene {
			continue
		}
		out = append(out, sceneRoot{name: name, nodes: s.Nodes})
	}
	if c.opts.Scene != "" && len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrSceneNotFound, c.opts.Scene)
	}
	return out, nil
}

// walk appends the objects of a node tree in depth-first order.
func (c *converter) walk(nodes []uint32, scene *toy.SceneSource) error {
	for _, idx := range nodes {
		if int(idx) >= len(c.doc.Nodes) {
			return fmt.Errorf("%w: node %d of %d", ErrInvalidDocument, idx, len(c.doc.Nodes))
		}
		obj, err := c.object(idx)
		if err != nil {
			return err
		}
		scene.Objects = append(scene.Objects, obj)
		if err := c.walk(c.doc.Nodes[idx].Children, scene); err != nil {
			return err
		}
	}
	return nil
}

// object returns the object of a node, creating it on first use so a node
// reached from several scenes is one object.
func (c *converter) object(idx uint32) (*toy.Object, error) {
	if obj, ok := c.objects[idx]; ok {
		return obj, nil
	}

	node := c.doc.Nodes[idx]
	t, r, s := nodeTRS(node)
	obj := &toy.Object{
		Name:     nodeName(node, idx),
		Kind:     toy.ObjectEmpty,
		Location: t,
		Rotation: r,
		Scale:    s,
	}

	switch {
	case c.joints[idx]:
		obj.Kind = toy.ObjectArmature
	case node.Mesh != nil:
		key := meshKey{mesh: *node.Mesh}
		if node.Skin != nil {
			key.skin, key.skinned = *node.Skin, true
		}
		mesh, err := c.mesh(key)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", obj.Name, err)
		}
		obj.Kind = toy.ObjectMesh
		obj.Mesh = mesh
	}

	c.objects[idx] = obj
	return obj, nil
}

// nodeTRS returns the local transform of a node, decomposing its matrix
// when one is set instead of TRS.
func nodeTRS(node *gltf.Node) (tmath.Vec3, tmath.Quat, tmath.Vec3) {
	if m := tmath.Mat4(node.MatrixOrDefault()); m != tmath.Identity() {
		return m.Decompose()
	}
	r := node.RotationOrDefault()
	return tmath.Vec3FromArray(node.TranslationOrDefault()),
		tmath.Quat{X: r[0], Y: r[1], Z: r[2], W: r[3]},
		tmath.Vec3FromArray(node.ScaleOrDefault())
}

// worldMatrix returns the node's transform relative to the scene root.
func (c *converter) worldMatrix(idx uint32) tmath.Mat4 {
	t, r, s := nodeTRS(c.doc.Nodes[idx])
	m := tmath.FromTRS(t, r, s)
	for parent, ok := c.parents[idx]; ok; parent, ok = c.parents[parent] {
		pt, pr, ps := nodeTRS(c.doc.Nodes[parent])
		m = tmath.FromTRS(pt, pr, ps).Mul(m)
	}
	return m
}

func nodeName(node *gltf.Node, idx uint32) string {
	if node.Name != "" {
		return node.Name
	}
	return fmt.Sprintf("node_%d", idx)
}

func (c *converter) accessor(idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d of %d", ErrInvalidDocument, idx, len(c.doc.Accessors))
	}
	return c.doc.Accessors[idx], nil
}
