// Package yamlscene loads a scene dump written as YAML into a toy.Project.
//
// Meshes, armatures and objects are declared once and referenced by name, so
// a mesh used by several objects, or an object listed in several scenes,
// resolves to the same pointer and is written once by the exporter.
//
//	up: z
//	meshes:
//	  - name: Tri
//	    color_layers: [color]
//	    vertices:
//	      - {position: [0, 0, 0]}
//	      - {position: [1, 0, 0]}
//	      - {position: [0, 1, 0]}
//	    faces:
//	      - [{v: 0, colors: [[1, 0, 0, 1]]}, {v: 1, colors: [[0, 1, 0, 1]]}, {v: 2, colors: [[0, 0, 1, 1]]}]
//	objects:
//	  - {name: Tri, mesh: Tri, location: [0, 0, 1]}
//	scenes:
//	  - {name: main, objects: [Tri]}
package yamlscene

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	tmath "github.com/Faultbox/toyexport/pkg/math"
	"github.com/Faultbox/toyexport/pkg/toy"
)

var (
	ErrUnknownReference = errors.New("unknown reference")
	ErrDuplicateName    = errors.New("duplicate name")
	ErrInvalidDocument  = errors.New("invalid scene document")
)

// Load reads a YAML scene dump from path.
func Load(path string, log *zap.Logger) (*toy.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Decode(f, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode reads a YAML scene dump from r.
func Decode(r io.Reader, log *zap.Logger) (*toy.Project, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &toy.Project{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	b := &builder{
		log:       log,
		armatures: make(map[string]*toy.ArmatureSource),
		meshes:    make(map[string]*toy.MeshSource),
		objects:   make(map[string]*toy.Object),
	}
	return b.build(&doc)
}

type builder struct {
	log       *zap.Logger
	armatures map[string]*toy.ArmatureSource
	meshes    map[string]*toy.MeshSource
	objects   map[string]*toy.Object
}

func (b *builder) build(doc *document) (*toy.Project, error) {
	p := &toy.Project{Up: tmath.BasisZUp}
	if doc.Up != "" {
		up, err := tmath.ParseBasis(doc.Up)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		p.Up = up
	}

	for i := range doc.Armatures {
		a := &doc.Armatures[i]
		if _, dup := b.armatures[a.Name]; dup {
			return nil, fmt.Errorf("%w: armature %q", ErrDuplicateName, a.Name)
		}
		b.armatures[a.Name] = buildArmature(a)
	}

	for i := range doc.Meshes {
		m := &doc.Meshes[i]
		if _, dup := b.meshes[m.Name]; dup {
			return nil, fmt.Errorf("%w: mesh %q", ErrDuplicateName, m.Name)
		}
		mesh, err := b.buildMesh(m)
		if err != nil {
			return nil, fmt.Errorf("mesh %q: %w", m.Name, err)
		}
		b.meshes[m.Name] = mesh
	}

	for i := range doc.Objects {
		o := &doc.Objects[i]
		if _, dup := b.objects[o.Name]; dup {
			return nil, fmt.Errorf("%w: object %q", ErrDuplicateName, o.Name)
		}
		obj, err := b.buildObject(o)
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", o.Name, err)
		}
		b.objects[o.Name] = obj
	}

	for _, s := range doc.Scenes {
		scene := &toy.SceneSource{Name: s.Name}
		for _, name := range s.Objects {
			obj, ok := b.objects[name]
			if !ok {
				return nil, fmt.Errorf("scene %q: %w: object %q", s.Name, ErrUnknownReference, name)
			}
			scene.Objects = append(scene.Objects, obj)
		}
		p.Scenes = append(p.Scenes, scene)
	}

	b.log.Debug("decoded scene dump",
		zap.Stringer("up", p.Up),
		zap.Int("meshes", len(b.meshes)),
		zap.Int("armatures", len(b.armatures)),
		zap.Int("objects", len(b.objects)),
		zap.Int("scenes", len(p.Scenes)))
	return p, nil
}

func buildArmature(a *armatureDoc) *toy.ArmatureSource {
	arm := &toy.ArmatureSource{}
	for _, bd := range a.Bones {
		arm.Bones = append(arm.Bones, toy.BoneRest{
			Name: bd.Name,
			Head: tmath.Vec3(bd.Head),
			Tail: tmath.Vec3(bd.Tail),
		})
	}

	one := tmath.Vec3{X: 1, Y: 1, Z: 1}
	for _, ad := range a.Actions {
		anim := toy.Animation{Name: ad.Name, FPS: ad.FPS}
		for _, cd := range ad.Channels {
			ch := toy.AnimationChannel{Bone: cd.Bone, Frames: make([]toy.Frame, len(cd.Frames))}
			for i, fd := range cd.Frames {
				ch.Frames[i] = toy.Frame{
					Position: fd.Location.vec(tmath.Vec3{}),
					Rotation: fd.Rotation.quat(),
					Scale:    fd.Scale.vec(one),
				}
			}
			anim.Channels = append(anim.Channels, ch)
		}
		arm.Animations = append(arm.Animations, anim)
	}
	return arm
}

func (b *builder) buildMesh(m *meshDoc) (*toy.MeshSource, error) {
	mesh := &toy.MeshSource{
		Name:        m.Name,
		ColorLayers: m.ColorLayers,
		Groups:      m.Groups,
	}

	if m.Armature != "" {
		arm, ok := b.armatures[m.Armature]
		if !ok {
			return nil, fmt.Errorf("%w: armature %q", ErrUnknownReference, m.Armature)
		}
		mesh.Armature = arm
	}

	groupIndex := make(map[string]int, len(m.Groups))
	for i, g := range m.Groups {
		groupIndex[g] = i
	}
	weights := func(wd []weightDoc) ([]toy.GroupWeight, error) {
		var out []toy.GroupWeight
		for _, w := range wd {
			idx, ok := groupIndex[w.Group]
			if !ok {
				return nil, fmt.Errorf("%w: vertex group %q", ErrUnknownReference, w.Group)
			}
			out = append(out, toy.GroupWeight{Group: idx, Weight: w.Weight})
		}
		return out, nil
	}

	for fi, fd := range m.Faces {
		face := make(toy.Face, len(fd))
		for ci, cd := range fd {
			var (
				v   toy.RawVertex
				err error
			)
			switch {
			case cd.V != nil:
				if *cd.V < 0 || *cd.V >= len(m.Vertices) {
					return nil, fmt.Errorf("%w: face %d corner %d: vertex %d of %d",
						ErrUnknownReference, fi, ci, *cd.V, len(m.Vertices))
				}
				vd := m.Vertices[*cd.V]
				v.Position = tmath.Vec3(vd.Position)
				v.Weights, err = weights(vd.Weights)
			case cd.Position != nil:
				v.Position = tmath.Vec3(*cd.Position)
				v.Weights, err = weights(cd.Weights)
			default:
				return nil, fmt.Errorf("%w: face %d corner %d has neither v nor position",
					ErrInvalidDocument, fi, ci)
			}
			if err != nil {
				return nil, fmt.Errorf("face %d corner %d: %w", fi, ci, err)
			}

			v.Colors = make([]tmath.Vec4, len(cd.Colors))
			for i, c := range cd.Colors {
				v.Colors[i] = tmath.Vec4(c)
			}
			face[ci] = v
		}
		mesh.Faces = append(mesh.Faces, face)
	}
	return mesh, nil
}

func (b *builder) buildObject(o *objectDoc) (*toy.Object, error) {
	obj := &toy.Object{
		Name:     o.Name,
		Location: o.Location.vec(tmath.Vec3{}),
		Rotation: o.Rotation.quat(),
		Scale:    o.Scale.vec(tmath.Vec3{X: 1, Y: 1, Z: 1}),
	}
	if o.Rotation == nil && o.Euler != nil {
		obj.Rotation = tmath.QuatFromEuler(o.Euler.X, o.Euler.Y, o.Euler.Z)
	}

	kind := o.Kind
	if kind == "" {
		kind = "empty"
		if o.Mesh != "" {
			kind = "mesh"
		}
	}

	switch kind {
	case "mesh":
		mesh, ok := b.meshes[o.Mesh]
		if !ok {
			return nil, fmt.Errorf("%w: mesh %q", ErrUnknownReference, o.Mesh)
		}
		obj.Kind = toy.ObjectMesh
		obj.Mesh = mesh
	case "empty":
		obj.Kind = toy.ObjectEmpty
	case "armature":
		obj.Kind = toy.ObjectArmature
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidDocument, o.Kind)
	}

	if obj.Kind != toy.ObjectMesh && o.Mesh != "" {
		b.log.Warn("ignoring mesh on non-mesh object",
			zap.String("object", o.Name),
			zap.String("kind", kind))
	}
	return obj, nil
}
