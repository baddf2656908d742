package toy

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/toyexport/pkg/encoding"
	tmath "github.com/Faultbox/toyexport/pkg/math"
)

// CollectOptions controls how source meshes become encodable meshes.
type CollectOptions struct {
	Basis        tmath.Basis
	LinearColors bool // Convert color layers from sRGB to linear
	Logger       *zap.Logger
}

// CollectMesh welds a source mesh, converts it to output space and, when the
// mesh is deformed by an armature, builds its bone table, weights and
// animations.
func CollectMesh(src *MeshSource, opts CollectOptions) (*Mesh, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("mesh", src.Name))

	corners := make([]RawVertex, 0, src.CornerCount())
	for i, f := range src.Faces {
		if len(f) != 3 {
			return nil, fmt.Errorf("%w: face %d has %d corners", ErrNonTriangularFace, i, len(f))
		}
		for _, c := range f {
			if len(c.Colors) != len(src.ColorLayers) {
				return nil, fmt.Errorf("%w: face %d corner has %d colors, mesh has %d layers",
					ErrColorLayerMismatch, i, len(c.Colors), len(src.ColorLayers))
			}
			corners = append(corners, c)
		}
	}

	verts, indices, err := Weld(corners)
	if err != nil {
		return nil, err
	}

	mesh := &Mesh{
		Name:      src.Name,
		Positions: make([]tmath.Vec3, len(verts)),
		Indices:   indices,
	}
	for i, v := range verts {
		mesh.Positions[i] = opts.Basis.Point(v.Position)
	}

	for layer, name := range src.ColorLayers {
		values := make([]tmath.Vec4, len(verts))
		for i, v := range verts {
			c := v.Colors[layer]
			if opts.LinearColors {
				c = tmath.SRGBToLinear(c)
			}
			values[i] = c
		}
		mesh.ColorLayers = append(mesh.ColorLayers, ColorLayer{
			Name:   encoding.NormalizeName(name),
			Values: values,
		})
	}

	if src.Armature != nil && len(src.Groups) > 0 {
		skin, err := collectSkin(verts, src, opts.Basis, log)
		if err != nil {
			return nil, err
		}
		mesh.Skin = skin
	}

	fields := []zap.Field{
		zap.Int("corners", len(corners)),
		zap.Int("vertices", len(mesh.Positions)),
		zap.Int("triangles", mesh.TriangleCount()),
		zap.Int("color_layers", len(mesh.ColorLayers)),
	}
	if mesh.Skin != nil {
		fields = append(fields,
			zap.Int("bones", len(mesh.Skin.Bones)),
			zap.Int("animations", len(mesh.Skin.Animations)))
	}
	log.Debug("collected mesh", fields...)

	return mesh, nil
}

func collectSkin(verts []WeldedVertex, src *MeshSource, basis tmath.Basis, log *zap.Logger) (*Skin, error) {
	groups := make([]string, len(src.Groups))
	copy(groups, src.Groups)
	encoding.NormalizeNames(groups)

	arm := &ArmatureSource{
		Bones:      make([]BoneRest, len(src.Armature.Bones)),
		Animations: src.Armature.Animations,
	}
	for i, b := range src.Armature.Bones {
		b.Name = encoding.NormalizeName(b.Name)
		arm.Bones[i] = b
	}

	bones, weights, err := remapBones(verts, groups, arm, basis, log)
	if err != nil {
		return nil, err
	}

	return &Skin{
		Bones:      bones,
		Weights:    weights,
		Animations: collectAnimations(arm.Animations, bones, basis, log),
	}, nil
}

// WriteMesh writes a MESH section. Skinned meshes get a nested WEIG section
// followed by a nested ANMS section.
func WriteMesh(w *Writer, m *Mesh) error {
	if err := validateMesh(m); err != nil {
		err = fmt.Errorf("mesh %q: %w", m.Name, err)
		w.fail(err)
		return err
	}

	vcount := len(m.Positions)

	w.StartSection(TagMesh)

	w.WriteU16(vcount)
	for _, p := range m.Positions {
		w.WriteV3(p)
	}

	w.WriteU16(m.TriangleCount())
	if vcount < byteIndexLimit {
		for _, idx := range m.Indices {
			w.WriteU8(idx)
		}
	} else {
		for _, idx := range m.Indices {
			w.WriteU16(idx)
		}
	}

	w.WriteU8(len(m.ColorLayers))
	for _, layer := range m.ColorLayers {
		w.WriteTag(TagMeshData)
		w.WriteString(layer.Name)
		w.WriteU16(len(layer.Values))
		for _, c := range layer.Values {
			w.WriteV4(c)
		}
	}

	if m.Skin != nil {
		if err := writeSkin(w, m.Skin); err != nil {
			return fmt.Errorf("mesh %q: %w", m.Name, err)
		}
		if err := WriteAnimations(w, m.Skin.Animations); err != nil {
			return fmt.Errorf("mesh %q: %w", m.Name, err)
		}
	}

	w.EndSection()

	if err := w.Err(); err != nil {
		return fmt.Errorf("mesh %q: %w", m.Name, err)
	}
	return nil
}

func validateMesh(m *Mesh) error {
	vcount := len(m.Positions)
	if vcount > MaxVertices {
		return fmt.Errorf("%w: %d", ErrTooManyVertices, vcount)
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices", ErrNonTriangularFace, len(m.Indices))
	}
	if m.TriangleCount() > MaxTriangles {
		return fmt.Errorf("%w: %d", ErrTooManyTriangles, m.TriangleCount())
	}
	for i, idx := range m.Indices {
		if idx < 0 || idx >= vcount {
			return fmt.Errorf("%w: index %d is %d, mesh has %d vertices", ErrValueOutOfRange, i, idx, vcount)
		}
	}
	for _, layer := range m.ColorLayers {
		if len(layer.Values) != vcount {
			return fmt.Errorf("%w: layer %q has %d values for %d vertices",
				ErrColorLayerMismatch, layer.Name, len(layer.Values), vcount)
		}
	}
	if m.Skin != nil && len(m.Skin.Weights) != vcount {
		return fmt.Errorf("%w: %d weight lists for %d vertices", ErrValueOutOfRange, len(m.Skin.Weights), vcount)
	}
	return nil
}
