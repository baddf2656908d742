package gltfscene

import (
	"fmt"
	"math"
	"strconv"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	tmath "github.com/Faultbox/toyexport/pkg/math"
	"github.com/Faultbox/toyexport/pkg/toy"
)

// maxColorSets bounds the COLOR_n attributes looked up per primitive.
const maxColorSets = 8

// mesh returns the MeshSource for a (mesh, skin) pair, converting it once.
func (c *converter) mesh(key meshKey) (*toy.MeshSource, error) {
	if m, ok := c.meshes[key]; ok {
		return m, nil
	}
	if int(key.mesh) >= len(c.doc.Meshes) {
		return nil, fmt.Errorf("%w: mesh %d of %d", ErrInvalidDocument, key.mesh, len(c.doc.Meshes))
	}

	gm := c.doc.Meshes[key.mesh]
	src := &toy.MeshSource{Name: gm.Name}
	if src.Name == "" {
		src.Name = fmt.Sprintf("mesh_%d", key.mesh)
	}

	layers := 0
	for _, p := range gm.Primitives {
		if n := colorSets(p); n > layers {
			layers = n
		}
	}
	for i := 0; i < layers; i++ {
		src.ColorLayers = append(src.ColorLayers, colorAttr(i))
	}

	if key.skinned {
		arm, groups, err := c.armature(key.skin)
		if err != nil {
			return nil, err
		}
		src.Armature = arm
		src.Groups = groups
	}

	for pi, p := range gm.Primitives {
		faces, err := c.primitiveFaces(p, layers, key.skinned)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", src.Name, pi, err)
		}
		src.Faces = append(src.Faces, faces...)
	}

	c.log.Debug("converted mesh",
		zap.String("mesh", src.Name),
		zap.Bool("skinned", key.skinned),
		zap.Int("primitives", len(gm.Primitives)),
		zap.Int("faces", src.FaceCount()),
		zap.Int("color_layers", layers))

	c.meshes[key] = src
	return src, nil
}

func colorAttr(i int) string {
	return "COLOR_" + strconv.Itoa(i)
}

// colorSets counts consecutive COLOR_n attributes starting at COLOR_0.
func colorSets(p *gltf.Primitive) int {
	n := 0
	for n < maxColorSets {
		if _, ok := p.Attributes[colorAttr(n)]; !ok {
			break
		}
		n++
	}
	return n
}

// primitiveFaces reads one triangle primitive as faces. Color layers the
// primitive lacks are white.
func (c *converter) primitiveFaces(p *gltf.Primitive, layers int, skinned bool) ([]toy.Face, error) {
	if p.Mode != gltf.PrimitiveTriangles {
		return nil, fmt.Errorf("%w: primitive mode %v", toy.ErrNonTriangularFace, p.Mode)
	}

	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("%w: primitive has no POSITION", ErrInvalidDocument)
	}
	acr, err := c.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(c.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}

	verts := make([]toy.RawVertex, len(positions))
	for i, pos := range positions {
		verts[i].Position = tmath.Vec3FromArray(pos)
		verts[i].Colors = make([]tmath.Vec4, layers)
		for l := range verts[i].Colors {
			verts[i].Colors[l] = tmath.White
		}
	}

	for l := 0; l < colorSets(p); l++ {
		acr, err := c.accessor(p.Attributes[colorAttr(l)])
		if err != nil {
			return nil, err
		}
		colors, err := modeler.ReadColor64(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", colorAttr(l), err)
		}
		if len(colors) != len(verts) {
			return nil, fmt.Errorf("%w: %s has %d values for %d vertices",
				ErrInvalidDocument, colorAttr(l), len(colors), len(verts))
		}
		for i, col := range colors {
			verts[i].Colors[l] = tmath.Vec4{
				float32(col[0]) / math.MaxUint16,
				float32(col[1]) / math.MaxUint16,
				float32(col[2]) / math.MaxUint16,
				float32(col[3]) / math.MaxUint16,
			}
		}
	}

	if skinned {
		if err := c.readWeights(p, verts); err != nil {
			return nil, err
		}
	}

	indices, err := c.primitiveIndices(p, len(verts))
	if err != nil {
		return nil, err
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices", toy.ErrNonTriangularFace, len(indices))
	}

	faces := make([]toy.Face, 0, len(indices)/3)
	for i := 0; i < len(indices); i += 3 {
		face := make(toy.Face, 3)
		for k := 0; k < 3; k++ {
			idx := indices[i+k]
			if int(idx) >= len(verts) {
				return nil, fmt.Errorf("%w: index %d of %d vertices", ErrInvalidDocument, idx, len(verts))
			}
			face[k] = verts[idx]
		}
		faces = append(faces, face)
	}
	return faces, nil
}

// primitiveIndices returns the index buffer, or 0..n-1 for non-indexed
// primitives.
func (c *converter) primitiveIndices(p *gltf.Primitive, n int) ([]uint32, error) {
	if p.Indices == nil {
		indices := make([]uint32, n)
		for i := range indices {
			indices[i] = uint32(i)
		}
		return indices, nil
	}

	acr, err := c.accessor(*p.Indices)
	if err != nil {
		return nil, err
	}
	indices, err := modeler.ReadIndices(c.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading indices: %w", err)
	}
	return indices, nil
}

// readWeights attaches JOINTS_0/WEIGHTS_0 influences. Joint values index the
// skin's joint list, which is also the mesh's group list. Zero weights are
// dropped.
func (c *converter) readWeights(p *gltf.Primitive, verts []toy.RawVertex) error {
	jIdx, hasJoints := p.Attributes[gltf.JOINTS_0]
	wIdx, hasWeights := p.Attributes[gltf.WEIGHTS_0]
	if !hasJoints || !hasWeights {
		return nil
	}

	jAcr, err := c.accessor(jIdx)
	if err != nil {
		return err
	}
	joints, err := modeler.ReadJoints(c.doc, jAcr, nil)
	if err != nil {
		return fmt.Errorf("reading joints: %w", err)
	}

	wAcr, err := c.accessor(wIdx)
	if err != nil {
		return err
	}
	weights, err := modeler.ReadWeights(c.doc, wAcr, nil)
	if err != nil {
		return fmt.Errorf("reading weights: %w", err)
	}

	if len(joints) != len(verts) || len(weights) != len(verts) {
		return fmt.Errorf("%w: %d joints and %d weights for %d vertices",
			ErrInvalidDocument, len(joints), len(weights), len(verts))
	}

	for i := range verts {
		for k := 0; k < 4; k++ {
			if weights[i][k] <= 0 {
				continue
			}
			verts[i].Weights = append(verts[i].Weights, toy.GroupWeight{
				Group:  int(joints[i][k]),
				Weight: weights[i][k],
			})
		}
	}
	return nil
}
