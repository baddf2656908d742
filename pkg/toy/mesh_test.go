package toy

import (
	"bytes"
	"errors"
	"testing"

	tmath "github.com/Faultbox/toyexport/pkg/math"
)

func TestCollectMeshTriangle(t *testing.T) {
	src := &MeshSource{
		Name:        "tri",
		ColorLayers: []string{"color"},
		Faces: []Face{
			triangle(tmath.Vec3{}, tmath.Vec3{X: 1}, tmath.Vec3{Y: 1}, tmath.Vec4{1, 0, 0, 1}),
		},
	}

	m, err := CollectMesh(src, CollectOptions{Basis: tmath.BasisZUp})
	if err != nil {
		t.Fatalf("CollectMesh: %v", err)
	}

	if len(m.Positions) != 3 {
		t.Fatalf("got %d vertices, want 3", len(m.Positions))
	}
	// Z-up (0, 1, 0) becomes (0, 0, -1)
	if m.Positions[2] != (tmath.Vec3{X: 0, Y: 0, Z: -1}) {
		t.Errorf("Positions[2] = %v, want {0 0 -1}", m.Positions[2])
	}
	if m.TriangleCount() != 1 {
		t.Errorf("TriangleCount() = %d, want 1", m.TriangleCount())
	}
	if len(m.ColorLayers) != 1 || m.ColorLayers[0].Name != "color" {
		t.Fatalf("color layers = %+v", m.ColorLayers)
	}
	if m.Skin != nil {
		t.Error("static mesh has a skin")
	}
}

func TestCollectMeshLinearColors(t *testing.T) {
	src := &MeshSource{
		ColorLayers: []string{"color"},
		Faces: []Face{
			triangle(tmath.Vec3{}, tmath.Vec3{X: 1}, tmath.Vec3{Y: 1}, tmath.Vec4{0.5, 1, 0, 0.5}),
		},
	}

	m, err := CollectMesh(src, CollectOptions{LinearColors: true})
	if err != nil {
		t.Fatalf("CollectMesh: %v", err)
	}

	c := m.ColorLayers[0].Values[0]
	if !(c[0] > 0.21 && c[0] < 0.22) {
		t.Errorf("red = %v, want about 0.214", c[0])
	}
	if abs(c[1]-1) > 1e-6 || c[2] != 0 {
		t.Errorf("green/blue = %v/%v, want 1/0", c[1], c[2])
	}
	if c[3] != 0.5 {
		t.Errorf("alpha = %v, want 0.5 unchanged", c[3])
	}
}

func TestCollectMeshErrors(t *testing.T) {
	quad := Face{{}, {Position: tmath.Vec3{X: 1}}, {Position: tmath.Vec3{Y: 1}}, {Position: tmath.Vec3{X: 1, Y: 1}}}

	tests := []struct {
		name    string
		src     *MeshSource
		wantErr error
	}{
		{
			name:    "quad face",
			src:     &MeshSource{Faces: []Face{quad}},
			wantErr: ErrNonTriangularFace,
		},
		{
			name: "missing corner color",
			src: &MeshSource{
				ColorLayers: []string{"color"},
				Faces:       []Face{triangle(tmath.Vec3{}, tmath.Vec3{X: 1}, tmath.Vec3{Y: 1})},
			},
			wantErr: ErrColorLayerMismatch,
		},
		{
			name: "weight references unknown group",
			src: &MeshSource{
				Groups:   []string{"a"},
				Armature: &ArmatureSource{Bones: []BoneRest{{Name: "a"}}},
				Faces: []Face{{
					{Weights: []GroupWeight{{Group: 3, Weight: 1}}},
					{Position: tmath.Vec3{X: 1}},
					{Position: tmath.Vec3{Y: 1}},
				}},
			},
			wantErr: ErrValueOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CollectMesh(tt.src, CollectOptions{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CollectMesh() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCollectMeshSkinRequiresGroups(t *testing.T) {
	src := &MeshSource{
		Armature: &ArmatureSource{Bones: []BoneRest{{Name: "root"}}},
		Faces:    []Face{triangle(tmath.Vec3{}, tmath.Vec3{X: 1}, tmath.Vec3{Y: 1})},
	}

	m, err := CollectMesh(src, CollectOptions{})
	if err != nil {
		t.Fatalf("CollectMesh: %v", err)
	}
	if m.Skin != nil {
		t.Error("mesh without vertex groups got a skin")
	}
}

func TestWriteMeshLayout(t *testing.T) {
	m := &Mesh{
		Name:      "tri",
		Positions: []tmath.Vec3{{}, {X: 1}, {Y: 1}},
		Indices:   []int{0, 1, 2},
		ColorLayers: []ColorLayer{{
			Name:   "color",
			Values: []tmath.Vec4{{1, 0, 0, 1}, {0, 1, 0, 1}, {0, 0, 1, 1}},
		}},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	if err := WriteMesh(w, m); err != nil {
		t.Fatalf("WriteMesh: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := newByteReader(t, buf.Bytes())
	body := r.expectSection(TagMesh)

	if n := body.u16(); n != 3 {
		t.Fatalf("vertex count = %d, want 3", n)
	}
	for i, want := range m.Positions {
		if got := body.v3(); got != want {
			t.Errorf("position %d = %v, want %v", i, got, want)
		}
	}
	if n := body.u16(); n != 1 {
		t.Fatalf("triangle count = %d, want 1", n)
	}
	// Byte indices below 256 vertices
	for i, want := range m.Indices {
		if got := body.u8(); got != want {
			t.Errorf("index %d = %d, want %d", i, got, want)
		}
	}

	if n := body.u8(); n != 1 {
		t.Fatalf("color layer count = %d, want 1", n)
	}
	if tag := body.tag(); tag != TagMeshData {
		t.Fatalf("layer tag = %q, want %q", tag, TagMeshData)
	}
	if name := body.str(); name != "color" {
		t.Errorf("layer name = %q", name)
	}
	if n := body.u16(); n != 3 {
		t.Errorf("layer length = %d, want 3", n)
	}
	for i, want := range m.ColorLayers[0].Values {
		if got := body.v4(); got != want {
			t.Errorf("color %d = %v, want %v", i, got, want)
		}
	}

	if !body.empty() {
		t.Errorf("%d trailing bytes in static MESH", len(body.buf))
	}
}

func TestWriteMeshWideIndices(t *testing.T) {
	const vcount = byteIndexLimit
	m := &Mesh{Name: "wide", Positions: make([]tmath.Vec3, vcount)}
	for i := range m.Positions {
		m.Positions[i] = tmath.Vec3{X: float32(i)}
	}
	m.Indices = []int{0, 1, vcount - 1}

	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	if err := WriteMesh(w, m); err != nil {
		t.Fatalf("WriteMesh: %v", err)
	}
	w.Close()

	r := newByteReader(t, buf.Bytes())
	body := r.expectSection(TagMesh)
	body.u16()
	body.take(vcount * 12)
	body.u16()
	for i, want := range m.Indices {
		if got := body.u16(); got != want {
			t.Errorf("index %d = %d, want %d", i, got, want)
		}
	}
	if n := body.u8(); n != 0 {
		t.Errorf("color layer count = %d, want 0", n)
	}
	if !body.empty() {
		t.Errorf("%d trailing bytes", len(body.buf))
	}
}

func TestWriteMeshValidation(t *testing.T) {
	tests := []struct {
		name    string
		mesh    *Mesh
		wantErr error
	}{
		{
			name:    "index out of range",
			mesh:    &Mesh{Positions: make([]tmath.Vec3, 3), Indices: []int{0, 1, 3}},
			wantErr: ErrValueOutOfRange,
		},
		{
			name:    "partial triangle",
			mesh:    &Mesh{Positions: make([]tmath.Vec3, 3), Indices: []int{0, 1}},
			wantErr: ErrNonTriangularFace,
		},
		{
			name: "short color layer",
			mesh: &Mesh{
				Positions:   make([]tmath.Vec3, 3),
				Indices:     []int{0, 1, 2},
				ColorLayers: []ColorLayer{{Name: "c", Values: make([]tmath.Vec4, 2)}},
			},
			wantErr: ErrColorLayerMismatch,
		},
		{
			name:    "too many vertices",
			mesh:    &Mesh{Positions: make([]tmath.Vec3, MaxVertices+1)},
			wantErr: ErrTooManyVertices,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, false)
			if err := WriteMesh(w, tt.mesh); !errors.Is(err, tt.wantErr) {
				t.Errorf("WriteMesh() error = %v, want %v", err, tt.wantErr)
			}
			if err := w.Close(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Close() error = %v, want %v", err, tt.wantErr)
			}
			if buf.Len() != 0 {
				t.Errorf("wrote %d bytes, want none", buf.Len())
			}
		})
	}
}

func TestWriteMeshReportsNestedErrorOnClose(t *testing.T) {
	m := &Mesh{
		Name:      "limb",
		Positions: make([]tmath.Vec3, 3),
		Indices:   []int{0, 1, 2},
		Skin: &Skin{
			Bones:   []Bone{{Name: "root"}, {Name: "tip"}},
			Weights: make([][]BoneWeight, 3),
			Animations: []Animation{{
				Name: "bend",
				Channels: []AnimationChannel{
					{Bone: "root", Frames: restFrames(2, tmath.Vec3{})},
					{Bone: "tip", Frames: restFrames(3, tmath.Vec3{})},
				},
			}},
		},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	if err := WriteMesh(w, m); !errors.Is(err, ErrFrameCountMismatch) {
		t.Fatalf("WriteMesh() = %v, want ErrFrameCountMismatch", err)
	}
	if !errors.Is(w.Err(), ErrFrameCountMismatch) {
		t.Errorf("Err() = %v, want ErrFrameCountMismatch", w.Err())
	}
	// MESH is still open; Close reports the cause, not the open section
	err := w.Close()
	if !errors.Is(err, ErrFrameCountMismatch) || errors.Is(err, ErrUnbalancedSections) {
		t.Errorf("Close() = %v, want ErrFrameCountMismatch", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes, want none", buf.Len())
	}
}

func TestWriteSkinnedMesh(t *testing.T) {
	arm := &ArmatureSource{
		Bones: []BoneRest{
			{Name: "root", Tail: tmath.Vec3{Z: 1}},
			{Name: "tip", Head: tmath.Vec3{Z: 1}, Tail: tmath.Vec3{Z: 2}},
		},
		Animations: []Animation{{
			Name: "bend",
			FPS:  24,
			Channels: []AnimationChannel{
				{Bone: "tip", Frames: restFrames(3, tmath.Vec3{})},
				{Bone: "root", Frames: restFrames(3, tmath.Vec3{})},
			},
		}},
	}
	root := []GroupWeight{{Group: 0, Weight: 1}}
	tip := []GroupWeight{{Group: 1, Weight: 0.75}, {Group: 0, Weight: 0.25}}
	src := &MeshSource{
		Name:     "limb",
		Groups:   []string{"root", "tip"},
		Armature: arm,
		Faces: []Face{{
			{Position: tmath.Vec3{}, Weights: root},
			{Position: tmath.Vec3{X: 1}, Weights: root},
			{Position: tmath.Vec3{Z: 2}, Weights: tip},
		}},
	}

	m, err := CollectMesh(src, CollectOptions{Basis: tmath.BasisZUp})
	if err != nil {
		t.Fatalf("CollectMesh: %v", err)
	}
	if m.Skin == nil {
		t.Fatal("skinned mesh has no skin")
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	if err := WriteMesh(w, m); err != nil {
		t.Fatalf("WriteMesh: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := newByteReader(t, buf.Bytes())
	body := r.expectSection(TagMesh)
	body.u16()
	body.take(3 * 12)
	body.u16()
	body.take(3)
	if n := body.u8(); n != 0 {
		t.Fatalf("color layer count = %d, want 0", n)
	}

	weig := body.expectSection(TagWeights)
	if n := weig.u8(); n != 2 {
		t.Fatalf("bone count = %d, want 2", n)
	}
	if name := weig.str(); name != "root" {
		t.Errorf("bone 0 = %q, want root", name)
	}
	weig.v3()
	// Z-up tail (0, 0, 1) becomes (0, 1, 0)
	if tail := weig.v3(); tail != (tmath.Vec3{X: 0, Y: 1, Z: 0}) {
		t.Errorf("root tail = %v, want {0 1 0}", tail)
	}

	anms := body.expectSection(TagAnimations)
	anim := anms.expectSection(TagAnimation)
	anim.str()
	anim.f32()
	if frames := anim.u16(); frames != 3 {
		t.Errorf("frame count = %d, want 3", frames)
	}
	if n := anim.u8(); n != 2 {
		t.Fatalf("channel count = %d, want 2", n)
	}
	if bone := anim.str(); bone != "root" {
		t.Errorf("first channel = %q, want root", bone)
	}

	if !body.empty() {
		t.Errorf("%d trailing bytes after ANMS", len(body.buf))
	}
}

func TestWriteSkinnedMeshWithoutAnimations(t *testing.T) {
	src := &MeshSource{
		Groups:   []string{"root"},
		Armature: &ArmatureSource{Bones: []BoneRest{{Name: "root"}}},
		Faces: []Face{{
			{Weights: []GroupWeight{{Group: 0, Weight: 1}}},
			{Position: tmath.Vec3{X: 1}},
			{Position: tmath.Vec3{Y: 1}},
		}},
	}

	m, err := CollectMesh(src, CollectOptions{})
	if err != nil {
		t.Fatalf("CollectMesh: %v", err)
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	if err := WriteMesh(w, m); err != nil {
		t.Fatalf("WriteMesh: %v", err)
	}
	w.Close()

	r := newByteReader(t, buf.Bytes())
	body := r.expectSection(TagMesh)
	body.u16()
	body.take(3 * 12)
	body.u16()
	body.take(3)
	body.u8()
	body.expectSection(TagWeights)
	if anms := body.expectSection(TagAnimations); !anms.empty() {
		t.Errorf("ANMS body has %d bytes, want 0", len(anms.buf))
	}
}
