package toy

import (
	"fmt"
	"sort"

	tmath "github.com/Faultbox/toyexport/pkg/math"
)

// WeldedVertex is a unique vertex of a welded mesh.
type WeldedVertex struct {
	Position tmath.Vec3
	Colors   []tmath.Vec4
	Weights  []GroupWeight // Heaviest first, at most MaxWeightsPerVertex
}

// Weld merges corners that share a position and every color layer value,
// returning the unique vertices and one index per input corner.
//
// Comparison is exact, with no epsilon, so output is reproducible. Weights
// are not part of the key: when two corners differ only in weights, the
// first one seen wins.
//
// The scan is linear per corner. Meshes are capped at MaxVertices, which
// keeps that bounded.
func Weld(corners []RawVertex) ([]WeldedVertex, []int, error) {
	verts := make([]WeldedVertex, 0, len(corners))
	indices := make([]int, len(corners))

	for i, c := range corners {
		idx := findVertex(verts, c)
		if idx < 0 {
			if len(verts) == MaxVertices {
				return nil, nil, fmt.Errorf("%w: welding corner %d", ErrTooManyVertices, i)
			}
			idx = len(verts)
			verts = append(verts, WeldedVertex{
				Position: c.Position,
				Colors:   c.Colors,
				Weights:  strongestWeights(c.Weights),
			})
		}
		indices[i] = idx
	}

	return verts, indices, nil
}

func findVertex(verts []WeldedVertex, c RawVertex) int {
	for i := range verts {
		if verts[i].Position != c.Position {
			continue
		}
		if equalColors(verts[i].Colors, c.Colors) {
			return i
		}
	}
	return -1
}

func equalColors(a, b []tmath.Vec4) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// strongestWeights sorts a copy by descending weight, keeping encounter order
// on ties, and drops everything past MaxWeightsPerVertex.
func strongestWeights(ws []GroupWeight) []GroupWeight {
	if len(ws) == 0 {
		return nil
	}
	sorted := make([]GroupWeight, len(ws))
	copy(sorted, ws)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})
	if len(sorted) > MaxWeightsPerVertex {
		sorted = sorted[:MaxWeightsPerVertex]
	}
	return sorted
}
