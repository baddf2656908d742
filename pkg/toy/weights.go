package toy

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	tmath "github.com/Faultbox/toyexport/pkg/math"
)

// Weight counts are packed two bits per vertex, so a count byte covers four
// vertices and a vertex carries at most three weights.
const (
	weightCountBits = 2
	vertsPerChunk   = 8 / weightCountBits
	weightCountMask = 1<<weightCountBits - 1
)

// remapBones builds the compact bone table of a mesh. Only groups referenced
// by some welded vertex are kept, ordered by group index, and numbered from
// zero. Groups without a bone of the same name in the armature are skipped
// and their weights removed, so table indices stay aligned.
func remapBones(verts []WeldedVertex, groups []string, arm *ArmatureSource, basis tmath.Basis, log *zap.Logger) ([]Bone, [][]BoneWeight, error) {
	used := make(map[int]struct{})
	for _, v := range verts {
		for _, w := range v.Weights {
			used[w.Group] = struct{}{}
		}
	}

	ids := make([]int, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rest := make(map[string]BoneRest, len(arm.Bones))
	for _, b := range arm.Bones {
		rest[b.Name] = b
	}

	var bones []Bone
	remap := make(map[int]int, len(ids))
	for _, id := range ids {
		if id < 0 || id >= len(groups) {
			return nil, nil, fmt.Errorf("%w: vertex group %d of %d", ErrValueOutOfRange, id, len(groups))
		}
		b, ok := rest[groups[id]]
		if !ok {
			log.Warn("no bone for vertex group, skipping",
				zap.String("group", groups[id]))
			continue
		}
		remap[id] = len(bones)
		bones = append(bones, b.Bone(basis))
	}

	if len(bones) > MaxBones {
		return nil, nil, fmt.Errorf("%w: mesh uses %d", ErrTooManyBones, len(bones))
	}

	weights := make([][]BoneWeight, len(verts))
	for i, v := range verts {
		for _, w := range v.Weights {
			if idx, ok := remap[w.Group]; ok {
				weights[i] = append(weights[i], BoneWeight{Bone: idx, Weight: w.Weight})
			}
		}
	}

	return bones, weights, nil
}

// writeSkin writes the WEIG section: the bone table, the vertex count and the
// packed weight stream.
func writeSkin(w *Writer, skin *Skin) error {
	if len(skin.Bones) > MaxBones {
		err := fmt.Errorf("%w: %d bones", ErrTooManyBones, len(skin.Bones))
		w.fail(err)
		return err
	}

	w.StartSection(TagWeights)
	w.WriteU8(len(skin.Bones))
	for _, b := range skin.Bones {
		w.WriteString(b.Name)
		w.WriteV3(b.Head)
		w.WriteV3(b.Tail)
	}

	w.WriteU16(len(skin.Weights))
	if err := packWeights(w, skin.Weights); err != nil {
		return err
	}
	w.EndSection()

	return w.Err()
}

// packWeights writes vertices in chunks of four: one byte holding each
// vertex's weight count (first vertex in the high bits, missing trailing
// vertices as zero), then every weight of the chunk as a bone index byte and
// a uf16 weight.
func packWeights(w *Writer, weights [][]BoneWeight) error {
	for start := 0; start < len(weights); start += vertsPerChunk {
		end := start + vertsPerChunk
		if end > len(weights) {
			end = len(weights)
		}
		chunk := weights[start:end]

		packed := 0
		for _, vw := range chunk {
			packed = packed<<weightCountBits | weightCount(vw)
		}
		packed <<= weightCountBits * (vertsPerChunk - len(chunk))
		w.WriteU8(packed)

		for i, vw := range chunk {
			for _, bw := range vw[:weightCount(vw)] {
				if bw.Bone < 0 || bw.Bone > math.MaxUint8 {
					err := fmt.Errorf("%w: vertex %d references bone %d", ErrTooManyBones, start+i, bw.Bone)
					w.fail(err)
					return err
				}
				w.WriteU8(bw.Bone)
				w.WriteUF16(bw.Weight)
			}
		}
	}
	return w.Err()
}

func weightCount(vw []BoneWeight) int {
	if len(vw) > weightCountMask {
		return weightCountMask
	}
	return len(vw)
}
