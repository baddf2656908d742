package toy

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/toyexport/pkg/encoding"
	tmath "github.com/Faultbox/toyexport/pkg/math"
)

// collectAnimations converts source animations to output space and keeps
// only the channels of bones in the table, ordered by table index.
func collectAnimations(src []Animation, bones []Bone, basis tmath.Basis, log *zap.Logger) []Animation {
	boneIndex := make(map[string]int, len(bones))
	for i, b := range bones {
		boneIndex[b.Name] = i
	}

	anims := make([]Animation, 0, len(src))
	for _, a := range src {
		var channels []AnimationChannel
		for _, ch := range a.Channels {
			name := encoding.NormalizeName(ch.Bone)
			if _, ok := boneIndex[name]; !ok {
				log.Debug("dropping channel for bone outside the mesh bone table",
					zap.String("animation", a.Name),
					zap.String("bone", ch.Bone))
				continue
			}

			frames := make([]Frame, len(ch.Frames))
			for i, f := range ch.Frames {
				frames[i] = Frame{
					Position: basis.Point(f.Position),
					Rotation: basis.Rotation(f.Rotation).Normalize(),
					Scale:    basis.Scale(f.Scale),
				}
			}
			channels = append(channels, AnimationChannel{Bone: name, Frames: frames})
		}

		sort.SliceStable(channels, func(i, j int) bool {
			return boneIndex[channels[i].Bone] < boneIndex[channels[j].Bone]
		})

		anims = append(anims, Animation{
			Name:     encoding.NormalizeName(a.Name),
			FPS:      a.FPS,
			Channels: channels,
		})
	}
	return anims
}

// FrameCount returns the frame count shared by every channel. An animation
// without channels has zero frames.
func (a *Animation) FrameCount() (int, error) {
	if len(a.Channels) == 0 {
		return 0, nil
	}
	n := len(a.Channels[0].Frames)
	for _, ch := range a.Channels[1:] {
		if len(ch.Frames) != n {
			return 0, fmt.Errorf("%w: %q has %d frames on %q and %d on %q",
				ErrFrameCountMismatch, a.Name, n, a.Channels[0].Bone, len(ch.Frames), ch.Bone)
		}
	}
	return n, nil
}

// WriteAnimations writes an ANMS section holding one ANIM section per
// animation. Every animation is validated before anything is written.
func WriteAnimations(w *Writer, anims []Animation) error {
	frameCounts := make([]int, len(anims))
	for i := range anims {
		n, err := anims[i].FrameCount()
		if err != nil {
			w.fail(err)
			return err
		}
		frameCounts[i] = n
	}

	w.StartSection(TagAnimations)
	for i, a := range anims {
		w.StartSection(TagAnimation)
		w.WriteString(a.Name)
		w.WriteF32(a.FPS)
		w.WriteU16(frameCounts[i])
		w.WriteU8(len(a.Channels))

		// TODO: compress keyframe data
		for _, ch := range a.Channels {
			w.WriteString(ch.Bone)
			for _, f := range ch.Frames {
				w.WriteV3(f.Position)
				w.WriteQuat(f.Rotation)
				w.WriteV3(f.Scale)
			}
		}
		w.EndSection()
	}
	w.EndSection()

	if err := w.Err(); err != nil {
		return fmt.Errorf("writing animations: %w", err)
	}
	return nil
}
