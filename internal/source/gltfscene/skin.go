package gltfscene

import (
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	tmath "github.com/Faultbox/toyexport/pkg/math"
	"github.com/Faultbox/toyexport/pkg/toy"
)

// leafBoneLength is the tail offset of a joint with no joint parent or child.
const leafBoneLength = 0.1

// armature converts a skin once and returns it with the joint names, which
// are the group names of every mesh the skin deforms.
func (c *converter) armature(skinIdx uint32) (*toy.ArmatureSource, []string, error) {
	if int(skinIdx) >= len(c.doc.Skins) {
		return nil, nil, fmt.Errorf("%w: skin %d of %d", ErrInvalidDocument, skinIdx, len(c.doc.Skins))
	}
	skin := c.doc.Skins[skinIdx]

	groups := make([]string, len(skin.Joints))
	seen := make(map[string]bool, len(skin.Joints))
	for i, j := range skin.Joints {
		groups[i] = nodeName(c.doc.Nodes[j], j)
		if seen[groups[i]] {
			c.log.Warn("duplicate joint name, weights may bind to the wrong bone",
				zap.String("joint", groups[i]))
		}
		seen[groups[i]] = true
	}

	if arm, ok := c.armatures[skinIdx]; ok {
		return arm, groups, nil
	}

	binds, err := c.bindMatrices(skin)
	if err != nil {
		return nil, nil, fmt.Errorf("skin %d: %w", skinIdx, err)
	}

	jointIndex := make(map[uint32]int, len(skin.Joints))
	for i, j := range skin.Joints {
		jointIndex[j] = i
	}

	arm := &toy.ArmatureSource{Bones: make([]toy.BoneRest, len(skin.Joints))}
	heads := make([]tmath.Vec3, len(skin.Joints))
	for i, bind := range binds {
		heads[i] = bind.Translation()
	}

	for i, j := range skin.Joints {
		bone := toy.BoneRest{Name: groups[i], Head: heads[i]}

		tail, ok := firstChildJoint(c.doc.Nodes[j], jointIndex)
		if ok {
			bone.Tail = heads[tail]
		} else {
			length := float32(leafBoneLength)
			if p, ok := c.parents[j]; ok {
				if pi, ok := jointIndex[p]; ok {
					if d := heads[i].Distance(heads[pi]); d > 0 {
						length = d
					}
				}
			}
			_, rot, _ := binds[i].Decompose()
			dir := rot.Rotate(tmath.Vec3{Y: 1})
			bone.Tail = heads[i].Add(dir.Scale(length))
		}
		arm.Bones[i] = bone
	}

	anims, err := c.animations(skin, groups)
	if err != nil {
		return nil, nil, fmt.Errorf("skin %d: %w", skinIdx, err)
	}
	arm.Animations = anims

	c.log.Debug("converted skin",
		zap.Uint32("skin", skinIdx),
		zap.Int("joints", len(arm.Bones)),
		zap.Int("animations", len(arm.Animations)))

	c.armatures[skinIdx] = arm
	return arm, groups, nil
}

func firstChildJoint(node *gltf.Node, jointIndex map[uint32]int) (int, bool) {
	for _, child := range node.Children {
		if i, ok := jointIndex[child]; ok {
			return i, true
		}
	}
	return 0, false
}

// bindMatrices returns each joint's bind pose in mesh space: the inverse of
// its inverse bind matrix, or its world transform when the skin has none.
func (c *converter) bindMatrices(skin *gltf.Skin) ([]tmath.Mat4, error) {
	binds := make([]tmath.Mat4, len(skin.Joints))
	if skin.InverseBindMatrices == nil {
		for i, j := range skin.Joints {
			binds[i] = c.worldMatrix(j)
		}
		return binds, nil
	}

	acr, err := c.accessor(*skin.InverseBindMatrices)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(c.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading inverse bind matrices: %w", err)
	}
	mats, ok := data.([][4][4]float32)
	if !ok {
		return nil, fmt.Errorf("%w: inverse bind matrices are %T", ErrInvalidDocument, data)
	}
	if len(mats) < len(skin.Joints) {
		return nil, fmt.Errorf("%w: %d inverse bind matrices for %d joints",
			ErrInvalidDocument, len(mats), len(skin.Joints))
	}

	for i := range binds {
		var ibm tmath.Mat4
		for col := 0; col < 4; col++ {
			for row := 0; row < 4; row++ {
				ibm[col*4+row] = mats[i][col][row]
			}
		}
		binds[i] = ibm.Inverse()
	}
	return binds, nil
}

// animations bakes every document animation that targets a joint of skin.
// Each joint gets a channel; joints without a track hold their rest pose.
func (c *converter) animations(skin *gltf.Skin, names []string) ([]toy.Animation, error) {
	jointIndex := make(map[uint32]int, len(skin.Joints))
	for i, j := range skin.Joints {
		jointIndex[j] = i
	}

	var out []toy.Animation
	for ai, ga := range c.doc.Animations {
		tracks := make([]jointTracks, len(skin.Joints))
		targeted := false
		var end float32

		for ci, ch := range ga.Channels {
			if ch.Target.Node == nil || ch.Sampler == nil {
				continue
			}
			ji, ok := jointIndex[*ch.Target.Node]
			if !ok {
				continue
			}
			if int(*ch.Sampler) >= len(ga.Samplers) {
				return nil, fmt.Errorf("%w: animation %d channel %d sampler %d of %d",
					ErrInvalidDocument, ai, ci, *ch.Sampler, len(ga.Samplers))
			}

			tr, err := c.readTrack(ga.Samplers[*ch.Sampler], ch.Target.Path)
			if err != nil {
				return nil, fmt.Errorf("animation %d channel %d: %w", ai, ci, err)
			}
			if tr == nil {
				continue
			}
			if tr.interp == gltf.InterpolationCubicSpline {
				c.log.Warn("cubic spline track sampled linearly",
					zap.String("animation", ga.Name),
					zap.String("joint", names[ji]))
			}

			switch ch.Target.Path {
			case gltf.TRSTranslation:
				tracks[ji].translation = tr
			case gltf.TRSRotation:
				tracks[ji].rotation = tr
			case gltf.TRSScale:
				tracks[ji].scale = tr
			}
			targeted = true
			if last := tr.times[len(tr.times)-1]; last > end {
				end = last
			}
		}

		if !targeted {
			continue
		}

		name := ga.Name
		if name == "" {
			name = fmt.Sprintf("animation_%d", ai)
		}
		frames := int(math.Ceil(float64(end*c.opts.FPS))) + 1
		anim := toy.Animation{Name: name, FPS: c.opts.FPS}

		for ji, j := range skin.Joints {
			t, r, s := nodeTRS(c.doc.Nodes[j])
			ch := toy.AnimationChannel{Bone: names[ji], Frames: make([]toy.Frame, frames)}
			for f := range ch.Frames {
				at := float32(f) / c.opts.FPS
				ch.Frames[f] = toy.Frame{
					Position: tracks[ji].translation.vec3At(at, t),
					Rotation: tracks[ji].rotation.quatAt(at, r),
					Scale:    tracks[ji].scale.vec3At(at, s),
				}
			}
			anim.Channels = append(anim.Channels, ch)
		}

		c.log.Debug("baked animation",
			zap.String("animation", name),
			zap.Float32("seconds", end),
			zap.Int("frames", frames))
		out = append(out, anim)
	}
	return out, nil
}

type jointTracks struct {
	translation, rotation, scale *track
}

// readTrack loads a sampler's keyframes. Tracks for properties a frame does
// not carry, such as morph weights, return nil.
func (c *converter) readTrack(s *gltf.AnimationSampler, path gltf.TRSProperty) (*track, error) {
	if path != gltf.TRSTranslation && path != gltf.TRSRotation && path != gltf.TRSScale {
		return nil, nil
	}
	if s.Input == nil || s.Output == nil {
		return nil, fmt.Errorf("%w: sampler without input or output", ErrInvalidDocument)
	}

	inAcr, err := c.accessor(*s.Input)
	if err != nil {
		return nil, err
	}
	in, err := modeler.ReadAccessor(c.doc, inAcr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading keyframe times: %w", err)
	}
	times, ok := in.([]float32)
	if !ok || len(times) == 0 {
		return nil, fmt.Errorf("%w: keyframe times are %T with %d keys", ErrInvalidDocument, in, len(times))
	}

	outAcr, err := c.accessor(*s.Output)
	if err != nil {
		return nil, err
	}
	out, err := modeler.ReadAccessor(c.doc, outAcr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading keyframe values: %w", err)
	}

	tr := &track{times: times, interp: s.Interpolation}
	var n int
	switch v := out.(type) {
	case [][3]float32:
		if path == gltf.TRSRotation {
			return nil, fmt.Errorf("%w: rotation keys are vec3", ErrInvalidDocument)
		}
		tr.vec3, n = v, len(v)
	case [][4]float32:
		if path != gltf.TRSRotation {
			return nil, fmt.Errorf("%w: %v keys are vec4", ErrInvalidDocument, path)
		}
		tr.quat, n = v, len(v)
	default:
		return nil, fmt.Errorf("%w: unsupported keyframe values %T", ErrInvalidDocument, out)
	}

	want := len(times)
	if tr.interp == gltf.InterpolationCubicSpline {
		want *= 3
	}
	if n != want {
		return nil, fmt.Errorf("%w: %d keyframe values for %d times", ErrInvalidDocument, n, len(times))
	}
	return tr, nil
}
