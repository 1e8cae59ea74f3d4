package robot

import (
	"github.com/mogaika/usd_exporter/geom"
	"github.com/pkg/errors"
)

// LinkTransformations returns the world transform of every link frame in
// the zero configuration.
func (m *Model) LinkTransformations() map[string]geom.Transformation {
	frames := make(map[string]geom.Transformation)
	for _, l := range m.IterLinks() {
		if l.ParentJoint == nil {
			frames[l.Name] = geom.Identity()
			continue
		}
		frames[l.Name] = frames[l.ParentJoint.Parent.Name].Mul(l.ParentJoint.Origin)
	}
	return frames
}

// InitTransformation is the world transform of visual v of link l at zero
// configuration, given the link frames from LinkTransformations.
func InitTransformation(frames map[string]geom.Transformation, l *Link, v *Visual) geom.Transformation {
	return frames[l.Name].Mul(v.Origin)
}

// motion is the world space displacement of a joint at position, relative
// to the zero configuration.
func (j *Joint) motion(frame geom.Transformation, position float64) geom.Transformation {
	axis := frame.TransformVector(j.Axis).Normalize()
	switch j.Type {
	case JointRevolute, JointContinuous:
		return geom.RotationAxisAngle(axis, position, frame.TranslationVector())
	case JointPrismatic:
		return geom.Translation(axis.Mul(position))
	}
	return geom.Identity()
}

// ComputeTransformations solves forward kinematics. Each joint maps to the
// world transform that moves its child subtree from the zero configuration
// into cfg. Joints missing from cfg stay at zero.
func (m *Model) ComputeTransformations(cfg Configuration) (map[string]geom.Transformation, error) {
	for name := range cfg {
		if j := m.Joint(name); j == nil {
			return nil, errors.Errorf("Unknown joint %q in configuration", name)
		}
	}

	frames := m.LinkTransformations()
	transformations := make(map[string]geom.Transformation)
	for _, j := range m.Joints() {
		parent := geom.Identity()
		if pj := j.Parent.ParentJoint; pj != nil {
			parent = transformations[pj.Name]
		}
		transformations[j.Name] = parent.Mul(j.motion(frames[j.Child.Name], cfg[j.Name]))
	}
	return transformations, nil
}
