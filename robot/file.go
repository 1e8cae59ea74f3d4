package robot

import (
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mogaika/usd_exporter/geom"
	"github.com/mogaika/usd_exporter/material"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// VisualDesc places one or more shapes in the link frame. Boxes are
// meshed; spheres, cylinders and surfaces have no mesh form and are
// rejected.
type VisualDesc struct {
	Name     string                   `yaml:"name,omitempty"`
	Origin   *geom.TransformationDesc `yaml:"origin,omitempty"`
	Material string                   `yaml:"material,omitempty"`
	Geometry []geom.ShapeDesc         `yaml:"geometry"`
}

type LinkDesc struct {
	Name    string       `yaml:"name"`
	Visuals []VisualDesc `yaml:"visuals,omitempty"`
}

type JointDesc struct {
	Name   string                   `yaml:"name"`
	Type   string                   `yaml:"type"`
	Parent string                   `yaml:"parent"`
	Child  string                   `yaml:"child"`
	Origin *geom.TransformationDesc `yaml:"origin,omitempty"`
	Axis   []float64                `yaml:"axis,omitempty"`
}

// Desc is the YAML form of a robot model. The first link is the root.
type Desc struct {
	Name      string                  `yaml:"name"`
	Materials []material.MaterialDesc `yaml:"materials,omitempty"`
	Links     []LinkDesc              `yaml:"links"`
	Joints    []JointDesc             `yaml:"joints,omitempty"`
}

// TrajectoryDesc is a sequence of configurations with an optional frame
// rate.
type TrajectoryDesc struct {
	FPS            float64         `yaml:"fps,omitempty"`
	Configurations []Configuration `yaml:"configurations"`
}

func Parse(data []byte, dir string) (*Model, error) {
	var d Desc
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrapf(err, "Can't parse robot description")
	}
	return d.Model(dir)
}

func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read robot %q", path)
	}
	m, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "Robot %q", path)
	}
	return m, nil
}

func ParseTrajectory(data []byte) (*TrajectoryDesc, error) {
	var t TrajectoryDesc
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrapf(err, "Can't parse trajectory")
	}
	if len(t.Configurations) == 0 {
		return nil, errors.Errorf("Trajectory has no configurations")
	}
	return &t, nil
}

func LoadTrajectory(path string) (*TrajectoryDesc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read trajectory %q", path)
	}
	t, err := ParseTrajectory(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Trajectory %q", path)
	}
	return t, nil
}

func transformation(d *geom.TransformationDesc) (geom.Transformation, error) {
	if d == nil {
		return geom.Identity(), nil
	}
	return d.Transformation()
}

// Model builds the kinematic tree. MDL module paths resolve against dir.
func (d *Desc) Model(dir string) (*Model, error) {
	if d.Name == "" {
		return nil, errors.Errorf("Robot without name")
	}
	if len(d.Links) == 0 {
		return nil, errors.Errorf("Robot %q has no links", d.Name)
	}
	m := NewModel(d.Name)
	mdl, err := m.Materials.AddDescs(d.Materials)
	if err != nil {
		return nil, err
	}
	for name, module := range mdl {
		if !filepath.IsAbs(module) && dir != "" {
			mdl[name] = filepath.Join(dir, module)
		}
	}
	m.MDL = mdl

	for _, ld := range d.Links {
		l, err := m.AddLink(ld.Name)
		if err != nil {
			return nil, err
		}
		for i, vd := range ld.Visuals {
			v, err := vd.visual()
			if err != nil {
				return nil, errors.Wrapf(err, "Link %q visual %d", ld.Name, i)
			}
			l.AddVisual(v)
		}
	}

	for _, jd := range d.Joints {
		typ, err := ParseJointType(jd.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "Joint %q", jd.Name)
		}
		parent, child := m.Link(jd.Parent), m.Link(jd.Child)
		if parent == nil || child == nil {
			return nil, errors.Errorf("Joint %q connects unknown links %q and %q", jd.Name, jd.Parent, jd.Child)
		}
		origin, err := transformation(jd.Origin)
		if err != nil {
			return nil, errors.Wrapf(err, "Joint %q origin", jd.Name)
		}
		axis := mgl64.Vec3{1, 0, 0}
		if jd.Axis != nil {
			if len(jd.Axis) != 3 {
				return nil, errors.Errorf("Joint %q axis needs 3 components", jd.Name)
			}
			axis = mgl64.Vec3{jd.Axis[0], jd.Axis[1], jd.Axis[2]}
		}
		if _, err := m.AddJoint(jd.Name, typ, parent, child, origin, axis); err != nil {
			return nil, err
		}
	}

	if n := len(m.IterLinks()); n != len(d.Links) {
		return nil, errors.Errorf("Robot %q: only %d of %d links are connected to root %q", d.Name, n, len(d.Links), m.Root().Name)
	}
	return m, nil
}

func (d *VisualDesc) visual() (*Visual, error) {
	origin, err := transformation(d.Origin)
	if err != nil {
		return nil, errors.Wrapf(err, "Bad origin")
	}
	v := &Visual{Name: d.Name, Origin: origin, Material: d.Material}
	for i := range d.Geometry {
		shape, err := d.Geometry[i].Shape()
		if err != nil {
			return nil, err
		}
		switch s := shape.(type) {
		case *geom.Mesh:
			v.Meshes = append(v.Meshes, s)
		case *geom.Box:
			v.Meshes = append(v.Meshes, geom.MeshFromBox(s))
		default:
			return nil, errors.Errorf("Visual geometry %d is a %v, only meshes and boxes are supported", i, shape.Kind())
		}
	}
	return v, nil
}
