package robot

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mogaika/usd_exporter/geom"
	"github.com/mogaika/usd_exporter/material"
	"github.com/pkg/errors"
)

type JointType int

const (
	JointFixed JointType = iota
	JointRevolute
	JointContinuous
	JointPrismatic
)

var jointTypeNames = [...]string{
	JointFixed:      "fixed",
	JointRevolute:   "revolute",
	JointContinuous: "continuous",
	JointPrismatic:  "prismatic",
}

func (t JointType) String() string {
	if int(t) < 0 || int(t) >= len(jointTypeNames) {
		return "unknown"
	}
	return jointTypeNames[t]
}

func ParseJointType(s string) (JointType, error) {
	for i, name := range jointTypeNames {
		if strings.EqualFold(s, name) {
			return JointType(i), nil
		}
	}
	return JointFixed, errors.Errorf("Unknown joint type %q", s)
}

// Joint connects a parent link to a child link. Origin is the child frame
// relative to the parent link frame; Axis is expressed in the child frame.
type Joint struct {
	Name   string
	Type   JointType
	Parent *Link
	Child  *Link
	Origin geom.Transformation
	Axis   mgl64.Vec3
}

func (j *Joint) IsMovable() bool { return j.Type != JointFixed }

// Visual is renderable geometry of a link placed at Origin in the link frame.
type Visual struct {
	Name     string
	Origin   geom.Transformation
	Meshes   []*geom.Mesh
	Material string
}

type Link struct {
	Name        string
	Visuals     []*Visual
	ParentJoint *Joint
	Joints      []*Joint
}

func (l *Link) AddVisual(v *Visual) *Visual {
	l.Visuals = append(l.Visuals, v)
	return v
}

// Model is a kinematic tree. The first added link is the root.
type Model struct {
	Name      string
	Materials *material.Library
	MDL       map[string]string

	links  []*Link
	joints []*Joint
}

func NewModel(name string) *Model {
	return &Model{Name: name, Materials: &material.Library{}}
}

func (m *Model) Root() *Link {
	if len(m.links) == 0 {
		return nil
	}
	return m.links[0]
}

func (m *Model) Link(name string) *Link {
	for _, l := range m.links {
		if l.Name == name {
			return l
		}
	}
	return nil
}

func (m *Model) Joint(name string) *Joint {
	for _, j := range m.joints {
		if j.Name == name {
			return j
		}
	}
	return nil
}

func (m *Model) AddLink(name string) (*Link, error) {
	if m.Link(name) != nil {
		return nil, errors.Errorf("Duplicate link %q", name)
	}
	l := &Link{Name: name}
	m.links = append(m.links, l)
	return l, nil
}

func (m *Model) AddJoint(name string, typ JointType, parent, child *Link, origin geom.Transformation, axis mgl64.Vec3) (*Joint, error) {
	if m.Joint(name) != nil {
		return nil, errors.Errorf("Duplicate joint %q", name)
	}
	if child.ParentJoint != nil {
		return nil, errors.Errorf("Link %q already has parent joint %q", child.Name, child.ParentJoint.Name)
	}
	if child == m.Root() {
		return nil, errors.Errorf("Joint %q can't have the root link %q as child", name, child.Name)
	}
	if typ != JointFixed && axis.Len() == 0 {
		return nil, errors.Errorf("Joint %q has no axis", name)
	}
	j := &Joint{Name: name, Type: typ, Parent: parent, Child: child, Origin: origin, Axis: axis}
	parent.Joints = append(parent.Joints, j)
	child.ParentJoint = j
	m.joints = append(m.joints, j)
	return j, nil
}

// IterLinks returns the links reachable from the root, breadth first.
func (m *Model) IterLinks() []*Link {
	root := m.Root()
	if root == nil {
		return nil
	}
	links := []*Link{root}
	for i := 0; i < len(links); i++ {
		for _, j := range links[i].Joints {
			links = append(links, j.Child)
		}
	}
	return links
}

// Joints returns the joints in breadth first order.
func (m *Model) Joints() []*Joint {
	var joints []*Joint
	for _, l := range m.IterLinks() {
		joints = append(joints, l.Joints...)
	}
	return joints
}

// Configuration maps joint names to positions, radians for revolute joints
// and meters for prismatic ones.
type Configuration map[string]float64

func (m *Model) ZeroConfiguration() Configuration {
	c := make(Configuration)
	for _, j := range m.Joints() {
		if j.IsMovable() {
			c[j.Name] = 0
		}
	}
	return c
}
