package geom

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Shape is the closed set of geometry kinds the converters understand.
// The marker method is unexported so no other package can add a kind.
type Shape interface {
	Kind() ShapeKind
	isShape()
}

type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	ShapeSphere
	ShapeCylinder
	ShapeMesh
	ShapeSurface
)

var shapeKindNames = [...]string{
	ShapeBox:      "Box",
	ShapeSphere:   "Sphere",
	ShapeCylinder: "Cylinder",
	ShapeMesh:     "Mesh",
	ShapeSurface:  "Surface",
}

func (k ShapeKind) String() string {
	if int(k) < 0 || int(k) >= len(shapeKindNames) {
		return "Unknown"
	}
	return shapeKindNames[k]
}

// Box is centered on its frame origin.
type Box struct {
	Frame Frame
	XSize float64
	YSize float64
	ZSize float64
}

func NewBox(frame Frame, xsize, ysize, zsize float64) *Box {
	return &Box{Frame: frame, XSize: xsize, YSize: ysize, ZSize: zsize}
}

func NewCube(size float64) *Box {
	return NewBox(WorldXY(), size, size, size)
}

func (*Box) Kind() ShapeKind { return ShapeBox }
func (*Box) isShape()        {}

// Corners in the order bottom face counter-clockwise, then top face.
func (b *Box) Corners() [8]mgl64.Vec3 {
	hx, hy, hz := b.XSize/2, b.YSize/2, b.ZSize/2
	local := [8]mgl64.Vec3{
		{-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, hy, -hz}, {-hx, hy, -hz},
		{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz},
	}
	t := TransformationFromFrame(b.Frame)
	var out [8]mgl64.Vec3
	for i, p := range local {
		out[i] = t.TransformPoint(p)
	}
	return out
}

type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

func NewSphere(center mgl64.Vec3, radius float64) *Sphere {
	return &Sphere{Center: center, Radius: radius}
}

func (*Sphere) Kind() ShapeKind { return ShapeSphere }
func (*Sphere) isShape()        {}

// Cylinder stands on its plane, centered on the plane point, extruded along
// the plane normal by Height/2 in both directions.
type Cylinder struct {
	Plane  Plane
	Radius float64
	Height float64
}

func NewCylinder(plane Plane, radius, height float64) *Cylinder {
	return &Cylinder{Plane: plane, Radius: radius, Height: height}
}

func (*Cylinder) Kind() ShapeKind { return ShapeCylinder }
func (*Cylinder) isShape()        {}

// Mesh is a polygon soup of vertices and faces with arbitrary vertex counts.
type Mesh struct {
	Vertices []mgl64.Vec3
	Faces    [][]int
}

func NewMesh(vertices []mgl64.Vec3, faces [][]int) (*Mesh, error) {
	for iFace, face := range faces {
		if len(face) < 3 {
			return nil, errors.Errorf("Face %d has %d vertices, need at least 3", iFace, len(face))
		}
		for _, v := range face {
			if v < 0 || v >= len(vertices) {
				return nil, errors.Errorf("Face %d references vertex %d out of %d", iFace, v, len(vertices))
			}
		}
	}
	return &Mesh{Vertices: vertices, Faces: faces}, nil
}

func (*Mesh) Kind() ShapeKind { return ShapeMesh }
func (*Mesh) isShape()        {}

func (m *Mesh) VerticesAndFaces() ([]mgl64.Vec3, [][]int) {
	return m.Vertices, m.Faces
}

// MeshFromBox returns the six quads of a box with outward winding.
func MeshFromBox(b *Box) *Mesh {
	c := b.Corners()
	return &Mesh{
		Vertices: c[:],
		Faces: [][]int{
			{0, 3, 2, 1},
			{4, 5, 6, 7},
			{0, 1, 5, 4},
			{1, 2, 6, 5},
			{2, 3, 7, 6},
			{3, 0, 4, 7},
		},
	}
}

// NurbsSurface stores control points and weights U-major: ControlPoints[u][v].
type NurbsSurface struct {
	ControlPoints [][]mgl64.Vec3
	Weights       [][]float64
	DegreeU       int
	DegreeV       int
	KnotsU        []float64
	KnotsV        []float64
}

func (*NurbsSurface) Kind() ShapeKind { return ShapeSurface }
func (*NurbsSurface) isShape()        {}

func (s *NurbsSurface) Count() (int, int) {
	if len(s.ControlPoints) == 0 {
		return 0, 0
	}
	return len(s.ControlPoints), len(s.ControlPoints[0])
}

func (s *NurbsSurface) Validate() error {
	countU, countV := s.Count()
	if countU == 0 || countV == 0 {
		return errors.Errorf("Surface has no control points")
	}
	for u, row := range s.ControlPoints {
		if len(row) != countV {
			return errors.Errorf("Control point row %d has %d points, expected %d", u, len(row), countV)
		}
	}
	if len(s.Weights) != countU {
		return errors.Errorf("Surface has %d weight rows, expected %d", len(s.Weights), countU)
	}
	for u, row := range s.Weights {
		if len(row) != countV {
			return errors.Errorf("Weight row %d has %d weights, expected %d", u, len(row), countV)
		}
	}
	if len(s.KnotsU) != countU+s.DegreeU+1 {
		return errors.Errorf("U knot vector has %d knots, expected %d", len(s.KnotsU), countU+s.DegreeU+1)
	}
	if len(s.KnotsV) != countV+s.DegreeV+1 {
		return errors.Errorf("V knot vector has %d knots, expected %d", len(s.KnotsV), countV+s.DegreeV+1)
	}
	return nil
}

// ClampedKnots builds an open uniform knot vector for count control points.
func ClampedKnots(count, degree int) []float64 {
	n := count + degree + 1
	knots := make([]float64, n)
	inner := count - degree
	for i := 0; i < n; i++ {
		switch {
		case i <= degree:
			knots[i] = 0
		case i >= count:
			knots[i] = 1
		default:
			knots[i] = float64(i-degree) / float64(inner)
		}
	}
	return knots
}

// NewNurbsSurface uses unit weights and clamped knot vectors.
func NewNurbsSurface(points [][]mgl64.Vec3, degreeU, degreeV int) (*NurbsSurface, error) {
	s := &NurbsSurface{ControlPoints: points, DegreeU: degreeU, DegreeV: degreeV}
	countU, countV := s.Count()
	s.Weights = make([][]float64, countU)
	for u := range s.Weights {
		s.Weights[u] = make([]float64, countV)
		for v := range s.Weights[u] {
			s.Weights[u][v] = 1
		}
	}
	s.KnotsU = ClampedKnots(countU, degreeU)
	s.KnotsV = ClampedKnots(countV, degreeV)
	return s, s.Validate()
}
