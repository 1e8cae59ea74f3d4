package geom

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Description types used by scene and robot files. Vectors are plain float
// lists so the YAML stays readable.

type FrameDesc struct {
	Point []float64 `yaml:"point,omitempty"`
	XAxis []float64 `yaml:"xaxis,omitempty"`
	YAxis []float64 `yaml:"yaxis,omitempty"`
	XYZ   []float64 `yaml:"xyz,omitempty"`
	RPY   []float64 `yaml:"rpy,omitempty"`
}

type TransformationDesc struct {
	Matrix      [][]float64 `yaml:"matrix,omitempty"`
	Translation []float64   `yaml:"translation,omitempty"`
	Frame       *FrameDesc  `yaml:"frame,omitempty"`
	Scale       []float64   `yaml:"scale,omitempty"`
}

type BoxDesc struct {
	Frame *FrameDesc `yaml:"frame,omitempty"`
	XSize float64    `yaml:"xsize"`
	YSize float64    `yaml:"ysize"`
	ZSize float64    `yaml:"zsize"`
}

type SphereDesc struct {
	Center []float64 `yaml:"center,omitempty"`
	Radius float64   `yaml:"radius"`
}

type CylinderDesc struct {
	Point  []float64 `yaml:"point,omitempty"`
	Normal []float64 `yaml:"normal,omitempty"`
	Radius float64   `yaml:"radius"`
	Height float64   `yaml:"height"`
}

type MeshDesc struct {
	Vertices [][]float64 `yaml:"vertices"`
	Faces    [][]int     `yaml:"faces"`
}

type SurfaceDesc struct {
	ControlPoints [][][]float64 `yaml:"control_points"`
	Weights       [][]float64   `yaml:"weights,omitempty"`
	Degree        []int         `yaml:"degree"`
	KnotsU        []float64     `yaml:"knots_u,omitempty"`
	KnotsV        []float64     `yaml:"knots_v,omitempty"`
}

// ShapeDesc holds exactly one shape.
type ShapeDesc struct {
	Box      *BoxDesc      `yaml:"box,omitempty"`
	Sphere   *SphereDesc   `yaml:"sphere,omitempty"`
	Cylinder *CylinderDesc `yaml:"cylinder,omitempty"`
	Mesh     *MeshDesc     `yaml:"mesh,omitempty"`
	Surface  *SurfaceDesc  `yaml:"surface,omitempty"`
}

func vec3(v []float64, def mgl64.Vec3) (mgl64.Vec3, error) {
	if v == nil {
		return def, nil
	}
	if len(v) != 3 {
		return mgl64.Vec3{}, errors.Errorf("Expected 3 components, got %d", len(v))
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

func (d *FrameDesc) Frame() (Frame, error) {
	if d == nil {
		return WorldXY(), nil
	}
	if d.XYZ != nil || d.RPY != nil {
		xyz, err := vec3(d.XYZ, mgl64.Vec3{})
		if err != nil {
			return Frame{}, errors.Wrapf(err, "Bad xyz")
		}
		rpy, err := vec3(d.RPY, mgl64.Vec3{})
		if err != nil {
			return Frame{}, errors.Wrapf(err, "Bad rpy")
		}
		return FrameFromRPY(xyz, rpy), nil
	}
	point, err := vec3(d.Point, mgl64.Vec3{})
	if err != nil {
		return Frame{}, errors.Wrapf(err, "Bad frame point")
	}
	x, err := vec3(d.XAxis, mgl64.Vec3{1, 0, 0})
	if err != nil {
		return Frame{}, errors.Wrapf(err, "Bad frame x axis")
	}
	y, err := vec3(d.YAxis, mgl64.Vec3{0, 1, 0})
	if err != nil {
		return Frame{}, errors.Wrapf(err, "Bad frame y axis")
	}
	return NewFrame(point, x, y)
}

// Transformation composes frame, translation and scale as T * F * S.
// An explicit matrix wins over everything else.
func (d *TransformationDesc) Transformation() (Transformation, error) {
	if d == nil {
		return Identity(), nil
	}
	if d.Matrix != nil {
		if len(d.Matrix) != 4 {
			return Transformation{}, errors.Errorf("Matrix must have 4 rows, got %d", len(d.Matrix))
		}
		var t Transformation
		for i, row := range d.Matrix {
			if len(row) != 4 {
				return Transformation{}, errors.Errorf("Matrix row %d must have 4 values, got %d", i, len(row))
			}
			copy(t.Matrix[i][:], row)
		}
		return t, nil
	}
	t := Identity()
	if d.Translation != nil {
		v, err := vec3(d.Translation, mgl64.Vec3{})
		if err != nil {
			return Transformation{}, errors.Wrapf(err, "Bad translation")
		}
		t = Translation(v)
	}
	if d.Frame != nil {
		f, err := d.Frame.Frame()
		if err != nil {
			return Transformation{}, err
		}
		t = t.Mul(TransformationFromFrame(f))
	}
	if d.Scale != nil {
		s, err := vec3(d.Scale, mgl64.Vec3{1, 1, 1})
		if err != nil {
			return Transformation{}, errors.Wrapf(err, "Bad scale")
		}
		t = t.Mul(Scale(s[0], s[1], s[2]))
	}
	return t, nil
}

func (d *ShapeDesc) Shape() (Shape, error) {
	set := 0
	for _, present := range []bool{d.Box != nil, d.Sphere != nil, d.Cylinder != nil, d.Mesh != nil, d.Surface != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, errors.Errorf("Shape description must contain exactly one shape, got %d", set)
	}

	switch {
	case d.Box != nil:
		f, err := d.Box.Frame.Frame()
		if err != nil {
			return nil, errors.Wrapf(err, "Bad box frame")
		}
		return NewBox(f, d.Box.XSize, d.Box.YSize, d.Box.ZSize), nil
	case d.Sphere != nil:
		c, err := vec3(d.Sphere.Center, mgl64.Vec3{})
		if err != nil {
			return nil, errors.Wrapf(err, "Bad sphere center")
		}
		return NewSphere(c, d.Sphere.Radius), nil
	case d.Cylinder != nil:
		p, err := vec3(d.Cylinder.Point, mgl64.Vec3{})
		if err != nil {
			return nil, errors.Wrapf(err, "Bad cylinder point")
		}
		n, err := vec3(d.Cylinder.Normal, mgl64.Vec3{0, 0, 1})
		if err != nil {
			return nil, errors.Wrapf(err, "Bad cylinder normal")
		}
		return NewCylinder(Plane{Point: p, Normal: n}, d.Cylinder.Radius, d.Cylinder.Height), nil
	case d.Mesh != nil:
		vertices := make([]mgl64.Vec3, len(d.Mesh.Vertices))
		for i, v := range d.Mesh.Vertices {
			var err error
			if vertices[i], err = vec3(v, mgl64.Vec3{}); err != nil {
				return nil, errors.Wrapf(err, "Bad mesh vertex %d", i)
			}
		}
		return NewMesh(vertices, d.Mesh.Faces)
	default:
		return d.Surface.surface()
	}
}

func (d *SurfaceDesc) surface() (*NurbsSurface, error) {
	if len(d.Degree) != 2 {
		return nil, errors.Errorf("Surface degree must be [u, v], got %v", d.Degree)
	}
	points := make([][]mgl64.Vec3, len(d.ControlPoints))
	for u, row := range d.ControlPoints {
		points[u] = make([]mgl64.Vec3, len(row))
		for v, p := range row {
			var err error
			if points[u][v], err = vec3(p, mgl64.Vec3{}); err != nil {
				return nil, errors.Wrapf(err, "Bad control point [%d][%d]", u, v)
			}
		}
	}
	s, err := NewNurbsSurface(points, d.Degree[0], d.Degree[1])
	if err != nil {
		return nil, err
	}
	if d.Weights != nil {
		s.Weights = d.Weights
	}
	if d.KnotsU != nil {
		s.KnotsU = d.KnotsU
	}
	if d.KnotsV != nil {
		s.KnotsV = d.KnotsV
	}
	return s, s.Validate()
}
