package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewFrameOrthonormalizes(t *testing.T) {
	f, err := NewFrame(mgl64.Vec3{0, 3, 4}, mgl64.Vec3{0.27, 0.95, 0.13}, mgl64.Vec3{-0.95, 0.28, -0.09})
	require.NoError(t, err)
	assert.True(t, f.IsOrthonormal(1e-12))
	assert.InDelta(t, 1.0, f.ZAxis().Len(), 1e-12)
}

func TestNewFrameParallelAxes(t *testing.T) {
	_, err := NewFrame(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{2, 0, 0})
	assert.Error(t, err)
}

var framePlaneTests = []mgl64.Vec3{
	{0, 0, 1},
	{0, 0, -1},
	{1, 0, 0},
	{0, 1, 0},
	{1, 1, 1},
	{-0.3, 0.2, 0.9},
}

func TestFrameFromPlane(t *testing.T) {
	for _, normal := range framePlaneTests {
		f := FrameFromPlane(Plane{Point: mgl64.Vec3{1, 2, 3}, Normal: normal})
		if !f.IsOrthonormal(1e-9) {
			t.Errorf("FrameFromPlane(%v) is not orthonormal: %v", normal, f)
		}
		if !VecEqualThreshold(f.ZAxis(), normal.Normalize(), 1e-9) {
			t.Errorf("FrameFromPlane(%v) z axis = %v", normal, f.ZAxis())
		}
	}
}

func TestTransformationFromFrame(t *testing.T) {
	f, err := NewFrame(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{-1, 0, 0})
	require.NoError(t, err)
	tr := TransformationFromFrame(f)

	p := tr.TransformPoint(mgl64.Vec3{1, 0, 0})
	assert.True(t, VecEqualThreshold(p, mgl64.Vec3{1, 3, 3}, 1e-12), "%v", p)
	assert.True(t, tr.Frame().EqualThreshold(f, 1e-12))
}

func TestFrameEqualThresholdNearZero(t *testing.T) {
	f := WorldXY()
	g := f
	g.Point = mgl64.Vec3{3.67e-16, 6, -1e-17}
	g.XAxis = mgl64.Vec3{1, 6.12e-17, 0}
	f.Point = mgl64.Vec3{0, 6, 0}

	assert.True(t, f.EqualThreshold(g, 1e-12))
	assert.True(t, VecEqualThreshold(g.XAxis, mgl64.Vec3{1, 0, 0}, 1e-12))
	assert.False(t, VecEqualThreshold(g.XAxis, mgl64.Vec3{1, 1e-9, 0}, 1e-12))

	g.YAxis = mgl64.Vec3{0, 1, 1e-6}
	assert.False(t, f.EqualThreshold(g, 1e-12))
}

func TestTransformationMulOrder(t *testing.T) {
	tr := Translation(mgl64.Vec3{5, 0, 0})
	rot := RotationAxisAngle(mgl64.Vec3{0, 0, 1}, math.Pi/2, mgl64.Vec3{})

	// rotation first, then translation
	p := tr.Mul(rot).TransformPoint(mgl64.Vec3{1, 0, 0})
	assert.True(t, VecEqualThreshold(p, mgl64.Vec3{5, 1, 0}, 1e-12), "%v", p)

	p = rot.Mul(tr).TransformPoint(mgl64.Vec3{1, 0, 0})
	assert.True(t, VecEqualThreshold(p, mgl64.Vec3{0, 6, 0}, 1e-12), "%v", p)
}

func TestRotationAxisAngleAroundPoint(t *testing.T) {
	rot := RotationAxisAngle(mgl64.Vec3{0, 0, 1}, math.Pi, mgl64.Vec3{1, 0, 0})
	p := rot.TransformPoint(mgl64.Vec3{2, 0, 0})
	assert.True(t, VecEqualThreshold(p, mgl64.Vec3{0, 0, 0}, 1e-12), "%v", p)
}

func TestMeshFromBox(t *testing.T) {
	m := MeshFromBox(NewCube(2))
	assert.Len(t, m.Vertices, 8)
	assert.Len(t, m.Faces, 6)
	for _, v := range m.Vertices {
		for i := 0; i < 3; i++ {
			assert.InDelta(t, 1.0, math.Abs(v[i]), 1e-12)
		}
	}
}

func TestNewMeshRejectsBadIndices(t *testing.T) {
	_, err := NewMesh([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [][]int{{0, 1, 3}})
	assert.Error(t, err)
	_, err = NewMesh([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}, [][]int{{0, 1}})
	assert.Error(t, err)
}

var clampedKnotsTests = []struct {
	count, degree int
	out           []float64
}{
	{4, 3, []float64{0, 0, 0, 0, 1, 1, 1, 1}},
	{3, 2, []float64{0, 0, 0, 1, 1, 1}},
	{4, 1, []float64{0, 0, 1.0 / 3, 2.0 / 3, 1, 1}},
}

func TestClampedKnots(t *testing.T) {
	for _, test := range clampedKnotsTests {
		result := ClampedKnots(test.count, test.degree)
		if !assert.Len(t, result, len(test.out)) {
			continue
		}
		for i := range result {
			if math.Abs(result[i]-test.out[i]) > 1e-12 {
				t.Errorf("ClampedKnots(%d,%d)=%v; expected %v", test.count, test.degree, result, test.out)
				break
			}
		}
	}
}

const shapesYAML = `
- box:
    frame: {point: [1, 2, 3]}
    xsize: 1
    ysize: 2
    zsize: 3
- sphere: {center: [0, 5, 0], radius: 0.5}
- cylinder: {normal: [1, 0, 0], radius: 1, height: 4}
- mesh:
    vertices: [[0, 0, 0], [1, 0, 0], [1, 1, 0], [0, 1, 0], [2, 0, 0]]
    faces: [[0, 1, 4], [0, 1, 2, 3]]
- surface:
    control_points:
      - [[0, 0, 0], [0, 4, 0], [0, 8, -3]]
      - [[2, 0, 6], [2, 4, 0], [2, 8, 0]]
      - [[4, 0, 0], [4, 4, 0], [4, 8, 3]]
      - [[6, 0, 0], [6, 4, -3], [6, 8, 0]]
    degree: [3, 2]
`

func TestShapeDescDecode(t *testing.T) {
	var descs []ShapeDesc
	require.NoError(t, yaml.Unmarshal([]byte(shapesYAML), &descs))
	require.Len(t, descs, 5)

	kinds := []ShapeKind{ShapeBox, ShapeSphere, ShapeCylinder, ShapeMesh, ShapeSurface}
	for i, d := range descs {
		s, err := d.Shape()
		require.NoError(t, err, "shape %d", i)
		assert.Equal(t, kinds[i], s.Kind())
	}

	s, _ := descs[0].Shape()
	box := s.(*Box)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, box.Frame.Point)
	assert.Equal(t, 2.0, box.YSize)

	s, _ = descs[4].Shape()
	u, v := s.(*NurbsSurface).Count()
	assert.Equal(t, 4, u)
	assert.Equal(t, 3, v)
}

func TestShapeDescRequiresExactlyOne(t *testing.T) {
	d := ShapeDesc{Box: &BoxDesc{}, Sphere: &SphereDesc{}}
	_, err := d.Shape()
	assert.Error(t, err)
	_, err = (&ShapeDesc{}).Shape()
	assert.Error(t, err)
}

func TestTransformationDescComposition(t *testing.T) {
	d := TransformationDesc{Translation: []float64{1, 0, 0}, Scale: []float64{2, 2, 2}}
	tr, err := d.Transformation()
	require.NoError(t, err)
	p := tr.TransformPoint(mgl64.Vec3{1, 1, 1})
	assert.True(t, VecEqualThreshold(p, mgl64.Vec3{3, 2, 2}, 1e-12), "%v", p)

	_, err = (&TransformationDesc{Matrix: [][]float64{{1, 0, 0, 0}}}).Transformation()
	assert.Error(t, err)
}
