package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transformation is a 4x4 homogeneous matrix stored row-major, acting on
// column vectors: translation lives in the last column.
type Transformation struct {
	Matrix [4][4]float64
}

func Identity() Transformation {
	var t Transformation
	for i := 0; i < 4; i++ {
		t.Matrix[i][i] = 1
	}
	return t
}

func NewTransformation(rows [4][4]float64) Transformation {
	return Transformation{Matrix: rows}
}

func Translation(v mgl64.Vec3) Transformation {
	t := Identity()
	t.Matrix[0][3] = v[0]
	t.Matrix[1][3] = v[1]
	t.Matrix[2][3] = v[2]
	return t
}

func Scale(x, y, z float64) Transformation {
	t := Identity()
	t.Matrix[0][0] = x
	t.Matrix[1][1] = y
	t.Matrix[2][2] = z
	return t
}

// TransformationFromFrame maps world XY onto the frame.
func TransformationFromFrame(f Frame) Transformation {
	t := Identity()
	x, y, z := f.XAxis, f.YAxis, f.ZAxis()
	for i := 0; i < 3; i++ {
		t.Matrix[i][0] = x[i]
		t.Matrix[i][1] = y[i]
		t.Matrix[i][2] = z[i]
		t.Matrix[i][3] = f.Point[i]
	}
	return t
}

// RotationAxisAngle rotates by angle radians about an axis through point.
func RotationAxisAngle(axis mgl64.Vec3, angle float64, point mgl64.Vec3) Transformation {
	r := mgl64.HomogRotate3D(angle, axis.Normalize())
	m := mgl64.Translate3D(point[0], point[1], point[2]).
		Mul4(r).
		Mul4(mgl64.Translate3D(-point[0], -point[1], -point[2]))
	var t Transformation
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			t.Matrix[row][col] = m.At(row, col)
		}
	}
	return t
}

// Mul returns t * o, i.e. o is applied first.
func (t Transformation) Mul(o Transformation) Transformation {
	var r Transformation
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += t.Matrix[i][k] * o.Matrix[k][j]
			}
			r.Matrix[i][j] = s
		}
	}
	return r
}

func (t Transformation) Transposed() Transformation {
	var r Transformation
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r.Matrix[j][i] = t.Matrix[i][j]
		}
	}
	return r
}

func (t Transformation) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	var r mgl64.Vec3
	for i := 0; i < 3; i++ {
		r[i] = t.Matrix[i][0]*p[0] + t.Matrix[i][1]*p[1] + t.Matrix[i][2]*p[2] + t.Matrix[i][3]
	}
	return r
}

func (t Transformation) TransformVector(v mgl64.Vec3) mgl64.Vec3 {
	var r mgl64.Vec3
	for i := 0; i < 3; i++ {
		r[i] = t.Matrix[i][0]*v[0] + t.Matrix[i][1]*v[1] + t.Matrix[i][2]*v[2]
	}
	return r
}

func (t Transformation) TranslationVector() mgl64.Vec3 {
	return mgl64.Vec3{t.Matrix[0][3], t.Matrix[1][3], t.Matrix[2][3]}
}

// Frame returns the image of world XY under t. Scale is normalized away.
func (t Transformation) Frame() Frame {
	x := mgl64.Vec3{t.Matrix[0][0], t.Matrix[1][0], t.Matrix[2][0]}
	y := mgl64.Vec3{t.Matrix[0][1], t.Matrix[1][1], t.Matrix[2][1]}
	f, err := NewFrame(t.TranslationVector(), x, y)
	if err != nil {
		return Frame{Point: t.TranslationVector(), XAxis: mgl64.Vec3{1, 0, 0}, YAxis: mgl64.Vec3{0, 1, 0}}
	}
	return f
}

func (t Transformation) IsIdentity(eps float64) bool {
	return t.EqualThreshold(Identity(), eps)
}

func (t Transformation) EqualThreshold(o Transformation, eps float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(t.Matrix[i][j]-o.Matrix[i][j]) > eps {
				return false
			}
		}
	}
	return true
}

func (t Transformation) String() string {
	return fmt.Sprintf("Transformation(%v)", t.Matrix)
}
