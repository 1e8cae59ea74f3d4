package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

const Epsilon = 1e-9

// Frame is an origin plus an orthonormal basis. Z axis is implied as X cross Y.
type Frame struct {
	Point mgl64.Vec3
	XAxis mgl64.Vec3
	YAxis mgl64.Vec3
}

func WorldXY() Frame {
	return Frame{
		Point: mgl64.Vec3{0, 0, 0},
		XAxis: mgl64.Vec3{1, 0, 0},
		YAxis: mgl64.Vec3{0, 1, 0},
	}
}

// NewFrame orthonormalizes the given axes. Y is projected onto the plane
// perpendicular to X before normalization.
func NewFrame(point, xaxis, yaxis mgl64.Vec3) (Frame, error) {
	if xaxis.Len() < Epsilon {
		return Frame{}, errors.Errorf("Frame x axis has zero length")
	}
	x := xaxis.Normalize()
	y := yaxis.Sub(x.Mul(yaxis.Dot(x)))
	if y.Len() < Epsilon {
		return Frame{}, errors.Errorf("Frame axes %v and %v are parallel", xaxis, yaxis)
	}
	return Frame{Point: point, XAxis: x, YAxis: y.Normalize()}, nil
}

func (f Frame) ZAxis() mgl64.Vec3 {
	return f.XAxis.Cross(f.YAxis)
}

// RotationMatrix returns the basis as a rotation matrix with the axes as columns.
func (f Frame) RotationMatrix() mgl64.Mat3 {
	return mgl64.Mat3FromCols(f.XAxis, f.YAxis, f.ZAxis())
}

// FrameFromRotationMatrix builds a frame from the first two columns of a rotation.
func FrameFromRotationMatrix(r mgl64.Mat3, point mgl64.Vec3) Frame {
	return Frame{Point: point, XAxis: r.Col(0), YAxis: r.Col(1)}
}

// FrameFromPlane picks the longest of three vectors perpendicular to the
// plane normal as the x axis, so the result never degenerates.
func FrameFromPlane(p Plane) Frame {
	n := p.Normal.Normalize()
	candidates := [3]mgl64.Vec3{
		{-n[1], n[0], 0},
		{0, -n[2], n[1]},
		{n[2], 0, -n[0]},
	}
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Len() > candidates[best].Len() {
			best = i
		}
	}
	x := candidates[best].Normalize()
	y := n.Cross(x).Normalize()
	return Frame{Point: p.Point, XAxis: x, YAxis: y}
}

// FrameFromRPY builds a frame from fixed-axis roll, pitch and yaw in radians
// (rotation about X, then Y, then Z).
func FrameFromRPY(xyz, rpy mgl64.Vec3) Frame {
	r := mgl64.Rotate3DZ(rpy[2]).Mul3(mgl64.Rotate3DY(rpy[1])).Mul3(mgl64.Rotate3DX(rpy[0]))
	return FrameFromRotationMatrix(r, xyz)
}

// VecEqualThreshold compares component-wise with an absolute tolerance.
// mgl64's ApproxEqualThreshold is relative and fails next to zero.
func VecEqualThreshold(a, b mgl64.Vec3, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func (f Frame) EqualThreshold(o Frame, eps float64) bool {
	return VecEqualThreshold(f.Point, o.Point, eps) &&
		VecEqualThreshold(f.XAxis, o.XAxis, eps) &&
		VecEqualThreshold(f.YAxis, o.YAxis, eps)
}

func (f Frame) IsOrthonormal(eps float64) bool {
	return math.Abs(f.XAxis.Len()-1) < eps &&
		math.Abs(f.YAxis.Len()-1) < eps &&
		math.Abs(f.XAxis.Dot(f.YAxis)) < eps
}

// Plane is a point and a normal.
type Plane struct {
	Point  mgl64.Vec3
	Normal mgl64.Vec3
}

func WorldXYPlane() Plane {
	return Plane{Normal: mgl64.Vec3{0, 0, 1}}
}
