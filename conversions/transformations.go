package conversions

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mogaika/usd_exporter/config"
	"github.com/mogaika/usd_exporter/geom"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/pkg/errors"
)

// Matrix4dFromTransformation moves the row-major toolkit matrix into the
// column-major engine layout, element by element.
func Matrix4dFromTransformation(t geom.Transformation) mgl64.Mat4 {
	var m mgl64.Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			m[col*4+row] = t.Matrix[row][col]
		}
	}
	return m
}

func TransformationFromMatrix4d(m mgl64.Mat4) geom.Transformation {
	var t geom.Transformation
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			t.Matrix[row][col] = m[col*4+row]
		}
	}
	return t
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// XformRotateFromFrame decomposes the frame rotation into angles in degrees,
// indexed by axis (x, y, z), for the given rotation order.
func XformRotateFromFrame(frame geom.Frame, order usd.RotationOrder) (mgl64.Vec3, error) {
	if !order.IsValid() {
		return mgl64.Vec3{}, errors.Errorf("Unknown rotation order %d", order)
	}
	r := frame.RotationMatrix()

	// order ABC composes as Rc * Rb * Ra, i.e. the intrinsic sequence C, B, A
	axes := order.Axes()
	i, j, k := axes[2], axes[1], axes[0]
	s := -1.0
	if j == (i+1)%3 {
		s = 1
	}

	var a, b, c float64
	sb := clamp(s * r.At(i, k))
	b = math.Asin(sb)
	if math.Abs(sb) < 1-1e-9 {
		a = math.Atan2(-s*r.At(j, k), r.At(k, k))
		c = math.Atan2(-s*r.At(i, j), r.At(i, i))
	} else {
		a = math.Atan2(sb*r.At(j, i), r.At(j, j))
	}

	var degrees mgl64.Vec3
	degrees[i] = mgl64.RadToDeg(a)
	degrees[j] = mgl64.RadToDeg(b)
	degrees[k] = mgl64.RadToDeg(c)
	return degrees, nil
}

// FrameFromXformRotate composes angles in degrees, indexed by axis, back
// into a frame at point.
func FrameFromXformRotate(degrees mgl64.Vec3, order usd.RotationOrder, point mgl64.Vec3) (geom.Frame, error) {
	if !order.IsValid() {
		return geom.Frame{}, errors.Errorf("Unknown rotation order %d", order)
	}
	return geom.FrameFromRotationMatrix(order.Matrix(degrees).Mat3(), point), nil
}

// TranslateAndOrientFromFrame returns the frame origin and a unit quaternion
// with non-negative w.
func TranslateAndOrientFromFrame(frame geom.Frame) (mgl64.Vec3, mgl64.Quat) {
	q := mgl64.Mat4ToQuat(frame.RotationMatrix().Mat4()).Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	return frame.Point, q
}

// ApplyTransformationOnPrim appends a transform op holding t.
func ApplyTransformationOnPrim(prim *usd.Prim, t geom.Transformation) error {
	op, err := usd.NewXformable(prim).AddTransformOp()
	if err != nil {
		return errors.Wrapf(err, "Can't add transform op to %v", prim.Path())
	}
	return op.Set(Matrix4dFromTransformation(t))
}

// ApplyRotateAndTranslateOnPrim writes the frame through XformCommonAPI,
// keeping the rotation order already authored on the prim.
func ApplyRotateAndTranslateOnPrim(prim *usd.Prim, frame geom.Frame) error {
	ops, err := usd.NewXformable(prim).GetOrderedXformOps()
	if err != nil {
		return err
	}
	order := config.GetRotationOrder()
	for _, op := range ops {
		if o, ok := op.OpType().RotationOrder(); ok {
			order = o
		}
	}

	angles, err := XformRotateFromFrame(frame, order)
	if err != nil {
		return err
	}
	api := usd.NewXformCommonAPI(prim)
	if err := api.SetRotate(usd.Vec3f(angles), order); err != nil {
		return errors.Wrapf(err, "Can't set rotation of %v", prim.Path())
	}
	if err := api.SetTranslate(frame.Point); err != nil {
		return errors.Wrapf(err, "Can't set translation of %v", prim.Path())
	}
	return nil
}

// FrameAndScaleFromPrim reads the XformCommonAPI vectors at time 0.
func FrameAndScaleFromPrim(prim *usd.Prim) (geom.Frame, mgl64.Vec3, error) {
	vec, err := usd.NewXformCommonAPI(prim).GetXformVectors(0)
	if err != nil {
		return geom.Frame{}, mgl64.Vec3{}, err
	}
	r := vec.Rotation
	frame, err := FrameFromXformRotate(mgl64.Vec3{float64(r[0]), float64(r[1]), float64(r[2])}, vec.RotationOrder, vec.Translation)
	if err != nil {
		return geom.Frame{}, mgl64.Vec3{}, err
	}
	return frame, vec3d(vec.Scale), nil
}

func vec3d(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}
