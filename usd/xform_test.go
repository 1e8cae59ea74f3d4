package usd

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mogaika/usd_exporter/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transformPoint(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

func TestParseRotationOrder(t *testing.T) {
	for _, o := range RotationOrders {
		parsed, err := ParseRotationOrder(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, parsed)
	}
	o, err := ParseRotationOrder("zyx")
	require.NoError(t, err)
	assert.Equal(t, RotationOrderZYX, o)

	_, err = ParseRotationOrder("XXY")
	assert.Error(t, err)
	assert.False(t, RotationOrder(17).IsValid())
}

func TestRotationOrderAppliesFirstAxisFirst(t *testing.T) {
	// about X first: y -> z, then about Z leaves z alone
	m := RotationOrderXYZ.Matrix(mgl64.Vec3{90, 0, 90})
	p := transformPoint(m, mgl64.Vec3{0, 1, 0})
	assert.True(t, geom.VecEqualThreshold(p, mgl64.Vec3{0, 0, 1}, 1e-12), "%v", p)

	// about Z first: y -> -x, then about X leaves x alone
	m = RotationOrderZYX.Matrix(mgl64.Vec3{90, 0, 90})
	p = transformPoint(m, mgl64.Vec3{0, 1, 0})
	assert.True(t, geom.VecEqualThreshold(p, mgl64.Vec3{-1, 0, 0}, 1e-12), "%v", p)
}

func TestAddXformOpRejectsDuplicates(t *testing.T) {
	s := CreateInMemory()
	x, err := DefineXform(s, "/x")
	require.NoError(t, err)

	_, err = x.AddTransformOp()
	require.NoError(t, err)
	_, err = x.AddTransformOp()
	assert.Error(t, err)

	_, err = x.AddXformOp(XformOpTranslate, PrecisionDouble, "pivot")
	assert.NoError(t, err)
	ops, err := x.GetOrderedXformOps()
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "xformOp:translate:pivot", ops[1].OpName())
}

func TestResetXformOpsIsIdempotent(t *testing.T) {
	s := CreateInMemory()
	x, _ := DefineXform(s, "/x")
	for i := 0; i < 3; i++ {
		require.NoError(t, x.ResetXformOps())
		op, err := x.AddTransformOp()
		require.NoError(t, err)
		require.NoError(t, op.SetAt(0, mgl64.Ident4()))
	}
	ops, err := x.GetOrderedXformOps()
	require.NoError(t, err)
	assert.Len(t, ops, 1)
	assert.Equal(t, 1, ops[0].Attr().NumTimeSamples())

	require.NoError(t, x.ClearXformOpOrder())
	ops, _ = x.GetOrderedXformOps()
	assert.Len(t, ops, 0)
	assert.NotNil(t, x.Prim().GetAttribute("xformOp:transform"))
}

func TestLocalTransformationOrder(t *testing.T) {
	s := CreateInMemory()
	x, _ := DefineXform(s, "/x")
	tr, _ := x.AddTranslateOp()
	require.NoError(t, tr.Set(mgl64.Vec3{1, 0, 0}))
	rot, _ := x.AddXformOp(XformOpRotateZ, PrecisionDouble, "")
	require.NoError(t, rot.Set(90.0))

	m, err := x.LocalTransformation(0)
	require.NoError(t, err)
	p := transformPoint(m, mgl64.Vec3{1, 0, 0})
	assert.True(t, geom.VecEqualThreshold(p, mgl64.Vec3{1, 1, 0}, 1e-12), "%v", p)
}

func TestLocalTransformationSampled(t *testing.T) {
	s := CreateInMemory()
	x, _ := DefineXform(s, "/x")
	op, _ := x.AddTransformOp()
	require.NoError(t, op.SetAt(0, mgl64.Translate3D(1, 0, 0)))
	require.NoError(t, op.SetAt(1, mgl64.Translate3D(2, 0, 0)))

	m, err := x.LocalTransformation(1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, m.At(0, 3))
}

func TestWorldTransformation(t *testing.T) {
	s := CreateInMemory()
	parent, _ := DefineXform(s, "/parent")
	child, _ := DefineXform(s, "/parent/child")
	op, _ := parent.AddTranslateOp()
	require.NoError(t, op.Set(mgl64.Vec3{0, 0, 5}))
	op, _ = child.AddTranslateOp()
	require.NoError(t, op.Set(mgl64.Vec3{1, 0, 0}))

	m, err := child.WorldTransformation(0)
	require.NoError(t, err)
	p := transformPoint(m, mgl64.Vec3{})
	assert.True(t, geom.VecEqualThreshold(p, mgl64.Vec3{1, 0, 5}, 1e-12), "%v", p)
}

func TestXformCommonAPICanonicalOrder(t *testing.T) {
	s := CreateInMemory()
	cube, _ := DefineCube(s, "/cube")
	api := NewXformCommonAPI(cube.Prim())

	require.NoError(t, api.SetScale(mgl32.Vec3{1, 2, 3}))
	require.NoError(t, api.SetRotate(mgl32.Vec3{10, 20, 30}, RotationOrderZYX))
	require.NoError(t, api.SetTranslate(mgl64.Vec3{4, 5, 6}))

	v, _ := cube.Prim().GetAttribute(XformOpOrderAttr).Get()
	assert.Equal(t, []Token{"xformOp:translate", "xformOp:rotateZYX", "xformOp:scale"}, v)

	vec, err := api.GetXformVectors(0)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{4, 5, 6}, vec.Translation)
	assert.Equal(t, mgl32.Vec3{10, 20, 30}, vec.Rotation)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, vec.Scale)
	assert.Equal(t, RotationOrderZYX, vec.RotationOrder)

	// changing the order replaces the rotate op in place
	require.NoError(t, api.SetRotate(mgl32.Vec3{1, 2, 3}, RotationOrderXYZ))
	v, _ = cube.Prim().GetAttribute(XformOpOrderAttr).Get()
	assert.Equal(t, []Token{"xformOp:translate", "xformOp:rotateXYZ", "xformOp:scale"}, v)
	assert.Nil(t, cube.Prim().GetAttribute("xformOp:rotateZYX"))
}

func TestXformCommonAPIIncompatible(t *testing.T) {
	s := CreateInMemory()
	x, _ := DefineXform(s, "/x")
	_, err := x.AddTransformOp()
	require.NoError(t, err)
	assert.Error(t, NewXformCommonAPI(x.Prim()).SetTranslate(mgl64.Vec3{}))
}
