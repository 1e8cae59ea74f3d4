package usd

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

const (
	xformOpPrefix    = "xformOp:"
	XformOpOrderAttr = "xformOpOrder"
)

// RotationOrder names the axis applied first to last: XYZ rotates about X
// first, which composes as Rz * Ry * Rx on column vectors.
type RotationOrder int

const (
	RotationOrderXYZ RotationOrder = iota
	RotationOrderXZY
	RotationOrderYXZ
	RotationOrderYZX
	RotationOrderZXY
	RotationOrderZYX
)

var rotationOrderNames = [...]string{"XYZ", "XZY", "YXZ", "YZX", "ZXY", "ZYX"}

var RotationOrders = []RotationOrder{
	RotationOrderXYZ, RotationOrderXZY, RotationOrderYXZ,
	RotationOrderYZX, RotationOrderZXY, RotationOrderZYX,
}

func (o RotationOrder) IsValid() bool {
	return o >= RotationOrderXYZ && o <= RotationOrderZYX
}

func (o RotationOrder) String() string {
	if !o.IsValid() {
		return "invalid"
	}
	return rotationOrderNames[o]
}

func ParseRotationOrder(s string) (RotationOrder, error) {
	upper := strings.ToUpper(s)
	for i, name := range rotationOrderNames {
		if name == upper {
			return RotationOrder(i), nil
		}
	}
	return 0, errors.Errorf("Unknown rotation order %q", s)
}

// Axes returns axis indices (0 = X) in application order.
func (o RotationOrder) Axes() [3]int {
	var axes [3]int
	for i, c := range rotationOrderNames[o] {
		axes[i] = int(c - 'X')
	}
	return axes
}

func axisRotation(axis int, radians float64) mgl64.Mat4 {
	switch axis {
	case 0:
		return mgl64.HomogRotate3DX(radians)
	case 1:
		return mgl64.HomogRotate3DY(radians)
	default:
		return mgl64.HomogRotate3DZ(radians)
	}
}

// Matrix composes the rotation for per-axis angles in degrees.
func (o RotationOrder) Matrix(degrees mgl64.Vec3) mgl64.Mat4 {
	m := mgl64.Ident4()
	for _, axis := range o.Axes() {
		m = axisRotation(axis, mgl64.DegToRad(degrees[axis])).Mul4(m)
	}
	return m
}

type XformOpType int

const (
	XformOpInvalid XformOpType = iota
	XformOpTranslate
	XformOpScale
	XformOpRotateX
	XformOpRotateY
	XformOpRotateZ
	XformOpRotateXYZ
	XformOpRotateXZY
	XformOpRotateYXZ
	XformOpRotateYZX
	XformOpRotateZXY
	XformOpRotateZYX
	XformOpOrient
	XformOpTransform
)

var xformOpNames = map[XformOpType]string{
	XformOpTranslate: "translate",
	XformOpScale:     "scale",
	XformOpRotateX:   "rotateX",
	XformOpRotateY:   "rotateY",
	XformOpRotateZ:   "rotateZ",
	XformOpRotateXYZ: "rotateXYZ",
	XformOpRotateXZY: "rotateXZY",
	XformOpRotateYXZ: "rotateYXZ",
	XformOpRotateYZX: "rotateYZX",
	XformOpRotateZXY: "rotateZXY",
	XformOpRotateZYX: "rotateZYX",
	XformOpOrient:    "orient",
	XformOpTransform: "transform",
}

func (t XformOpType) String() string {
	if name, ok := xformOpNames[t]; ok {
		return name
	}
	return "invalid"
}

func RotateOpType(o RotationOrder) XformOpType {
	return XformOpRotateXYZ + XformOpType(o)
}

func (t XformOpType) IsThreeAxisRotate() bool {
	return t >= XformOpRotateXYZ && t <= XformOpRotateZYX
}

func (t XformOpType) RotationOrder() (RotationOrder, bool) {
	if !t.IsThreeAxisRotate() {
		return 0, false
	}
	return RotationOrder(t - XformOpRotateXYZ), true
}

type Precision int

const (
	PrecisionDouble Precision = iota
	PrecisionFloat
)

func (t XformOpType) valueType(p Precision) ValueType {
	switch t {
	case XformOpTransform:
		return TypeMatrix4d
	case XformOpOrient:
		if p == PrecisionFloat {
			return TypeQuatf
		}
		return TypeQuatd
	case XformOpRotateX, XformOpRotateY, XformOpRotateZ:
		if p == PrecisionFloat {
			return TypeFloat
		}
		return TypeDouble
	default:
		if p == PrecisionFloat {
			return TypeFloat3
		}
		return TypeDouble3
	}
}

func opAttrName(t XformOpType, suffix string) string {
	name := xformOpPrefix + t.String()
	if suffix != "" {
		name += ":" + suffix
	}
	return name
}

func parseOpAttrName(name string) (XformOpType, string, bool) {
	if !strings.HasPrefix(name, xformOpPrefix) {
		return XformOpInvalid, "", false
	}
	parts := strings.SplitN(name[len(xformOpPrefix):], ":", 2)
	for t, n := range xformOpNames {
		if n == parts[0] {
			suffix := ""
			if len(parts) == 2 {
				suffix = parts[1]
			}
			return t, suffix, true
		}
	}
	return XformOpInvalid, "", false
}

// XformOp is a typed view over one xformOp:* attribute.
type XformOp struct {
	attr   *Attribute
	opType XformOpType
	suffix string
}

func (op XformOp) Attr() *Attribute    { return op.attr }
func (op XformOp) OpType() XformOpType { return op.opType }
func (op XformOp) OpName() string      { return op.attr.name }
func (op XformOp) Suffix() string      { return op.suffix }

func (op XformOp) Set(v interface{}) error {
	return op.attr.Set(v)
}

func (op XformOp) SetAt(t float64, v interface{}) error {
	return op.attr.SetAt(t, v)
}

func (op XformOp) GetAt(t float64) (interface{}, bool) {
	return op.attr.GetAt(t)
}

// Transform evaluates the op at time t. Unauthored ops are identity.
func (op XformOp) Transform(t float64) (mgl64.Mat4, error) {
	v, ok := op.attr.GetAt(t)
	if !ok {
		return mgl64.Ident4(), nil
	}
	return opTransform(op.opType, v)
}

func opTransform(t XformOpType, v interface{}) (mgl64.Mat4, error) {
	var bad error = errUnexpectedOpValue{t: t, v: v}
	switch t {
	case XformOpTransform:
		m, ok := v.(mgl64.Mat4)
		if !ok {
			return mgl64.Mat4{}, bad
		}
		return m, nil
	case XformOpTranslate:
		vec, ok := Vec3d(v)
		if !ok {
			return mgl64.Mat4{}, bad
		}
		return mgl64.Translate3D(vec[0], vec[1], vec[2]), nil
	case XformOpScale:
		vec, ok := Vec3d(v)
		if !ok {
			return mgl64.Mat4{}, bad
		}
		return mgl64.Scale3D(vec[0], vec[1], vec[2]), nil
	case XformOpRotateX, XformOpRotateY, XformOpRotateZ:
		angle, ok := Float64(v)
		if !ok {
			return mgl64.Mat4{}, bad
		}
		return axisRotation(int(t-XformOpRotateX), mgl64.DegToRad(angle)), nil
	case XformOpOrient:
		switch q := v.(type) {
		case mgl64.Quat:
			return q.Normalize().Mat4(), nil
		case mgl32.Quat:
			return mgl64.Quat{W: float64(q.W), V: mgl64.Vec3{float64(q.V[0]), float64(q.V[1]), float64(q.V[2])}}.Normalize().Mat4(), nil
		}
		return mgl64.Mat4{}, bad
	default:
		order, ok := t.RotationOrder()
		if !ok {
			return mgl64.Mat4{}, errors.Errorf("Invalid xform op type %d", t)
		}
		vec, ok := Vec3d(v)
		if !ok {
			return mgl64.Mat4{}, bad
		}
		return order.Matrix(vec), nil
	}
}

type errUnexpectedOpValue struct {
	t XformOpType
	v interface{}
}

func (e errUnexpectedOpValue) Error() string {
	return fmt.Sprintf("Unexpected %T value for %v op", e.v, e.t)
}

// Xformable gives access to the ordered transform ops of a prim.
type Xformable struct {
	prim *Prim
}

func NewXformable(p *Prim) Xformable { return Xformable{prim: p} }

func (x Xformable) Prim() *Prim { return x.prim }

func (x Xformable) orderAttr() *Attribute {
	return x.prim.schemaAttr(XformOpOrderAttr, TypeTokenArray, true)
}

func (x Xformable) opOrder() []Token {
	a := x.prim.GetAttribute(XformOpOrderAttr)
	if a == nil {
		return nil
	}
	v, _ := a.Get()
	order, _ := v.([]Token)
	return order
}

// AddXformOp appends an op to xformOpOrder. An op with the same name already
// in the order is rejected.
func (x Xformable) AddXformOp(opType XformOpType, precision Precision, suffix string) (XformOp, error) {
	if _, ok := xformOpNames[opType]; !ok {
		return XformOp{}, errors.Errorf("Invalid xform op type %d", opType)
	}
	name := opAttrName(opType, suffix)
	order := x.opOrder()
	for _, n := range order {
		if string(n) == name {
			return XformOp{}, errors.Errorf("Xform op %q already exists in %v xformOpOrder", name, x.prim.path)
		}
	}

	typ := opType.valueType(precision)
	attr := x.prim.GetAttribute(name)
	if attr != nil && attr.typ != typ {
		x.prim.RemoveAttribute(name)
		attr = nil
	}
	if attr == nil {
		attr = x.prim.schemaAttr(name, typ, false)
	}

	newOrder := append(append([]Token(nil), order...), Token(name))
	if err := x.orderAttr().Set(newOrder); err != nil {
		return XformOp{}, err
	}
	return XformOp{attr: attr, opType: opType, suffix: suffix}, nil
}

func (x Xformable) AddTranslateOp() (XformOp, error) {
	return x.AddXformOp(XformOpTranslate, PrecisionDouble, "")
}

func (x Xformable) AddScaleOp() (XformOp, error) {
	return x.AddXformOp(XformOpScale, PrecisionDouble, "")
}

func (x Xformable) AddRotateOp(order RotationOrder) (XformOp, error) {
	if !order.IsValid() {
		return XformOp{}, errors.Errorf("Invalid rotation order %d", order)
	}
	return x.AddXformOp(RotateOpType(order), PrecisionDouble, "")
}

func (x Xformable) AddOrientOp() (XformOp, error) {
	return x.AddXformOp(XformOpOrient, PrecisionDouble, "")
}

func (x Xformable) AddTransformOp() (XformOp, error) {
	return x.AddXformOp(XformOpTransform, PrecisionDouble, "")
}

// ClearXformOpOrder empties xformOpOrder. Op attributes stay on the prim.
func (x Xformable) ClearXformOpOrder() error {
	return x.orderAttr().Set([]Token{})
}

// ResetXformOps clears the order and removes every op attribute, so that a
// fresh op can be added without accumulating stale samples.
func (x Xformable) ResetXformOps() error {
	for _, a := range x.prim.Attributes() {
		if strings.HasPrefix(a.name, xformOpPrefix) {
			x.prim.RemoveAttribute(a.name)
		}
	}
	return x.ClearXformOpOrder()
}

func (x Xformable) GetOrderedXformOps() ([]XformOp, error) {
	order := x.opOrder()
	ops := make([]XformOp, 0, len(order))
	for _, name := range order {
		opType, suffix, ok := parseOpAttrName(string(name))
		if !ok {
			return nil, errors.Errorf("Unsupported xformOpOrder entry %q on %v", name, x.prim.path)
		}
		attr := x.prim.GetAttribute(string(name))
		if attr == nil {
			return nil, errors.Errorf("Xform op %q of %v has no attribute", name, x.prim.path)
		}
		ops = append(ops, XformOp{attr: attr, opType: opType, suffix: suffix})
	}
	return ops, nil
}

// LocalTransformation composes ops at time t. The first op in the order is
// the outermost, so it is applied last to points.
func (x Xformable) LocalTransformation(t float64) (mgl64.Mat4, error) {
	ops, err := x.GetOrderedXformOps()
	if err != nil {
		return mgl64.Mat4{}, err
	}
	m := mgl64.Ident4()
	for _, op := range ops {
		opM, err := op.Transform(t)
		if err != nil {
			return mgl64.Mat4{}, errors.Wrapf(err, "Prim %v", x.prim.path)
		}
		m = m.Mul4(opM)
	}
	return m, nil
}

// WorldTransformation composes local transformations of all xformable
// ancestors.
func (x Xformable) WorldTransformation(t float64) (mgl64.Mat4, error) {
	m := mgl64.Ident4()
	for p := x.prim; p != nil && !p.IsPseudoRoot(); p = p.parent {
		local, err := NewXformable(p).LocalTransformation(t)
		if err != nil {
			return mgl64.Mat4{}, err
		}
		m = local.Mul4(m)
	}
	return m, nil
}

// XformCommonAPI maintains the canonical [translate, rotate, scale] op stack.
type XformCommonAPI struct {
	x Xformable
}

func NewXformCommonAPI(p *Prim) XformCommonAPI {
	return XformCommonAPI{x: NewXformable(p)}
}

type commonOps struct {
	translate *XformOp
	rotate    *XformOp
	scale     *XformOp
}

func (api XformCommonAPI) ops() (commonOps, error) {
	var c commonOps
	ops, err := api.x.GetOrderedXformOps()
	if err != nil {
		return c, err
	}
	rank := 0
	for i := range ops {
		op := ops[i]
		var r int
		switch {
		case op.opType == XformOpTranslate && op.suffix == "":
			c.translate, r = &ops[i], 1
		case op.opType.IsThreeAxisRotate() && op.suffix == "":
			c.rotate, r = &ops[i], 2
		case op.opType == XformOpScale && op.suffix == "":
			c.scale, r = &ops[i], 3
		default:
			return c, errors.Errorf("Prim %v has xform op %q incompatible with XformCommonAPI", api.x.prim.path, op.OpName())
		}
		if r <= rank {
			return c, errors.Errorf("Prim %v xformOpOrder is not in translate, rotate, scale order", api.x.prim.path)
		}
		rank = r
	}
	return c, nil
}

func (api XformCommonAPI) writeOrder(c commonOps) error {
	order := make([]Token, 0, 3)
	for _, op := range []*XformOp{c.translate, c.rotate, c.scale} {
		if op != nil {
			order = append(order, Token(op.OpName()))
		}
	}
	return api.x.orderAttr().Set(order)
}

func (api XformCommonAPI) ensure(c *commonOps, slot **XformOp, opType XformOpType, precision Precision) error {
	if *slot != nil {
		return nil
	}
	name := opAttrName(opType, "")
	typ := opType.valueType(precision)
	if a := api.x.prim.GetAttribute(name); a != nil && a.typ != typ {
		api.x.prim.RemoveAttribute(name)
	}
	*slot = &XformOp{attr: api.x.prim.schemaAttr(name, typ, false), opType: opType}
	return api.writeOrder(*c)
}

func (api XformCommonAPI) SetTranslate(v mgl64.Vec3) error {
	c, err := api.ops()
	if err != nil {
		return err
	}
	if err := api.ensure(&c, &c.translate, XformOpTranslate, PrecisionDouble); err != nil {
		return err
	}
	return c.translate.setVec3(v)
}

// SetRotate sets rotation angles in degrees. An existing rotate op of a
// different order is replaced.
func (api XformCommonAPI) SetRotate(degrees mgl32.Vec3, order RotationOrder) error {
	if !order.IsValid() {
		return errors.Errorf("Invalid rotation order %d", order)
	}
	c, err := api.ops()
	if err != nil {
		return err
	}
	if c.rotate != nil && c.rotate.opType != RotateOpType(order) {
		api.x.prim.RemoveAttribute(c.rotate.OpName())
		c.rotate = nil
	}
	if err := api.ensure(&c, &c.rotate, RotateOpType(order), PrecisionFloat); err != nil {
		return err
	}
	r := mgl64.Vec3{float64(degrees[0]), float64(degrees[1]), float64(degrees[2])}
	return c.rotate.setVec3(r)
}

func (api XformCommonAPI) SetScale(v mgl32.Vec3) error {
	c, err := api.ops()
	if err != nil {
		return err
	}
	if err := api.ensure(&c, &c.scale, XformOpScale, PrecisionFloat); err != nil {
		return err
	}
	return c.scale.setVec3(mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])})
}

// setVec3 writes v at the precision the op was authored with.
func (op XformOp) setVec3(v mgl64.Vec3) error {
	if op.attr.typ == TypeDouble3 {
		return op.Set(v)
	}
	return op.Set(Vec3f(v))
}

type XformVectors struct {
	Translation   mgl64.Vec3
	Rotation      mgl32.Vec3
	Scale         mgl32.Vec3
	RotationOrder RotationOrder
}

// GetXformVectors reads the common op stack at time t. Missing ops read as
// identity.
func (api XformCommonAPI) GetXformVectors(t float64) (XformVectors, error) {
	res := XformVectors{Scale: mgl32.Vec3{1, 1, 1}}
	c, err := api.ops()
	if err != nil {
		return res, err
	}
	if c.translate != nil {
		if v, ok := c.translate.GetAt(t); ok {
			res.Translation, _ = Vec3d(v)
		}
	}
	if c.rotate != nil {
		res.RotationOrder, _ = c.rotate.opType.RotationOrder()
		if v, ok := c.rotate.GetAt(t); ok {
			r, _ := Vec3d(v)
			res.Rotation = Vec3f(r)
		}
	}
	if c.scale != nil {
		if v, ok := c.scale.GetAt(t); ok {
			s, _ := Vec3d(v)
			res.Scale = Vec3f(s)
		}
	}
	return res, nil
}
