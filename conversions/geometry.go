package conversions

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mogaika/usd_exporter/geom"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/pkg/errors"
)

// Unflatten splits array into rows of n elements.
func Unflatten[T any](array []T, n int) ([][]T, error) {
	if n <= 0 {
		return nil, errors.Errorf("Row width must be positive, got %d", n)
	}
	if len(array)%n != 0 {
		return nil, errors.Errorf("The length of the array must be a factor of n: %d %% %d == 0", len(array), n)
	}
	rows := make([][]T, 0, len(array)/n)
	for i := 0; i < len(array); i += n {
		rows = append(rows, array[i:i+n])
	}
	return rows, nil
}

func flatten[T any](rows [][]T) []T {
	var out []T
	for _, row := range rows {
		out = append(out, row...)
	}
	return out
}

func transpose[T any](rows [][]T) [][]T {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]T, len(rows[0]))
	for j := range out {
		out[j] = make([]T, len(rows))
		for i := range rows {
			out[j][i] = rows[i][j]
		}
	}
	return out
}

func points32(points []mgl64.Vec3) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(points))
	for i, p := range points {
		out[i] = usd.Vec3f(p)
	}
	return out
}

// PrimFromBox defines a unit cube scaled to the box sizes and placed at
// the box frame.
func PrimFromBox(stage *usd.Stage, path usd.Path, box *geom.Box) (usd.Cube, error) {
	cube, err := usd.DefineCube(stage, path)
	if err != nil {
		return cube, err
	}
	if err := cube.SizeAttr().Set(1.0); err != nil {
		return cube, err
	}
	scale := mgl32.Vec3{float32(box.XSize), float32(box.YSize), float32(box.ZSize)}
	if err := usd.NewXformCommonAPI(cube.Prim()).SetScale(scale); err != nil {
		return cube, errors.Wrapf(err, "Can't scale box %v", path)
	}
	return cube, ApplyRotateAndTranslateOnPrim(cube.Prim(), box.Frame)
}

func BoxFromPrim(prim *usd.Prim) (*geom.Box, error) {
	if prim.TypeName() != usd.TypeNameCube {
		return nil, errors.Errorf("Prim %v is a %q, not a Cube", prim.Path(), prim.TypeName())
	}
	v, _ := prim.GetValue("size")
	size, _ := usd.Float64(v)
	frame, scale, err := FrameAndScaleFromPrim(prim)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read box frame of %v", prim.Path())
	}
	return geom.NewBox(frame, scale[0]*size, scale[1]*size, scale[2]*size), nil
}

func PrimFromSphere(stage *usd.Stage, path usd.Path, sphere *geom.Sphere) (usd.Sphere, error) {
	s, err := usd.DefineSphere(stage, path)
	if err != nil {
		return s, err
	}
	if err := s.RadiusAttr().Set(sphere.Radius); err != nil {
		return s, err
	}
	return s, usd.NewXformCommonAPI(s.Prim()).SetTranslate(sphere.Center)
}

func SphereFromPrim(prim *usd.Prim) (*geom.Sphere, error) {
	radius, _ := prim.GetValue("radius")
	r, _ := usd.Float64(radius)
	vec, err := usd.NewXformCommonAPI(prim).GetXformVectors(0)
	if err != nil {
		return nil, err
	}
	return geom.NewSphere(vec.Translation, r), nil
}

// PrimFromCylinder stands the cylinder along its local Z axis and orients it
// with the frame of its supporting plane.
func PrimFromCylinder(stage *usd.Stage, path usd.Path, cylinder *geom.Cylinder) (usd.Cylinder, error) {
	c, err := usd.DefineCylinder(stage, path)
	if err != nil {
		return c, err
	}
	if err := c.HeightAttr().Set(cylinder.Height); err != nil {
		return c, err
	}
	if err := c.RadiusAttr().Set(cylinder.Radius); err != nil {
		return c, err
	}
	if err := c.AxisAttr().Set(usd.Token("Z")); err != nil {
		return c, err
	}
	return c, ApplyRotateAndTranslateOnPrim(c.Prim(), geom.FrameFromPlane(cylinder.Plane))
}

func CylinderFromPrim(prim *usd.Prim) (*geom.Cylinder, error) {
	if axis, _ := prim.GetValue("axis"); axis != usd.Token("Z") {
		return nil, errors.Errorf("Cylinder %v has unsupported axis %v", prim.Path(), axis)
	}
	h, _ := prim.GetValue("height")
	r, _ := prim.GetValue("radius")
	height, _ := usd.Float64(h)
	radius, _ := usd.Float64(r)
	frame, _, err := FrameAndScaleFromPrim(prim)
	if err != nil {
		return nil, err
	}
	return geom.NewCylinder(geom.Plane{Point: frame.Point, Normal: frame.ZAxis()}, radius, height), nil
}

// PrimFromMesh copies vertices and faces as is; faces are only flattened.
func PrimFromMesh(stage *usd.Stage, path usd.Path, mesh *geom.Mesh) (usd.Mesh, error) {
	m, err := usd.DefineMesh(stage, path)
	if err != nil {
		return m, err
	}
	vertices, faces := mesh.VerticesAndFaces()
	counts := make([]int, len(faces))
	for i, f := range faces {
		counts[i] = len(f)
	}
	if err := m.PointsAttr().Set(points32(vertices)); err != nil {
		return m, err
	}
	if err := m.FaceVertexCountsAttr().Set(counts); err != nil {
		return m, err
	}
	if err := m.FaceVertexIndicesAttr().Set(flatten(faces)); err != nil {
		return m, err
	}
	return m, nil
}

func MeshFromPrim(prim *usd.Prim) (*geom.Mesh, error) {
	if prim.TypeName() != usd.TypeNameMesh {
		return nil, errors.Errorf("Prim %v is a %q, not a Mesh", prim.Path(), prim.TypeName())
	}
	p, _ := prim.GetValue("points")
	c, _ := prim.GetValue("faceVertexCounts")
	idx, _ := prim.GetValue("faceVertexIndices")
	points, _ := p.([]mgl32.Vec3)
	counts, _ := c.([]int)
	indices, _ := idx.([]int)

	vertices := make([]mgl64.Vec3, len(points))
	for i, v := range points {
		vertices[i] = vec3d(v)
	}
	faces := make([][]int, len(counts))
	offset := 0
	for i, n := range counts {
		if offset+n > len(indices) {
			return nil, errors.Errorf("Mesh %v face counts need more than %d indices", prim.Path(), len(indices))
		}
		faces[i] = append([]int(nil), indices[offset:offset+n]...)
		offset += n
	}
	if offset != len(indices) {
		return nil, errors.Errorf("Mesh %v has %d unused face indices", prim.Path(), len(indices)-offset)
	}
	return geom.NewMesh(vertices, faces)
}

func PrimFromTransformation(stage *usd.Stage, path usd.Path, t geom.Transformation) (usd.Xform, error) {
	x, err := usd.DefineXform(stage, path)
	if err != nil {
		return x, err
	}
	return x, ApplyTransformationOnPrim(x.Prim(), t)
}

// PrimDefault defines an Xform, with a transform op only when t is given.
func PrimDefault(stage *usd.Stage, path usd.Path, t *geom.Transformation) (usd.Xform, error) {
	if t == nil {
		return usd.DefineXform(stage, path)
	}
	return PrimFromTransformation(stage, path, *t)
}

// PrimFromSurface writes control points and weights V-major, the order
// NurbsPatch expects, from the U-major layout of the surface.
func PrimFromSurface(stage *usd.Stage, path usd.Path, surface *geom.NurbsSurface) (usd.NurbsPatch, error) {
	if err := surface.Validate(); err != nil {
		return usd.NurbsPatch{}, errors.Wrapf(err, "Bad surface for %v", path)
	}
	countU, countV := surface.Count()

	weightRows, err := Unflatten(flatten(surface.Weights), countV)
	if err != nil {
		return usd.NurbsPatch{}, err
	}
	pointRows, err := Unflatten(flatten(surface.ControlPoints), countV)
	if err != nil {
		return usd.NurbsPatch{}, err
	}
	weights := flatten(transpose(weightRows))
	points := flatten(transpose(pointRows))

	n, err := usd.DefineNurbsPatch(stage, path)
	if err != nil {
		return n, err
	}
	for _, set := range []struct {
		attr  *usd.Attribute
		value interface{}
	}{
		{n.UVertexCountAttr(), countU},
		{n.VVertexCountAttr(), countV},
		{n.UOrderAttr(), surface.DegreeU + 1},
		{n.VOrderAttr(), surface.DegreeV + 1},
		{n.UKnotsAttr(), append([]float64(nil), surface.KnotsU...)},
		{n.VKnotsAttr(), append([]float64(nil), surface.KnotsV...)},
		{n.PointWeightsAttr(), weights},
		{n.PointsAttr(), points32(points)},
	} {
		if err := set.attr.Set(set.value); err != nil {
			return n, err
		}
	}
	return n, nil
}

func SurfaceFromPrim(prim *usd.Prim) (*geom.NurbsSurface, error) {
	if prim.TypeName() != usd.TypeNameNurbsPatch {
		return nil, errors.Errorf("Prim %v is a %q, not a NurbsPatch", prim.Path(), prim.TypeName())
	}
	get := func(name string) interface{} {
		v, _ := prim.GetValue(name)
		return v
	}
	countU, _ := get("uVertexCount").(int)
	countV, _ := get("vVertexCount").(int)
	orderU, _ := get("uOrder").(int)
	orderV, _ := get("vOrder").(int)
	knotsU, _ := get("uKnots").([]float64)
	knotsV, _ := get("vKnots").([]float64)
	points, _ := get("points").([]mgl32.Vec3)
	weights, _ := get("pointWeights").([]float64)
	if countU*countV != len(points) {
		return nil, errors.Errorf("NurbsPatch %v has %d points for %dx%d", prim.Path(), len(points), countU, countV)
	}

	pointRows, err := Unflatten(points, countU)
	if err != nil {
		return nil, err
	}
	s := &geom.NurbsSurface{
		DegreeU: orderU - 1,
		DegreeV: orderV - 1,
		KnotsU:  knotsU,
		KnotsV:  knotsV,
	}
	for _, row := range transpose(pointRows) {
		out := make([]mgl64.Vec3, len(row))
		for i, p := range row {
			out[i] = vec3d(p)
		}
		s.ControlPoints = append(s.ControlPoints, out)
	}
	if weights == nil {
		weights = make([]float64, len(points))
		for i := range weights {
			weights[i] = 1
		}
	}
	weightRows, err := Unflatten(weights, countU)
	if err != nil {
		return nil, err
	}
	s.Weights = transpose(weightRows)
	return s, s.Validate()
}

// PrimFromShape dispatches over every shape kind. Kinds without a mapping
// are an error, never silently skipped.
func PrimFromShape(stage *usd.Stage, path usd.Path, shape geom.Shape) (*usd.Prim, error) {
	var prim *usd.Prim
	var err error
	switch s := shape.(type) {
	case *geom.Box:
		var c usd.Cube
		c, err = PrimFromBox(stage, path, s)
		prim = c.Prim()
	case *geom.Sphere:
		var sp usd.Sphere
		sp, err = PrimFromSphere(stage, path, s)
		prim = sp.Prim()
	case *geom.Cylinder:
		var c usd.Cylinder
		c, err = PrimFromCylinder(stage, path, s)
		prim = c.Prim()
	case *geom.Mesh:
		var m usd.Mesh
		m, err = PrimFromMesh(stage, path, s)
		prim = m.Prim()
	case *geom.NurbsSurface:
		var n usd.NurbsPatch
		n, err = PrimFromSurface(stage, path, s)
		prim = n.Prim()
	default:
		return nil, errors.Errorf("Unsupported shape %T at %v", shape, path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Can't export %v to %v", shape.Kind(), path)
	}
	return prim, nil
}

// ShapeFromPrim is the partial inverse of PrimFromShape.
func ShapeFromPrim(prim *usd.Prim) (geom.Shape, error) {
	switch prim.TypeName() {
	case usd.TypeNameCube:
		return BoxFromPrim(prim)
	case usd.TypeNameSphere:
		return SphereFromPrim(prim)
	case usd.TypeNameCylinder:
		return CylinderFromPrim(prim)
	case usd.TypeNameMesh:
		return MeshFromPrim(prim)
	case usd.TypeNameNurbsPatch:
		return SurfaceFromPrim(prim)
	}
	return nil, errors.Errorf("Prim %v of type %q has no shape", prim.Path(), prim.TypeName())
}
