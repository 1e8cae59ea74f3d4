package usd

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Prim type names
const (
	TypeNameXform      = "Xform"
	TypeNameScope      = "Scope"
	TypeNameCube       = "Cube"
	TypeNameSphere     = "Sphere"
	TypeNameCylinder   = "Cylinder"
	TypeNameMesh       = "Mesh"
	TypeNameNurbsPatch = "NurbsPatch"
	TypeNameMaterial   = "Material"
	TypeNameShader     = "Shader"
)

func definePrim(s *Stage, path Path, typeName string) (*Prim, error) {
	p, err := s.DefinePrim(path, typeName)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't define %s", typeName)
	}
	return p, nil
}

type Xform struct{ Xformable }

func DefineXform(s *Stage, path Path) (Xform, error) {
	p, err := definePrim(s, path, TypeNameXform)
	return Xform{Xformable{prim: p}}, err
}

type Scope struct {
	prim *Prim
}

func DefineScope(s *Stage, path Path) (Scope, error) {
	p, err := definePrim(s, path, TypeNameScope)
	return Scope{prim: p}, err
}

func (s Scope) Prim() *Prim { return s.prim }

type Cube struct{ Xformable }

func DefineCube(s *Stage, path Path) (Cube, error) {
	p, err := definePrim(s, path, TypeNameCube)
	return Cube{Xformable{prim: p}}, err
}

func (c Cube) SizeAttr() *Attribute { return c.prim.schemaAttr("size", TypeDouble, false) }

func (c Cube) Size() float64 {
	v, _ := c.prim.GetValue("size")
	f, _ := Float64(v)
	return f
}

type Sphere struct{ Xformable }

func DefineSphere(s *Stage, path Path) (Sphere, error) {
	p, err := definePrim(s, path, TypeNameSphere)
	return Sphere{Xformable{prim: p}}, err
}

func (s Sphere) RadiusAttr() *Attribute { return s.prim.schemaAttr("radius", TypeDouble, false) }

type Cylinder struct{ Xformable }

func DefineCylinder(s *Stage, path Path) (Cylinder, error) {
	p, err := definePrim(s, path, TypeNameCylinder)
	return Cylinder{Xformable{prim: p}}, err
}

func (c Cylinder) HeightAttr() *Attribute { return c.prim.schemaAttr("height", TypeDouble, false) }
func (c Cylinder) RadiusAttr() *Attribute { return c.prim.schemaAttr("radius", TypeDouble, false) }
func (c Cylinder) AxisAttr() *Attribute   { return c.prim.schemaAttr("axis", TypeToken, true) }

type Mesh struct{ Xformable }

func DefineMesh(s *Stage, path Path) (Mesh, error) {
	p, err := definePrim(s, path, TypeNameMesh)
	return Mesh{Xformable{prim: p}}, err
}

func (m Mesh) PointsAttr() *Attribute {
	return m.prim.schemaAttr("points", TypePoint3fArray, false)
}

func (m Mesh) FaceVertexCountsAttr() *Attribute {
	return m.prim.schemaAttr("faceVertexCounts", TypeIntArray, false)
}

func (m Mesh) FaceVertexIndicesAttr() *Attribute {
	return m.prim.schemaAttr("faceVertexIndices", TypeIntArray, false)
}

func (m Mesh) NormalsAttr() *Attribute {
	return m.prim.schemaAttr("normals", TypeNormal3fArray, false)
}

func (m Mesh) SubdivisionSchemeAttr() *Attribute {
	return m.prim.schemaAttr("subdivisionScheme", TypeToken, true)
}

func (m Mesh) ExtentAttr() *Attribute {
	return m.prim.schemaAttr("extent", TypeFloat3Array, false)
}

// Extent computes the [min, max] bounds of points.
func Extent(points []mgl32.Vec3) []mgl32.Vec3 {
	if len(points) == 0 {
		return nil
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < lo[i] {
				lo[i] = p[i]
			}
			if p[i] > hi[i] {
				hi[i] = p[i]
			}
		}
	}
	return []mgl32.Vec3{lo, hi}
}

type NurbsPatch struct{ Xformable }

func DefineNurbsPatch(s *Stage, path Path) (NurbsPatch, error) {
	p, err := definePrim(s, path, TypeNameNurbsPatch)
	return NurbsPatch{Xformable{prim: p}}, err
}

func (n NurbsPatch) UVertexCountAttr() *Attribute { return n.prim.schemaAttr("uVertexCount", TypeInt, false) }
func (n NurbsPatch) VVertexCountAttr() *Attribute { return n.prim.schemaAttr("vVertexCount", TypeInt, false) }
func (n NurbsPatch) UOrderAttr() *Attribute       { return n.prim.schemaAttr("uOrder", TypeInt, false) }
func (n NurbsPatch) VOrderAttr() *Attribute       { return n.prim.schemaAttr("vOrder", TypeInt, false) }
func (n NurbsPatch) UKnotsAttr() *Attribute       { return n.prim.schemaAttr("uKnots", TypeDoubleArray, false) }
func (n NurbsPatch) VKnotsAttr() *Attribute       { return n.prim.schemaAttr("vKnots", TypeDoubleArray, false) }
func (n NurbsPatch) PointsAttr() *Attribute       { return n.prim.schemaAttr("points", TypePoint3fArray, false) }
func (n NurbsPatch) PointWeightsAttr() *Attribute { return n.prim.schemaAttr("pointWeights", TypeDoubleArray, false) }
