package usd

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Token is an interned identifier value, written quoted like a string.
type Token string

// Asset is a file reference, written as @path@.
type Asset string

// ValueType is the scene description type name of an attribute.
type ValueType string

const (
	TypeBool     ValueType = "bool"
	TypeInt      ValueType = "int"
	TypeFloat    ValueType = "float"
	TypeDouble   ValueType = "double"
	TypeToken    ValueType = "token"
	TypeString   ValueType = "string"
	TypeAsset    ValueType = "asset"
	TypeFloat2   ValueType = "float2"
	TypeFloat3   ValueType = "float3"
	TypeFloat4   ValueType = "float4"
	TypeDouble3  ValueType = "double3"
	TypeColor3f  ValueType = "color3f"
	TypeNormal3f ValueType = "normal3f"
	TypeVector3f ValueType = "vector3f"
	TypeQuatf    ValueType = "quatf"
	TypeQuatd    ValueType = "quatd"
	TypeMatrix4d ValueType = "matrix4d"

	TypeIntArray        ValueType = "int[]"
	TypeFloatArray      ValueType = "float[]"
	TypeDoubleArray     ValueType = "double[]"
	TypeTokenArray      ValueType = "token[]"
	TypePoint3fArray    ValueType = "point3f[]"
	TypeNormal3fArray   ValueType = "normal3f[]"
	TypeColor3fArray    ValueType = "color3f[]"
	TypeFloat3Array     ValueType = "float3[]"
	TypeTexCoord2fArray ValueType = "texCoord2f[]"
)

var valueGoTypes = map[ValueType]reflect.Type{
	TypeBool:     reflect.TypeOf(false),
	TypeInt:      reflect.TypeOf(int(0)),
	TypeFloat:    reflect.TypeOf(float32(0)),
	TypeDouble:   reflect.TypeOf(float64(0)),
	TypeToken:    reflect.TypeOf(Token("")),
	TypeString:   reflect.TypeOf(""),
	TypeAsset:    reflect.TypeOf(Asset("")),
	TypeFloat2:   reflect.TypeOf(mgl32.Vec2{}),
	TypeFloat3:   reflect.TypeOf(mgl32.Vec3{}),
	TypeFloat4:   reflect.TypeOf(mgl32.Vec4{}),
	TypeDouble3:  reflect.TypeOf(mgl64.Vec3{}),
	TypeColor3f:  reflect.TypeOf(mgl32.Vec3{}),
	TypeNormal3f: reflect.TypeOf(mgl32.Vec3{}),
	TypeVector3f: reflect.TypeOf(mgl32.Vec3{}),
	TypeQuatf:    reflect.TypeOf(mgl32.Quat{}),
	TypeQuatd:    reflect.TypeOf(mgl64.Quat{}),
	TypeMatrix4d: reflect.TypeOf(mgl64.Mat4{}),

	TypeIntArray:        reflect.TypeOf([]int(nil)),
	TypeFloatArray:      reflect.TypeOf([]float32(nil)),
	TypeDoubleArray:     reflect.TypeOf([]float64(nil)),
	TypeTokenArray:      reflect.TypeOf([]Token(nil)),
	TypePoint3fArray:    reflect.TypeOf([]mgl32.Vec3(nil)),
	TypeNormal3fArray:   reflect.TypeOf([]mgl32.Vec3(nil)),
	TypeColor3fArray:    reflect.TypeOf([]mgl32.Vec3(nil)),
	TypeFloat3Array:     reflect.TypeOf([]mgl32.Vec3(nil)),
	TypeTexCoord2fArray: reflect.TypeOf([]mgl32.Vec2(nil)),
}

func (t ValueType) IsValid() bool {
	_, ok := valueGoTypes[t]
	return ok
}

func (t ValueType) IsArray() bool {
	return strings.HasSuffix(string(t), "[]")
}

// GoType is the Go type values of t must have.
func (t ValueType) GoType() reflect.Type {
	return valueGoTypes[t]
}

func (t ValueType) check(v interface{}) error {
	expected, ok := valueGoTypes[t]
	if !ok {
		return errors.Errorf("Unknown value type %q", t)
	}
	if got := reflect.TypeOf(v); got != expected {
		return errors.Errorf("Value of type %v does not match %q (expected %v)", got, t, expected)
	}
	return nil
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

func formatTuple32(vals ...float32) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatFloat(float64(v), 32)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatTuple64(vals ...float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatFloat(v, 64)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// formatMatrix writes the four columns of the column-major matrix as rows,
// which puts the translation in the last tuple.
func formatMatrix(m mgl64.Mat4) string {
	rows := make([]string, 4)
	for i := 0; i < 4; i++ {
		rows[i] = formatTuple64(m[i*4], m[i*4+1], m[i*4+2], m[i*4+3])
	}
	return "( " + strings.Join(rows, ", ") + " )"
}

func formatList(n int, item func(i int) string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = item(i)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FormatValue renders v in .usda syntax.
func FormatValue(v interface{}) string {
	switch v := v.(type) {
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case Token:
		return strconv.Quote(string(v))
	case string:
		return strconv.Quote(v)
	case Asset:
		return "@" + string(v) + "@"
	case mgl32.Vec2:
		return formatTuple32(v[:]...)
	case mgl32.Vec3:
		return formatTuple32(v[:]...)
	case mgl32.Vec4:
		return formatTuple32(v[:]...)
	case mgl64.Vec3:
		return formatTuple64(v[:]...)
	case mgl32.Quat:
		return formatTuple32(v.W, v.V[0], v.V[1], v.V[2])
	case mgl64.Quat:
		return formatTuple64(v.W, v.V[0], v.V[1], v.V[2])
	case mgl64.Mat4:
		return formatMatrix(v)
	case []int:
		return formatList(len(v), func(i int) string { return strconv.Itoa(v[i]) })
	case []float32:
		return formatList(len(v), func(i int) string { return formatFloat(float64(v[i]), 32) })
	case []float64:
		return formatList(len(v), func(i int) string { return formatFloat(v[i], 64) })
	case []Token:
		return formatList(len(v), func(i int) string { return strconv.Quote(string(v[i])) })
	case []mgl32.Vec2:
		return formatList(len(v), func(i int) string { return formatTuple32(v[i][:]...) })
	case []mgl32.Vec3:
		return formatList(len(v), func(i int) string { return formatTuple32(v[i][:]...) })
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Vec3d widens any three-component value to double precision.
func Vec3d(v interface{}) (mgl64.Vec3, bool) {
	switch v := v.(type) {
	case mgl64.Vec3:
		return v, true
	case mgl32.Vec3:
		return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}, true
	}
	return mgl64.Vec3{}, false
}

// Float64 widens any scalar numeric value.
func Float64(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func Vec3f(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

func mgl32Vec2(f []float32) mgl32.Vec2 { return mgl32.Vec2{f[0], f[1]} }
func mgl32Vec3(f []float32) mgl32.Vec3 { return mgl32.Vec3{f[0], f[1], f[2]} }
func mgl32Vec4(f []float32) mgl32.Vec4 { return mgl32.Vec4{f[0], f[1], f[2], f[3]} }
func mgl64Vec3(f []float64) mgl64.Vec3 { return mgl64.Vec3{f[0], f[1], f[2]} }

func mgl32Quat(f []float32) mgl32.Quat {
	return mgl32.Quat{W: f[0], V: mgl32.Vec3{f[1], f[2], f[3]}}
}

func mgl64Quat(f []float64) mgl64.Quat {
	return mgl64.Quat{W: f[0], V: mgl64.Vec3{f[1], f[2], f[3]}}
}

// mgl64Mat4 is the inverse of formatMatrix: tuple i holds column i.
func mgl64Mat4(rows [4][]float64) mgl64.Mat4 {
	var m mgl64.Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m[i*4+j] = rows[i][j]
		}
	}
	return m
}
