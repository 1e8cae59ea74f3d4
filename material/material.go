package material

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

var alphaModeNames = [...]string{
	AlphaOpaque: "OPAQUE",
	AlphaMask:   "MASK",
	AlphaBlend:  "BLEND",
}

func (a AlphaMode) String() string {
	if int(a) < 0 || int(a) >= len(alphaModeNames) {
		return "UNKNOWN"
	}
	return alphaModeNames[a]
}

func ParseAlphaMode(s string) (AlphaMode, error) {
	if s == "" {
		return AlphaOpaque, nil
	}
	for i, name := range alphaModeNames {
		if strings.EqualFold(s, name) {
			return AlphaMode(i), nil
		}
	}
	return AlphaOpaque, errors.Errorf("Unknown alpha mode %q", s)
}

type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapClamp
	WrapMirror
	WrapBlack
)

// tokens understood by UsdUVTexture
var wrapModeTokens = [...]string{
	WrapRepeat: "repeat",
	WrapClamp:  "clamp",
	WrapMirror: "mirror",
	WrapBlack:  "black",
}

func (w WrapMode) String() string {
	if int(w) < 0 || int(w) >= len(wrapModeTokens) {
		return wrapModeTokens[WrapRepeat]
	}
	return wrapModeTokens[w]
}

func ParseWrapMode(s string) (WrapMode, error) {
	if s == "" {
		return WrapRepeat, nil
	}
	for i, name := range wrapModeTokens {
		if s == name {
			return WrapMode(i), nil
		}
	}
	return WrapRepeat, errors.Errorf("Unknown wrap mode %q", s)
}

// Texture is an image file plus its sampler settings.
type Texture struct {
	Name  string
	File  string
	WrapS WrapMode
	WrapT WrapMode
}

// TextureInfo references a texture of the library by index.
type TextureInfo struct {
	Index    int
	TexCoord int
}

type NormalTextureInfo struct {
	TextureInfo
	Scale float32
}

type OcclusionTextureInfo struct {
	TextureInfo
	Strength float32
}

type PBRMetallicRoughness struct {
	BaseColorFactor          mgl32.Vec4
	BaseColorTexture         *TextureInfo
	MetallicFactor           float32
	RoughnessFactor          float32
	MetallicRoughnessTexture *TextureInfo
}

// DefaultPBRMetallicRoughness holds the glTF defaults.
func DefaultPBRMetallicRoughness() *PBRMetallicRoughness {
	return &PBRMetallicRoughness{
		BaseColorFactor: mgl32.Vec4{1, 1, 1, 1},
		MetallicFactor:  1,
		RoughnessFactor: 1,
	}
}

type PBRSpecularGlossiness struct {
	DiffuseFactor             mgl32.Vec4
	DiffuseTexture            *TextureInfo
	SpecularFactor            mgl32.Vec3
	GlossinessFactor          float32
	SpecularGlossinessTexture *TextureInfo
}

// DefaultPBRSpecularGlossiness holds the KHR_materials_pbrSpecularGlossiness defaults.
func DefaultPBRSpecularGlossiness() *PBRSpecularGlossiness {
	return &PBRSpecularGlossiness{
		DiffuseFactor:    mgl32.Vec4{1, 1, 1, 1},
		SpecularFactor:   mgl32.Vec3{1, 1, 1},
		GlossinessFactor: 1,
	}
}

// Material is a glTF style shading description. At most one of the two
// PBR workflows is expected; specular/glossiness wins when both are set.
type Material struct {
	Name                  string
	PBRMetallicRoughness  *PBRMetallicRoughness
	PBRSpecularGlossiness *PBRSpecularGlossiness
	NormalTexture         *NormalTextureInfo
	OcclusionTexture      *OcclusionTextureInfo
	EmissiveTexture       *TextureInfo
	EmissiveFactor        mgl32.Vec3
	AlphaMode             AlphaMode
	AlphaCutoff           float32
	DoubleSided           bool
}

func NewMaterial(name string) *Material {
	return &Material{
		Name:                 name,
		PBRMetallicRoughness: DefaultPBRMetallicRoughness(),
		AlphaCutoff:          0.5,
	}
}

// Library owns the textures materials refer to.
type Library struct {
	Materials []*Material
	Textures  []*Texture
}

func (l *Library) AddTexture(t *Texture) int {
	l.Textures = append(l.Textures, t)
	return len(l.Textures) - 1
}

func (l *Library) AddMaterial(m *Material) {
	l.Materials = append(l.Materials, m)
}

// Material finds a material by name. A nil library has none.
func (l *Library) Material(name string) *Material {
	if l == nil {
		return nil
	}
	for _, m := range l.Materials {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (l *Library) texture(info *TextureInfo) (*Texture, error) {
	if l == nil || info.Index < 0 || info.Index >= len(l.Textures) {
		return nil, errors.Errorf("Texture index %d out of range", info.Index)
	}
	return l.Textures[info.Index], nil
}
