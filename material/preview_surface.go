package material

import (
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/pkg/errors"
)

// inputs of UsdPreviewSurface with their default values
var previewSurfaceInputs = []struct {
	name string
	typ  usd.ValueType
	def  interface{}
}{
	{"useSpecularWorkflow", usd.TypeInt, 0},
	{"diffuseColor", usd.TypeColor3f, mgl32.Vec3{0.18, 0.18, 0.18}},
	{"emissiveColor", usd.TypeColor3f, mgl32.Vec3{0, 0, 0}},
	{"specularColor", usd.TypeColor3f, mgl32.Vec3{0, 0, 0}},
	{"metallic", usd.TypeFloat, float32(0)},
	{"roughness", usd.TypeFloat, float32(0.5)},
	{"clearcoat", usd.TypeFloat, float32(0)},
	{"clearcoatRoughness", usd.TypeFloat, float32(0.01)},
	{"opacity", usd.TypeFloat, float32(1)},
	{"opacityThreshold", usd.TypeFloat, float32(0)},
	{"ior", usd.TypeFloat, float32(1.5)},
	{"normal", usd.TypeNormal3f, mgl32.Vec3{0, 0, 1}},
	{"displacement", usd.TypeFloat, float32(0)},
	{"occlusion", usd.TypeFloat, float32(1)},
}

const texCoordSets = 2

// PreviewSurface is the UsdPreviewSurface shader of a material together
// with the texture and primvar reader nodes feeding it.
type PreviewSurface struct {
	material *USDMaterial
	lib      *Library
	shader   usd.Shader
	inputs   map[string]usd.Input
	st       [texCoordSets]usd.Output
	textures map[string]usd.Shader
}

func NewPreviewSurface(um *USDMaterial, lib *Library) (*PreviewSurface, error) {
	ps := &PreviewSurface{
		material: um,
		lib:      lib,
		inputs:   make(map[string]usd.Input),
		textures: make(map[string]usd.Shader),
	}
	shader, err := usd.DefineShader(um.stage, um.Path().AppendChild(ShaderName))
	if err != nil {
		return nil, err
	}
	ps.shader = shader
	if err := shader.CreateIDAttr(PreviewSurfaceID); err != nil {
		return nil, err
	}
	for _, in := range previewSurfaceInputs {
		input, err := shader.CreateInput(in.name, in.typ)
		if err != nil {
			return nil, err
		}
		if err := input.Set(in.def); err != nil {
			return nil, errors.Wrapf(err, "Can't set default of %s", in.name)
		}
		ps.inputs[in.name] = input
	}

	if !um.surface.IsValid() {
		if um.surface, err = um.material.CreateSurfaceOutput(); err != nil {
			return nil, err
		}
	}
	if !um.displacement.IsValid() {
		if um.displacement, err = um.material.CreateDisplacementOutput(); err != nil {
			return nil, err
		}
	}
	surface, err := shader.CreateOutput("surface", usd.TypeToken)
	if err != nil {
		return nil, err
	}
	displacement, err := shader.CreateOutput("displacement", usd.TypeToken)
	if err != nil {
		return nil, err
	}
	if err := um.surface.ConnectToSource(surface); err != nil {
		return nil, err
	}
	if err := um.displacement.ConnectToSource(displacement); err != nil {
		return nil, err
	}

	for i := range ps.st {
		if ps.st[i], err = ps.primvarReader(fmt.Sprintf("st%d", i)); err != nil {
			return nil, errors.Wrapf(err, "Can't create primvar reader st%d", i)
		}
	}
	return ps, nil
}

func (ps *PreviewSurface) Shader() usd.Shader { return ps.shader }

func (ps *PreviewSurface) Input(name string) usd.Input { return ps.inputs[name] }

func (ps *PreviewSurface) primvarReader(varname string) (usd.Output, error) {
	reader, err := usd.DefineShader(ps.material.stage, ps.material.Path().AppendChild("primvar_"+varname))
	if err != nil {
		return usd.Output{}, err
	}
	if err := reader.CreateIDAttr(PrimvarReaderID); err != nil {
		return usd.Output{}, err
	}
	fallback, err := reader.CreateInput("fallback", usd.TypeFloat2)
	if err != nil {
		return usd.Output{}, err
	}
	if err := fallback.Set(mgl32.Vec2{0, 0}); err != nil {
		return usd.Output{}, err
	}
	name, err := reader.CreateInput("varname", usd.TypeToken)
	if err != nil {
		return usd.Output{}, err
	}
	if err := name.Set(usd.Token(varname)); err != nil {
		return usd.Output{}, err
	}
	return reader.CreateOutput("result", usd.TypeFloat2)
}

// Apply fills the graph from m. Specular/glossiness takes precedence over
// metallic/roughness; with neither the glTF defaults are used.
func (ps *PreviewSurface) Apply(m *Material) error {
	if err := ps.setNormal(m.NormalTexture); err != nil {
		return errors.Wrapf(err, "Normal")
	}
	if err := ps.setEmissive(m.EmissiveTexture, m.EmissiveFactor); err != nil {
		return errors.Wrapf(err, "Emissive")
	}
	if err := ps.setOcclusion(m.OcclusionTexture); err != nil {
		return errors.Wrapf(err, "Occlusion")
	}

	// UsdPreviewSurface has no alpha mask mode
	blend := m.AlphaMode != AlphaOpaque

	switch {
	case m.PBRSpecularGlossiness != nil:
		if m.PBRMetallicRoughness != nil {
			log.Printf("[material] Material %q has both PBR workflows, using specular/glossiness", m.Name)
		}
		return ps.setSpecularGlossiness(m.PBRSpecularGlossiness, blend)
	case m.PBRMetallicRoughness != nil:
		return ps.setMetallicRoughness(m.PBRMetallicRoughness, blend)
	default:
		return ps.setMetallicRoughness(DefaultPBRMetallicRoughness(), blend)
	}
}

func (ps *PreviewSurface) set(input string, v interface{}) error {
	if err := ps.inputs[input].Set(v); err != nil {
		return errors.Wrapf(err, "Can't set %s", input)
	}
	return nil
}

// uvTexture defines the UsdUVTexture node name, or returns it when it
// already exists.
func (ps *PreviewSurface) uvTexture(name string, info *TextureInfo, scale, bias mgl32.Vec4) (usd.Shader, error) {
	if tex, ok := ps.textures[name]; ok {
		return tex, nil
	}
	texture, err := ps.lib.texture(info)
	if err != nil {
		return usd.Shader{}, err
	}
	if info.TexCoord < 0 || info.TexCoord >= texCoordSets {
		return usd.Shader{}, errors.Errorf("Texture coordinate set %d is not supported", info.TexCoord)
	}

	tex, err := usd.DefineShader(ps.material.stage, ps.material.Path().AppendChild(name))
	if err != nil {
		return usd.Shader{}, err
	}
	if err := tex.CreateIDAttr(UVTextureID); err != nil {
		return usd.Shader{}, err
	}
	for _, in := range []struct {
		name  string
		typ   usd.ValueType
		value interface{}
	}{
		{"file", usd.TypeAsset, usd.Asset(texture.File)},
		{"scale", usd.TypeFloat4, scale},
		{"bias", usd.TypeFloat4, bias},
		{"fallback", usd.TypeFloat4, mgl32.Vec4{0, 0, 0, 1}},
		{"wrapS", usd.TypeToken, usd.Token(texture.WrapS.String())},
		{"wrapT", usd.TypeToken, usd.Token(texture.WrapT.String())},
	} {
		input, err := tex.CreateInput(in.name, in.typ)
		if err != nil {
			return usd.Shader{}, err
		}
		if err := input.Set(in.value); err != nil {
			return usd.Shader{}, errors.Wrapf(err, "Can't set %s of %s", in.name, name)
		}
	}
	st, err := tex.CreateInput("st", usd.TypeFloat2)
	if err != nil {
		return usd.Shader{}, err
	}
	if err := st.ConnectToSource(ps.st[info.TexCoord]); err != nil {
		return usd.Shader{}, err
	}
	ps.textures[name] = tex
	return tex, nil
}

// connect wires one channel of a texture node, "rgb" or a single
// component, into a shader input.
func (ps *PreviewSurface) connect(tex usd.Shader, channel string, input string) error {
	typ := usd.TypeFloat
	if channel == "rgb" {
		typ = usd.TypeFloat3
	}
	out, err := tex.CreateOutput(channel, typ)
	if err != nil {
		return err
	}
	return ps.inputs[input].ConnectToSource(out)
}

// link routes a texture channel to a shader input.
type link struct {
	input   string
	channel string
}

func (ps *PreviewSurface) textured(name string, info *TextureInfo, scale, bias mgl32.Vec4, links []link) error {
	tex, err := ps.uvTexture(name, info, scale, bias)
	if err != nil {
		return errors.Wrapf(err, "Texture %s", name)
	}
	for _, l := range links {
		if err := ps.connect(tex, l.channel, l.input); err != nil {
			return err
		}
	}
	return nil
}

func (ps *PreviewSurface) setNormal(info *NormalTextureInfo) error {
	if info == nil {
		return nil
	}
	// remap [0, 1] texels to [-1, 1], scaling x and y only
	s := info.Scale
	return ps.textured("normalTexture", &info.TextureInfo,
		mgl32.Vec4{2 * s, 2 * s, 2, 1}, mgl32.Vec4{-s, -s, -1, 0},
		[]link{{"normal", "rgb"}})
}

func (ps *PreviewSurface) setEmissive(info *TextureInfo, factor mgl32.Vec3) error {
	if info == nil {
		return ps.set("emissiveColor", factor)
	}
	return ps.textured("emissiveTexture", info, factor.Vec4(1), mgl32.Vec4{},
		[]link{{"emissiveColor", "rgb"}})
}

func (ps *PreviewSurface) setOcclusion(info *OcclusionTextureInfo) error {
	if info == nil {
		return nil
	}
	s := info.Strength
	return ps.textured("occlusionTexture", &info.TextureInfo,
		mgl32.Vec4{s, s, s, 1}, mgl32.Vec4{1 - s, 1 - s, 1 - s, 0},
		[]link{{"occlusion", "r"}})
}

func (ps *PreviewSurface) setMetallicRoughness(mr *PBRMetallicRoughness, blend bool) error {
	if err := ps.setColor("baseColorTexture", mr.BaseColorTexture, mr.BaseColorFactor, blend); err != nil {
		return err
	}

	// glTF packs metalness in blue and roughness in green
	m := mr.MetallicFactor
	if mr.MetallicRoughnessTexture == nil || m == 0 {
		if err := ps.set("metallic", m); err != nil {
			return err
		}
	} else if err := ps.textured("metallicTexture", mr.MetallicRoughnessTexture,
		mgl32.Vec4{m, m, m, m}, mgl32.Vec4{}, []link{{"metallic", "b"}}); err != nil {
		return err
	}

	r := mr.RoughnessFactor
	if mr.MetallicRoughnessTexture == nil || r == 0 {
		return ps.set("roughness", r)
	}
	return ps.textured("roughnessTexture", mr.MetallicRoughnessTexture,
		mgl32.Vec4{r, r, r, r}, mgl32.Vec4{}, []link{{"roughness", "g"}})
}

func (ps *PreviewSurface) setSpecularGlossiness(sg *PBRSpecularGlossiness, blend bool) error {
	if err := ps.set("useSpecularWorkflow", 1); err != nil {
		return err
	}
	if err := ps.setColor("diffuseTexture", sg.DiffuseTexture, sg.DiffuseFactor, blend); err != nil {
		return err
	}

	if sg.SpecularGlossinessTexture == nil {
		if err := ps.set("specularColor", sg.SpecularFactor); err != nil {
			return err
		}
		return ps.set("roughness", 1-sg.GlossinessFactor)
	}
	if err := ps.textured("specularTexture", sg.SpecularGlossinessTexture,
		sg.SpecularFactor.Vec4(1), mgl32.Vec4{}, []link{{"specularColor", "rgb"}}); err != nil {
		return err
	}
	// roughness = 1 - glossiness, glossiness is stored in alpha
	g := sg.GlossinessFactor
	return ps.textured("glossinessTexture", sg.SpecularGlossinessTexture,
		mgl32.Vec4{-g, -g, -g, -g}, mgl32.Vec4{1, 1, 1, 1}, []link{{"roughness", "a"}})
}

// setColor drives diffuseColor, and opacity when blending, from a factor
// or a texture scaled by it.
func (ps *PreviewSurface) setColor(name string, info *TextureInfo, factor mgl32.Vec4, blend bool) error {
	if info == nil {
		if err := ps.set("diffuseColor", factor.Vec3()); err != nil {
			return err
		}
		if blend {
			return ps.set("opacity", factor[3])
		}
		return nil
	}
	links := []link{{"diffuseColor", "rgb"}}
	if blend {
		links = append(links, link{"opacity", "a"})
	}
	return ps.textured(name, info, factor, mgl32.Vec4{}, links)
}
