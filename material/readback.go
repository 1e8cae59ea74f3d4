package material

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/pkg/errors"
)

// ToMaterial reads a preview surface graph back into a Material. Texture
// nodes are appended to lib; with a nil lib only constant inputs are read.
func (um *USDMaterial) ToMaterial(lib *Library) (*Material, error) {
	shader, err := um.material.SurfaceSource()
	if err != nil {
		return nil, err
	}
	if id := shader.ShaderID(); id != PreviewSurfaceID {
		return nil, errors.Errorf("Material %v is driven by %q, not %s", um.Path(), id, PreviewSurfaceID)
	}
	g := graphReader{shader: shader, lib: lib, seen: make(map[string]int)}

	m := &Material{Name: um.Path().Name(), AlphaCutoff: 0.5}
	opacity := g.float("opacity", 1)
	if _, _, ok := g.texture("opacity"); ok || opacity < 1 {
		m.AlphaMode = AlphaBlend
	}

	if info, scale, ok := g.texture("normal"); ok {
		m.NormalTexture = &NormalTextureInfo{TextureInfo: *info, Scale: scale[0] / 2}
	}
	if info, scale, ok := g.texture("occlusion"); ok {
		m.OcclusionTexture = &OcclusionTextureInfo{TextureInfo: *info, Strength: scale[0]}
	}
	if info, scale, ok := g.texture("emissiveColor"); ok {
		m.EmissiveTexture, m.EmissiveFactor = info, scale.Vec3()
	} else {
		m.EmissiveFactor = g.vec3("emissiveColor", mgl32.Vec3{})
	}

	diffuse := g.vec3("diffuseColor", mgl32.Vec3{0.18, 0.18, 0.18}).Vec4(opacity)
	diffuseTex, diffuseScale, textured := g.texture("diffuseColor")
	if textured {
		diffuse = diffuseScale
	}

	if g.integer("useSpecularWorkflow") == 1 {
		sg := DefaultPBRSpecularGlossiness()
		sg.DiffuseFactor, sg.DiffuseTexture = diffuse, diffuseTex
		if info, scale, ok := g.texture("specularColor"); ok {
			sg.SpecularGlossinessTexture, sg.SpecularFactor = info, scale.Vec3()
		} else {
			sg.SpecularFactor = g.vec3("specularColor", mgl32.Vec3{})
		}
		if info, scale, ok := g.texture("roughness"); ok {
			sg.SpecularGlossinessTexture, sg.GlossinessFactor = info, -scale[0]
		} else {
			sg.GlossinessFactor = 1 - g.float("roughness", 0.5)
		}
		m.PBRSpecularGlossiness = sg
		return m, nil
	}

	mr := DefaultPBRMetallicRoughness()
	mr.BaseColorFactor, mr.BaseColorTexture = diffuse, diffuseTex
	if info, scale, ok := g.texture("metallic"); ok {
		mr.MetallicRoughnessTexture, mr.MetallicFactor = info, scale[0]
	} else {
		mr.MetallicFactor = g.float("metallic", 0)
	}
	if info, scale, ok := g.texture("roughness"); ok {
		mr.MetallicRoughnessTexture, mr.RoughnessFactor = info, scale[0]
	} else {
		mr.RoughnessFactor = g.float("roughness", 0.5)
	}
	m.PBRMetallicRoughness = mr
	return m, nil
}

type graphReader struct {
	shader usd.Shader
	lib    *Library
	seen   map[string]int
}

func (g graphReader) value(name string) (interface{}, bool) {
	in := g.shader.GetInput(name)
	if !in.IsValid() {
		return nil, false
	}
	return in.Get()
}

func (g graphReader) float(name string, def float32) float32 {
	if v, ok := g.value(name); ok {
		if f, ok := usd.Float64(v); ok {
			return float32(f)
		}
	}
	return def
}

func (g graphReader) integer(name string) int {
	v, _ := g.value(name)
	i, _ := v.(int)
	return i
}

func (g graphReader) vec3(name string, def mgl32.Vec3) mgl32.Vec3 {
	if v, ok := g.value(name); ok {
		if f, ok := v.(mgl32.Vec3); ok {
			return f
		}
	}
	return def
}

// texture follows the connection of input to a UsdUVTexture node. Nodes
// sharing a file and sampler map to one library texture.
func (g graphReader) texture(input string) (*TextureInfo, mgl32.Vec4, bool) {
	if g.lib == nil {
		return nil, mgl32.Vec4{}, false
	}
	p, _, ok := g.shader.GetInput(input).ConnectedSource()
	if !ok {
		return nil, mgl32.Vec4{}, false
	}
	tex, err := usd.ShaderFromPrim(p)
	if err != nil || tex.ShaderID() != UVTextureID {
		return nil, mgl32.Vec4{}, false
	}
	node := graphReader{shader: tex}

	scale := mgl32.Vec4{1, 1, 1, 1}
	if v, ok := node.value("scale"); ok {
		scale, _ = v.(mgl32.Vec4)
	}
	file, _ := node.value("file")
	wrapS, _ := node.value("wrapS")
	wrapT, _ := node.value("wrapT")
	texture := &Texture{Name: p.Name()}
	texture.File = string(toAsset(file))
	texture.WrapS, _ = ParseWrapMode(string(toToken(wrapS)))
	texture.WrapT, _ = ParseWrapMode(string(toToken(wrapT)))

	info := &TextureInfo{}
	if reader, _, ok := tex.GetInput("st").ConnectedSource(); ok && strings.HasSuffix(reader.Name(), "1") {
		info.TexCoord = 1
	}

	key := texture.File + "|" + texture.WrapS.String() + "|" + texture.WrapT.String()
	if index, ok := g.seen[key]; ok {
		info.Index = index
	} else {
		info.Index = g.lib.AddTexture(texture)
		g.seen[key] = info.Index
	}
	return info, scale, true
}

func toAsset(v interface{}) usd.Asset {
	a, _ := v.(usd.Asset)
	return a
}

func toToken(v interface{}) usd.Token {
	t, _ := v.(usd.Token)
	return t
}
