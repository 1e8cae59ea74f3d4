package material

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/usd_exporter/config"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/ext/specular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLibrary() *Library {
	lib := &Library{}
	lib.AddTexture(&Texture{Name: "albedo", File: "textures/albedo.png"})
	lib.AddTexture(&Texture{Name: "packed", File: "textures/packed.png", WrapS: WrapClamp, WrapT: WrapClamp})
	lib.AddTexture(&Texture{Name: "normal", File: "textures/normal.png", WrapT: WrapMirror})
	return lib
}

func paintedMaterial() *Material {
	m := NewMaterial("painted")
	m.PBRMetallicRoughness = &PBRMetallicRoughness{
		BaseColorFactor:          mgl32.Vec4{1, 0.5, 0.5, 1},
		BaseColorTexture:         &TextureInfo{Index: 0},
		MetallicFactor:           0.25,
		RoughnessFactor:          0.75,
		MetallicRoughnessTexture: &TextureInfo{Index: 1},
	}
	m.NormalTexture = &NormalTextureInfo{TextureInfo: TextureInfo{Index: 2}, Scale: 0.5}
	m.AlphaMode = AlphaBlend
	return m
}

func glossyMaterial() *Material {
	m := NewMaterial("glossy")
	m.PBRSpecularGlossiness = &PBRSpecularGlossiness{
		DiffuseFactor:             mgl32.Vec4{0.5, 0.25, 0.125, 1},
		SpecularFactor:            mgl32.Vec3{0.5, 0.5, 0.5},
		GlossinessFactor:          0.25,
		SpecularGlossinessTexture: &TextureInfo{Index: 1, TexCoord: 1},
	}
	m.OcclusionTexture = &OcclusionTextureInfo{TextureInfo: TextureInfo{Index: 0}, Strength: 0.5}
	return m
}

func inputValue(t *testing.T, stage *usd.Stage, prim usd.Path, input string) interface{} {
	p := stage.GetPrimAtPath(prim)
	require.NotNil(t, p, prim)
	a := p.GetAttribute("inputs:" + input)
	require.NotNil(t, a, "%v.inputs:%s", prim, input)
	v, ok := a.Get()
	require.True(t, ok, "%v.inputs:%s", prim, input)
	return v
}

func connections(t *testing.T, stage *usd.Stage, prim usd.Path, attr string) []usd.Path {
	p := stage.GetPrimAtPath(prim)
	require.NotNil(t, p, prim)
	a := p.GetAttribute(attr)
	require.NotNil(t, a, "%v.%s", prim, attr)
	return a.GetConnections()
}

func TestFromMaterialMetallicRoughnessGraph(t *testing.T) {
	stage := usd.CreateInMemory()
	um, err := FromMaterial(stage, paintedMaterial(), sampleLibrary())
	require.NoError(t, err)

	assert.Equal(t, usd.Path("/Looks/painted"), um.Path())
	assert.Equal(t, usd.TypeNameScope, stage.GetPrimAtPath("/Looks").TypeName())

	shader := usd.Path("/Looks/painted/Shader")
	s, err := um.Material().SurfaceSource()
	require.NoError(t, err)
	assert.Equal(t, shader, s.Prim().Path())
	assert.Equal(t, PreviewSurfaceID, s.ShaderID())
	assert.Equal(t, []usd.Path{"/Looks/painted/Shader.outputs:displacement"},
		connections(t, stage, um.Path(), "outputs:displacement"))

	for _, test := range []struct {
		input  string
		source usd.Path
	}{
		{"diffuseColor", "/Looks/painted/baseColorTexture.outputs:rgb"},
		{"opacity", "/Looks/painted/baseColorTexture.outputs:a"},
		{"metallic", "/Looks/painted/metallicTexture.outputs:b"},
		{"roughness", "/Looks/painted/roughnessTexture.outputs:g"},
		{"normal", "/Looks/painted/normalTexture.outputs:rgb"},
	} {
		assert.Equal(t, []usd.Path{test.source}, connections(t, stage, shader, "inputs:"+test.input), test.input)
	}

	base := usd.Path("/Looks/painted/baseColorTexture")
	tex, err := usd.ShaderFromPrim(stage.GetPrimAtPath(base))
	require.NoError(t, err)
	assert.Equal(t, UVTextureID, tex.ShaderID())
	assert.Equal(t, usd.Asset("textures/albedo.png"), inputValue(t, stage, base, "file"))
	assert.Equal(t, mgl32.Vec4{1, 0.5, 0.5, 1}, inputValue(t, stage, base, "scale"))
	assert.Equal(t, []usd.Path{"/Looks/painted/primvar_st0.outputs:result"}, connections(t, stage, base, "inputs:st"))

	metallic := usd.Path("/Looks/painted/metallicTexture")
	assert.Equal(t, usd.Token("clamp"), inputValue(t, stage, metallic, "wrapS"))
	assert.Equal(t, mgl32.Vec4{0.25, 0.25, 0.25, 0.25}, inputValue(t, stage, metallic, "scale"))

	normal := usd.Path("/Looks/painted/normalTexture")
	assert.Equal(t, mgl32.Vec4{1, 1, 2, 1}, inputValue(t, stage, normal, "scale"))
	assert.Equal(t, mgl32.Vec4{-0.5, -0.5, -1, 0}, inputValue(t, stage, normal, "bias"))
	assert.Equal(t, usd.Token("mirror"), inputValue(t, stage, normal, "wrapT"))

	assert.Equal(t, usd.Token("st1"), inputValue(t, stage, "/Looks/painted/primvar_st1", "varname"))
	assert.Equal(t, 0, inputValue(t, stage, shader, "useSpecularWorkflow"))
}

func TestFromMaterialSpecularGlossinessWins(t *testing.T) {
	m := glossyMaterial()
	m.PBRSpecularGlossiness.SpecularGlossinessTexture = nil
	m.PBRSpecularGlossiness.GlossinessFactor = 0.75
	m.PBRMetallicRoughness = DefaultPBRMetallicRoughness()
	m.PBRMetallicRoughness.MetallicFactor = 0.5

	stage := usd.CreateInMemory()
	_, err := FromMaterial(stage, m, sampleLibrary())
	require.NoError(t, err)

	shader := usd.Path("/Looks/glossy/Shader")
	assert.Equal(t, 1, inputValue(t, stage, shader, "useSpecularWorkflow"))
	assert.Equal(t, mgl32.Vec3{0.5, 0.25, 0.125}, inputValue(t, stage, shader, "diffuseColor"))
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, inputValue(t, stage, shader, "specularColor"))
	assert.InDelta(t, 0.25, inputValue(t, stage, shader, "roughness"), 1e-6)
	assert.Equal(t, float32(0), inputValue(t, stage, shader, "metallic"))
	assert.Equal(t, float32(1), inputValue(t, stage, shader, "opacity"))

	occlusion := usd.Path("/Looks/glossy/occlusionTexture")
	assert.Equal(t, mgl32.Vec4{0.5, 0.5, 0.5, 1}, inputValue(t, stage, occlusion, "scale"))
	assert.Equal(t, mgl32.Vec4{0.5, 0.5, 0.5, 0}, inputValue(t, stage, occlusion, "bias"))
	assert.Equal(t, []usd.Path{"/Looks/glossy/occlusionTexture.outputs:r"}, connections(t, stage, shader, "inputs:occlusion"))
}

func TestFromMaterialDefaults(t *testing.T) {
	m := &Material{Name: "plain", EmissiveFactor: mgl32.Vec3{0, 0.5, 0}}
	stage := usd.CreateInMemory()
	_, err := FromMaterial(stage, m, nil)
	require.NoError(t, err)

	shader := usd.Path("/Looks/plain/Shader")
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, inputValue(t, stage, shader, "diffuseColor"))
	assert.Equal(t, float32(1), inputValue(t, stage, shader, "metallic"))
	assert.Equal(t, float32(1), inputValue(t, stage, shader, "roughness"))
	assert.Equal(t, mgl32.Vec3{0, 0.5, 0}, inputValue(t, stage, shader, "emissiveColor"))
	assert.Equal(t, float32(1.5), inputValue(t, stage, shader, "ior"))
	assert.Nil(t, stage.GetPrimAtPath("/Looks/plain/baseColorTexture"))
}

func TestFromMaterialBadTexture(t *testing.T) {
	m := paintedMaterial()
	m.PBRMetallicRoughness.BaseColorTexture.Index = 7
	_, err := FromMaterial(usd.CreateInMemory(), m, sampleLibrary())
	assert.Error(t, err)

	m = paintedMaterial()
	m.NormalTexture.TexCoord = 2
	_, err = FromMaterial(usd.CreateInMemory(), m, sampleLibrary())
	assert.Error(t, err)
}

func TestMaterialsPathFromConfig(t *testing.T) {
	old := config.GetMaterialsPath()
	defer config.SetMaterialsPath(old.String())
	require.NoError(t, config.SetMaterialsPath("/World/Materials"))

	stage := usd.CreateInMemory()
	um, err := NewUSDMaterial(stage, "steel")
	require.NoError(t, err)
	assert.Equal(t, usd.Path("/World/Materials/steel"), um.Path())
	assert.True(t, um.SurfaceOutput().IsValid())
	assert.True(t, um.DisplacementOutput().IsValid())
}

func TestFromMDL(t *testing.T) {
	dir := t.TempDir()
	stage, err := usd.CreateNew(filepath.Join(dir, "scene.usda"))
	require.NoError(t, err)

	um, err := FromMDL(stage, filepath.Join(dir, "materials", "Steel.mdl"), "")
	require.NoError(t, err)
	assert.Equal(t, usd.Path("/Looks/Steel"), um.Path())

	shader := stage.GetPrimAtPath("/Looks/Steel/Shader")
	require.NotNil(t, shader)
	for _, test := range []struct {
		attr  string
		value interface{}
	}{
		{"info:id", usd.Token(MDLMaterialID)},
		{"info:implementationSource", usd.Token("sourceAsset")},
		{"info:mdl:sourceAsset", usd.Asset("./materials/Steel.mdl")},
		{"info:mdl:sourceAsset:subIdentifier", usd.Token("Steel")},
	} {
		a := shader.GetAttribute(test.attr)
		require.NotNil(t, a, test.attr)
		v, _ := a.Get()
		assert.Equal(t, test.value, v, test.attr)
	}
	assert.Equal(t, []usd.Path{"/Looks/Steel/Shader.outputs:out"}, connections(t, stage, um.Path(), "outputs:surface"))

	_, err = um.ToMaterial(&Library{})
	assert.Error(t, err)

	memory := usd.CreateInMemory()
	_, err = FromMDL(memory, "lib/OmniPBR.mdl", "Rubber")
	require.NoError(t, err)
	v, _ := memory.GetPrimAtPath("/Looks/Rubber/Shader").GetAttribute("info:mdl:sourceAsset").Get()
	assert.Equal(t, usd.Asset("./lib/OmniPBR.mdl"), v)
}

// reparse writes the stage out and reads it back.
func reparse(t *testing.T, stage *usd.Stage) *usd.Stage {
	text, err := stage.ExportToString()
	require.NoError(t, err)
	parsed, err := usd.Parse([]byte(text))
	require.NoError(t, err, text)
	return parsed
}

func TestToMaterialMetallicRoughness(t *testing.T) {
	stage := usd.CreateInMemory()
	lib := sampleLibrary()
	_, err := FromMaterial(stage, paintedMaterial(), lib)
	require.NoError(t, err)

	um, err := FromPath(reparse(t, stage), "/Looks/painted")
	require.NoError(t, err)
	got := &Library{}
	m, err := um.ToMaterial(got)
	require.NoError(t, err)

	assert.Equal(t, "painted", m.Name)
	assert.Equal(t, AlphaBlend, m.AlphaMode)
	assert.Nil(t, m.PBRSpecularGlossiness)
	require.NotNil(t, m.PBRMetallicRoughness)
	mr := m.PBRMetallicRoughness
	assert.Equal(t, mgl32.Vec4{1, 0.5, 0.5, 1}, mr.BaseColorFactor)
	assert.Equal(t, float32(0.25), mr.MetallicFactor)
	assert.Equal(t, float32(0.75), mr.RoughnessFactor)

	require.NotNil(t, mr.BaseColorTexture)
	require.NotNil(t, mr.MetallicRoughnessTexture)
	assert.Equal(t, "textures/albedo.png", got.Textures[mr.BaseColorTexture.Index].File)
	packed := got.Textures[mr.MetallicRoughnessTexture.Index]
	assert.Equal(t, "textures/packed.png", packed.File)
	assert.Equal(t, WrapClamp, packed.WrapS)

	require.NotNil(t, m.NormalTexture)
	assert.Equal(t, float32(0.5), m.NormalTexture.Scale)
	assert.Equal(t, WrapMirror, got.Textures[m.NormalTexture.Index].WrapT)
	assert.Len(t, got.Textures, 3)
}

func TestToMaterialSpecularGlossiness(t *testing.T) {
	stage := usd.CreateInMemory()
	_, err := FromMaterial(stage, glossyMaterial(), sampleLibrary())
	require.NoError(t, err)

	um, err := FromPath(reparse(t, stage), "/Looks/glossy")
	require.NoError(t, err)
	got := &Library{}
	m, err := um.ToMaterial(got)
	require.NoError(t, err)

	assert.Equal(t, AlphaOpaque, m.AlphaMode)
	assert.Nil(t, m.PBRMetallicRoughness)
	require.NotNil(t, m.PBRSpecularGlossiness)
	sg := m.PBRSpecularGlossiness
	assert.Equal(t, mgl32.Vec4{0.5, 0.25, 0.125, 1}, sg.DiffuseFactor)
	assert.Nil(t, sg.DiffuseTexture)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, sg.SpecularFactor)
	assert.Equal(t, float32(0.25), sg.GlossinessFactor)
	require.NotNil(t, sg.SpecularGlossinessTexture)
	assert.Equal(t, 1, sg.SpecularGlossinessTexture.TexCoord)
	assert.Equal(t, "textures/packed.png", got.Textures[sg.SpecularGlossinessTexture.Index].File)

	require.NotNil(t, m.OcclusionTexture)
	assert.Equal(t, float32(0.5), m.OcclusionTexture.Strength)
	assert.Len(t, got.Textures, 2)
}

func TestBind(t *testing.T) {
	stage := usd.CreateInMemory()
	um, err := FromMaterial(stage, NewMaterial("red"), nil)
	require.NoError(t, err)
	cube, err := usd.DefineCube(stage, "/World/box")
	require.NoError(t, err)

	require.NoError(t, um.Bind(cube.Prim()))
	assert.True(t, cube.Prim().HasAPI(usd.MaterialBindingAPIName))
	bound, ok := usd.ComputeBoundMaterial(cube.Prim())
	require.True(t, ok)
	assert.Equal(t, um.Path(), bound.Prim().Path())
}

func TestParseModes(t *testing.T) {
	for _, test := range []struct {
		in   string
		mode AlphaMode
		err  bool
	}{
		{"", AlphaOpaque, false},
		{"mask", AlphaMask, false},
		{"BLEND", AlphaBlend, false},
		{"cutout", AlphaOpaque, true},
	} {
		mode, err := ParseAlphaMode(test.in)
		assert.Equal(t, test.err, err != nil, test.in)
		assert.Equal(t, test.mode, mode, test.in)
	}

	w, err := ParseWrapMode("black")
	require.NoError(t, err)
	assert.Equal(t, WrapBlack, w)
	_, err = ParseWrapMode("Repeat")
	assert.Error(t, err)
}

func sampleDocument() *gltf.Document {
	return &gltf.Document{
		Images: []*gltf.Image{
			{URI: "albedo.png"},
			{Name: "embedded", URI: "data:image/png;base64,AAAA"},
		},
		Samplers: []*gltf.Sampler{
			{WrapS: gltf.WrapClampToEdge, WrapT: gltf.WrapMirroredRepeat},
		},
		Textures: []*gltf.Texture{
			{Source: gltf.Index(0), Sampler: gltf.Index(0)},
			{Source: gltf.Index(1)},
		},
		Materials: []*gltf.Material{
			{
				Name:      "Red Paint",
				AlphaMode: gltf.AlphaMask,
				PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
					BaseColorFactor:  &[4]float32{1, 0, 0, 1},
					BaseColorTexture: &gltf.TextureInfo{Index: 0},
					MetallicFactor:   gltf.Float(0.25),
				},
				AlphaCutoff:   gltf.Float(0.3),
				NormalTexture: &gltf.NormalTexture{Index: gltf.Index(1)},
			},
			{
				DoubleSided: true,
				Extensions: gltf.Extensions{
					specular.ExtensionName: &specular.PBRSpecularGlossiness{
						GlossinessFactor: gltf.Float(0.4),
						DiffuseTexture:   &gltf.TextureInfo{Index: 1, TexCoord: 1},
					},
				},
			},
		},
	}
}

func TestLibraryFromGLTF(t *testing.T) {
	lib, err := LibraryFromGLTF(sampleDocument())
	require.NoError(t, err)

	require.Len(t, lib.Textures, 2)
	assert.Equal(t, &Texture{File: "albedo.png", WrapS: WrapClamp, WrapT: WrapMirror}, lib.Textures[0])
	assert.Equal(t, &Texture{Name: "embedded", File: "embedded"}, lib.Textures[1])

	require.Len(t, lib.Materials, 2)
	red := lib.Material("Red_Paint")
	require.NotNil(t, red)
	assert.Equal(t, AlphaMask, red.AlphaMode)
	assert.Equal(t, float32(0.3), red.AlphaCutoff)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, red.PBRMetallicRoughness.BaseColorFactor)
	assert.Equal(t, float32(0.25), red.PBRMetallicRoughness.MetallicFactor)
	assert.Equal(t, float32(1), red.PBRMetallicRoughness.RoughnessFactor)
	assert.Equal(t, &TextureInfo{Index: 0}, red.PBRMetallicRoughness.BaseColorTexture)
	assert.Equal(t, &NormalTextureInfo{TextureInfo: TextureInfo{Index: 1}, Scale: 1}, red.NormalTexture)

	glossy := lib.Materials[1]
	assert.Equal(t, "material_1", glossy.Name)
	assert.True(t, glossy.DoubleSided)
	assert.Nil(t, glossy.PBRMetallicRoughness)
	require.NotNil(t, glossy.PBRSpecularGlossiness)
	assert.Equal(t, float32(0.4), glossy.PBRSpecularGlossiness.GlossinessFactor)
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, glossy.PBRSpecularGlossiness.DiffuseFactor)
	assert.Equal(t, &TextureInfo{Index: 1, TexCoord: 1}, glossy.PBRSpecularGlossiness.DiffuseTexture)
}

func TestLibraryFromGLTFMissingImage(t *testing.T) {
	doc := sampleDocument()
	doc.Textures[1].Source = gltf.Index(5)
	_, err := LibraryFromGLTF(doc)
	assert.Error(t, err)
}

func TestExportGLTF(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Textures = append(doc.Textures, &gltf.Texture{Name: "existing"})
	doc.Materials = append(doc.Materials, &gltf.Material{Name: "existing"})

	lib := sampleLibrary()
	painted := paintedMaterial()
	painted.AlphaMode = AlphaMask
	lib.AddMaterial(painted)
	lib.AddMaterial(glossyMaterial())

	first := ExportGLTF(doc, lib)
	assert.Equal(t, uint32(1), first)
	require.Len(t, doc.Materials, 3)
	require.Len(t, doc.Textures, 4)
	assert.Equal(t, "textures/packed.png", doc.Images[*doc.Textures[2].Source].URI)
	assert.Equal(t, gltf.WrapClampToEdge, doc.Samplers[*doc.Textures[2].Sampler].WrapS)

	gm := doc.Materials[1]
	assert.Equal(t, "painted", gm.Name)
	assert.Equal(t, gltf.AlphaMask, gm.AlphaMode)
	assert.Equal(t, float32(0.5), *gm.AlphaCutoff)
	assert.Equal(t, uint32(1), gm.PBRMetallicRoughness.BaseColorTexture.Index)
	assert.Equal(t, uint32(2), gm.PBRMetallicRoughness.MetallicRoughnessTexture.Index)
	assert.Equal(t, uint32(3), *gm.NormalTexture.Index)
	assert.Equal(t, float32(0.5), *gm.NormalTexture.Scale)

	sg, ok := doc.Materials[2].Extensions[specular.ExtensionName].(*specular.PBRSpecularGlossiness)
	require.True(t, ok)
	assert.Equal(t, float32(0.25), *sg.GlossinessFactor)
	assert.Equal(t, uint32(2), sg.SpecularGlossinessTexture.Index)
	assert.Equal(t, []string{specular.ExtensionName}, doc.ExtensionsUsed)

	back, err := LibraryFromGLTF(doc)
	require.NoError(t, err)
	assert.Equal(t, paintedMaterial().PBRMetallicRoughness.MetallicFactor, back.Material("painted").PBRMetallicRoughness.MetallicFactor)
}
