package material

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/usd_exporter/utils"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/ext/specular"
)

// LoadGLTF reads the materials and textures of a .gltf or .glb file.
func LoadGLTF(path string) (*Library, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open %q", path)
	}
	return LibraryFromGLTF(doc)
}

func LibraryFromGLTF(doc *gltf.Document) (*Library, error) {
	lib := &Library{}
	for i, t := range doc.Textures {
		tex := &Texture{Name: t.Name}
		if t.Source != nil {
			if int(*t.Source) >= len(doc.Images) {
				return nil, errors.Errorf("Texture %d refers to missing image %d", i, *t.Source)
			}
			img := doc.Images[*t.Source]
			tex.File = img.URI
			if tex.File == "" || strings.HasPrefix(tex.File, "data:") {
				// embedded images have no file to point at
				tex.File = img.Name
			}
			if tex.Name == "" {
				tex.Name = img.Name
			}
		}
		if t.Sampler != nil {
			if int(*t.Sampler) >= len(doc.Samplers) {
				return nil, errors.Errorf("Texture %d refers to missing sampler %d", i, *t.Sampler)
			}
			s := doc.Samplers[*t.Sampler]
			tex.WrapS, tex.WrapT = wrapFromGLTF(s.WrapS), wrapFromGLTF(s.WrapT)
		}
		lib.AddTexture(tex)
	}

	for i, gm := range doc.Materials {
		name := gm.Name
		if name == "" {
			name = fmt.Sprintf("material_%d", i)
		}
		m := &Material{
			Name:            utils.SanitizeName(name),
			EmissiveFactor:  mgl32.Vec3(gm.EmissiveFactor),
			EmissiveTexture: textureInfoFromGLTF(gm.EmissiveTexture),
			AlphaCutoff:     0.5,
			DoubleSided:     gm.DoubleSided,
		}
		switch gm.AlphaMode {
		case gltf.AlphaMask:
			m.AlphaMode = AlphaMask
		case gltf.AlphaBlend:
			m.AlphaMode = AlphaBlend
		}
		if gm.AlphaCutoff != nil {
			m.AlphaCutoff = *gm.AlphaCutoff
		}

		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			mr := DefaultPBRMetallicRoughness()
			if pbr.BaseColorFactor != nil {
				mr.BaseColorFactor = mgl32.Vec4(*pbr.BaseColorFactor)
			}
			if pbr.MetallicFactor != nil {
				mr.MetallicFactor = *pbr.MetallicFactor
			}
			if pbr.RoughnessFactor != nil {
				mr.RoughnessFactor = *pbr.RoughnessFactor
			}
			mr.BaseColorTexture = textureInfoFromGLTF(pbr.BaseColorTexture)
			mr.MetallicRoughnessTexture = textureInfoFromGLTF(pbr.MetallicRoughnessTexture)
			m.PBRMetallicRoughness = mr
		}

		if nt := gm.NormalTexture; nt != nil && nt.Index != nil {
			m.NormalTexture = &NormalTextureInfo{
				TextureInfo: TextureInfo{Index: int(*nt.Index), TexCoord: int(nt.TexCoord)},
				Scale:       1,
			}
			if nt.Scale != nil {
				m.NormalTexture.Scale = *nt.Scale
			}
		}
		if ot := gm.OcclusionTexture; ot != nil && ot.Index != nil {
			m.OcclusionTexture = &OcclusionTextureInfo{
				TextureInfo: TextureInfo{Index: int(*ot.Index), TexCoord: int(ot.TexCoord)},
				Strength:    1,
			}
			if ot.Strength != nil {
				m.OcclusionTexture.Strength = *ot.Strength
			}
		}

		if ext, ok := gm.Extensions[specular.ExtensionName].(*specular.PBRSpecularGlossiness); ok {
			sg := DefaultPBRSpecularGlossiness()
			if ext.DiffuseFactor != nil {
				sg.DiffuseFactor = mgl32.Vec4(*ext.DiffuseFactor)
			}
			if ext.SpecularFactor != nil {
				sg.SpecularFactor = mgl32.Vec3(*ext.SpecularFactor)
			}
			if ext.GlossinessFactor != nil {
				sg.GlossinessFactor = *ext.GlossinessFactor
			}
			sg.DiffuseTexture = textureInfoFromGLTF(ext.DiffuseTexture)
			sg.SpecularGlossinessTexture = textureInfoFromGLTF(ext.SpecularGlossinessTexture)
			m.PBRSpecularGlossiness = sg
		}
		lib.AddMaterial(m)
	}
	return lib, nil
}

func textureInfoFromGLTF(ti *gltf.TextureInfo) *TextureInfo {
	if ti == nil {
		return nil
	}
	return &TextureInfo{Index: int(ti.Index), TexCoord: int(ti.TexCoord)}
}

func wrapFromGLTF(w gltf.WrappingMode) WrapMode {
	switch w {
	case gltf.WrapClampToEdge:
		return WrapClamp
	case gltf.WrapMirroredRepeat:
		return WrapMirror
	}
	return WrapRepeat
}

func wrapToGLTF(w WrapMode) gltf.WrappingMode {
	switch w {
	case WrapClamp, WrapBlack:
		return gltf.WrapClampToEdge
	case WrapMirror:
		return gltf.WrapMirroredRepeat
	}
	return gltf.WrapRepeat
}

// ExportGLTF appends the library textures and materials to doc and returns
// the index of the first appended material.
func ExportGLTF(doc *gltf.Document, lib *Library) uint32 {
	texOffset := uint32(len(doc.Textures))
	for _, t := range lib.Textures {
		doc.Samplers = append(doc.Samplers, &gltf.Sampler{
			WrapS: wrapToGLTF(t.WrapS),
			WrapT: wrapToGLTF(t.WrapT),
		})
		doc.Images = append(doc.Images, &gltf.Image{Name: t.Name, URI: t.File})
		doc.Textures = append(doc.Textures, &gltf.Texture{
			Name:    t.Name,
			Sampler: gltf.Index(uint32(len(doc.Samplers) - 1)),
			Source:  gltf.Index(uint32(len(doc.Images) - 1)),
		})
	}

	matOffset := uint32(len(doc.Materials))
	usesSpecular := false
	for _, m := range lib.Materials {
		gm := m.toGLTF(texOffset)
		if m.PBRSpecularGlossiness != nil {
			usesSpecular = true
		}
		doc.Materials = append(doc.Materials, gm)
	}
	if usesSpecular {
		addExtensionUsed(doc, specular.ExtensionName)
	}
	return matOffset
}

func addExtensionUsed(doc *gltf.Document, name string) {
	for _, ext := range doc.ExtensionsUsed {
		if ext == name {
			return
		}
	}
	doc.ExtensionsUsed = append(doc.ExtensionsUsed, name)
}

func (m *Material) toGLTF(texOffset uint32) *gltf.Material {
	info := func(ti *TextureInfo) *gltf.TextureInfo {
		if ti == nil {
			return nil
		}
		return &gltf.TextureInfo{Index: texOffset + uint32(ti.Index), TexCoord: uint32(ti.TexCoord)}
	}

	gm := &gltf.Material{
		Name:            m.Name,
		DoubleSided:     m.DoubleSided,
		EmissiveFactor:  [3]float32(m.EmissiveFactor),
		EmissiveTexture: info(m.EmissiveTexture),
	}
	switch m.AlphaMode {
	case AlphaMask:
		gm.AlphaMode = gltf.AlphaMask
		gm.AlphaCutoff = gltf.Float(m.AlphaCutoff)
	case AlphaBlend:
		gm.AlphaMode = gltf.AlphaBlend
	}

	mr := m.PBRMetallicRoughness
	if mr == nil {
		mr = DefaultPBRMetallicRoughness()
	}
	color := [4]float32(mr.BaseColorFactor)
	gm.PBRMetallicRoughness = &gltf.PBRMetallicRoughness{
		BaseColorFactor:          &color,
		BaseColorTexture:         info(mr.BaseColorTexture),
		MetallicFactor:           gltf.Float(mr.MetallicFactor),
		RoughnessFactor:          gltf.Float(mr.RoughnessFactor),
		MetallicRoughnessTexture: info(mr.MetallicRoughnessTexture),
	}

	if nt := m.NormalTexture; nt != nil {
		gm.NormalTexture = &gltf.NormalTexture{
			Index:    gltf.Index(texOffset + uint32(nt.Index)),
			TexCoord: uint32(nt.TexCoord),
			Scale:    gltf.Float(nt.Scale),
		}
	}
	if ot := m.OcclusionTexture; ot != nil {
		gm.OcclusionTexture = &gltf.OcclusionTexture{
			Index:    gltf.Index(texOffset + uint32(ot.Index)),
			TexCoord: uint32(ot.TexCoord),
			Strength: gltf.Float(ot.Strength),
		}
	}

	if sg := m.PBRSpecularGlossiness; sg != nil {
		diffuse := [4]float32(sg.DiffuseFactor)
		spec := [3]float32(sg.SpecularFactor)
		gm.Extensions = gltf.Extensions{
			specular.ExtensionName: &specular.PBRSpecularGlossiness{
				DiffuseFactor:             &diffuse,
				DiffuseTexture:            info(sg.DiffuseTexture),
				SpecularFactor:            &spec,
				GlossinessFactor:          gltf.Float(sg.GlossinessFactor),
				SpecularGlossinessTexture: info(sg.SpecularGlossinessTexture),
			},
		}
	}
	return gm
}
