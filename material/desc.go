package material

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type TextureDesc struct {
	File     string `yaml:"file"`
	WrapS    string `yaml:"wrap_s,omitempty"`
	WrapT    string `yaml:"wrap_t,omitempty"`
	TexCoord int    `yaml:"texcoord,omitempty"`
}

// MaterialDesc describes a material in scene and robot files. Setting
// specular or glossiness selects the specular/glossiness workflow.
type MaterialDesc struct {
	Name        string    `yaml:"name"`
	MDL         string    `yaml:"mdl,omitempty"`
	BaseColor   []float32 `yaml:"base_color,omitempty"`
	Metallic    *float32  `yaml:"metallic,omitempty"`
	Roughness   *float32  `yaml:"roughness,omitempty"`
	Specular    []float32 `yaml:"specular,omitempty"`
	Glossiness  *float32  `yaml:"glossiness,omitempty"`
	Emissive    []float32 `yaml:"emissive,omitempty"`
	AlphaMode   string    `yaml:"alpha_mode,omitempty"`
	AlphaCutoff *float32  `yaml:"alpha_cutoff,omitempty"`
	DoubleSided bool      `yaml:"double_sided,omitempty"`

	BaseColorTexture         *TextureDesc `yaml:"base_color_texture,omitempty"`
	MetallicRoughnessTexture *TextureDesc `yaml:"metallic_roughness_texture,omitempty"`
	SpecularTexture          *TextureDesc `yaml:"specular_glossiness_texture,omitempty"`
	NormalTexture            *TextureDesc `yaml:"normal_texture,omitempty"`
	NormalScale              *float32     `yaml:"normal_scale,omitempty"`
	OcclusionTexture         *TextureDesc `yaml:"occlusion_texture,omitempty"`
	OcclusionStrength        *float32     `yaml:"occlusion_strength,omitempty"`
	EmissiveTexture          *TextureDesc `yaml:"emissive_texture,omitempty"`
}

func color(v []float32, n int, def mgl32.Vec4) (mgl32.Vec4, error) {
	if v == nil {
		return def, nil
	}
	switch {
	case len(v) == n:
	case n == 4 && len(v) == 3:
		v = append(v, 1)
	default:
		return mgl32.Vec4{}, errors.Errorf("Expected %d components, got %d", n, len(v))
	}
	var c mgl32.Vec4
	copy(c[:], v)
	return c, nil
}

func (d *TextureDesc) add(lib *Library) (*TextureInfo, error) {
	if d == nil {
		return nil, nil
	}
	if d.File == "" {
		return nil, errors.Errorf("Texture without file")
	}
	wrapS, err := ParseWrapMode(d.WrapS)
	if err != nil {
		return nil, err
	}
	wrapT, err := ParseWrapMode(d.WrapT)
	if err != nil {
		return nil, err
	}
	for i, t := range lib.Textures {
		if t.File == d.File && t.WrapS == wrapS && t.WrapT == wrapT {
			return &TextureInfo{Index: i, TexCoord: d.TexCoord}, nil
		}
	}
	index := lib.AddTexture(&Texture{File: d.File, WrapS: wrapS, WrapT: wrapT})
	return &TextureInfo{Index: index, TexCoord: d.TexCoord}, nil
}

// Material converts the description, adding its textures to lib in glTF
// order: base color, the workflow texture, emissive, normal, occlusion.
func (d *MaterialDesc) Material(lib *Library) (*Material, error) {
	if d.Name == "" {
		return nil, errors.Errorf("Material without name")
	}
	m := NewMaterial(d.Name)
	m.DoubleSided = d.DoubleSided

	var err error
	if m.AlphaMode, err = ParseAlphaMode(d.AlphaMode); err != nil {
		return nil, err
	}
	if d.AlphaCutoff != nil {
		m.AlphaCutoff = *d.AlphaCutoff
	}

	base, err := color(d.BaseColor, 4, mgl32.Vec4{1, 1, 1, 1})
	if err != nil {
		return nil, errors.Wrapf(err, "Bad base color")
	}
	baseTexture, err := d.BaseColorTexture.add(lib)
	if err != nil {
		return nil, errors.Wrapf(err, "Base color texture")
	}

	if d.Specular != nil || d.Glossiness != nil || d.SpecularTexture != nil {
		sg := DefaultPBRSpecularGlossiness()
		sg.DiffuseFactor, sg.DiffuseTexture = base, baseTexture
		spec, err := color(d.Specular, 3, sg.SpecularFactor.Vec4(0))
		if err != nil {
			return nil, errors.Wrapf(err, "Bad specular")
		}
		sg.SpecularFactor = spec.Vec3()
		if d.Glossiness != nil {
			sg.GlossinessFactor = *d.Glossiness
		}
		if sg.SpecularGlossinessTexture, err = d.SpecularTexture.add(lib); err != nil {
			return nil, errors.Wrapf(err, "Specular texture")
		}
		m.PBRMetallicRoughness = nil
		m.PBRSpecularGlossiness = sg
	} else {
		mr := m.PBRMetallicRoughness
		mr.BaseColorFactor, mr.BaseColorTexture = base, baseTexture
		if d.Metallic != nil {
			mr.MetallicFactor = *d.Metallic
		}
		if d.Roughness != nil {
			mr.RoughnessFactor = *d.Roughness
		}
		if mr.MetallicRoughnessTexture, err = d.MetallicRoughnessTexture.add(lib); err != nil {
			return nil, errors.Wrapf(err, "Metallic/roughness texture")
		}
	}

	emissive, err := color(d.Emissive, 3, mgl32.Vec4{})
	if err != nil {
		return nil, errors.Wrapf(err, "Bad emissive")
	}
	m.EmissiveFactor = emissive.Vec3()
	if m.EmissiveTexture, err = d.EmissiveTexture.add(lib); err != nil {
		return nil, errors.Wrapf(err, "Emissive texture")
	}

	if info, err := d.NormalTexture.add(lib); err != nil {
		return nil, errors.Wrapf(err, "Normal texture")
	} else if info != nil {
		m.NormalTexture = &NormalTextureInfo{TextureInfo: *info, Scale: 1}
		if d.NormalScale != nil {
			m.NormalTexture.Scale = *d.NormalScale
		}
	}
	if info, err := d.OcclusionTexture.add(lib); err != nil {
		return nil, errors.Wrapf(err, "Occlusion texture")
	} else if info != nil {
		m.OcclusionTexture = &OcclusionTextureInfo{TextureInfo: *info, Strength: 1}
		if d.OcclusionStrength != nil {
			m.OcclusionTexture.Strength = *d.OcclusionStrength
		}
	}
	return m, nil
}

// AddDescs adds the described materials to l. MDL materials do not go
// through the library; their module paths are returned by name.
func (l *Library) AddDescs(descs []MaterialDesc) (map[string]string, error) {
	mdl := make(map[string]string)
	for i := range descs {
		d := &descs[i]
		if l.Material(d.Name) != nil || mdl[d.Name] != "" {
			return nil, errors.Errorf("Duplicate material %q", d.Name)
		}
		if d.MDL != "" {
			mdl[d.Name] = d.MDL
			continue
		}
		m, err := d.Material(l)
		if err != nil {
			return nil, errors.Wrapf(err, "Material %d (%q)", i, d.Name)
		}
		l.AddMaterial(m)
	}
	return mdl, nil
}
