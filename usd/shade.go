package usd

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	inputsPrefix  = "inputs:"
	outputsPrefix = "outputs:"

	MaterialBindingAPIName = "MaterialBindingAPI"
	MaterialBindingRel     = "material:binding"
)

// Input is an inputs:* attribute of a shader or material.
type Input struct {
	attr *Attribute
}

func (i Input) Attr() *Attribute { return i.attr }
func (i Input) Name() string     { return strings.TrimPrefix(i.attr.name, inputsPrefix) }
func (i Input) IsValid() bool    { return i.attr != nil }

func (i Input) Set(v interface{}) error {
	return i.attr.Set(v)
}

func (i Input) Get() (interface{}, bool) {
	return i.attr.Get()
}

func (i Input) ConnectToSource(source Output) error {
	return i.attr.ConnectToSource(source.attr.Path())
}

// ConnectedSource resolves the first connection to its prim and output name.
func (i Input) ConnectedSource() (*Prim, string, bool) {
	if i.attr == nil || !i.attr.HasConnections() {
		return nil, "", false
	}
	src := i.attr.connections[0]
	p := i.attr.prim.stage.GetPrimAtPath(src.PrimPath())
	if p == nil {
		return nil, "", false
	}
	return p, strings.TrimPrefix(src.Name(), outputsPrefix), true
}

// Output is an outputs:* attribute.
type Output struct {
	attr *Attribute
}

func (o Output) Attr() *Attribute { return o.attr }
func (o Output) Name() string     { return strings.TrimPrefix(o.attr.name, outputsPrefix) }
func (o Output) IsValid() bool    { return o.attr != nil }

// ConnectToSource makes o forward another output, e.g. material surface to
// shader surface.
func (o Output) ConnectToSource(source Output) error {
	return o.attr.ConnectToSource(source.attr.Path())
}

// connectable is shared by Material and Shader.
type connectable struct {
	prim *Prim
}

func (c connectable) Prim() *Prim { return c.prim }

func (c connectable) CreateInput(name string, typ ValueType) (Input, error) {
	a, err := c.prim.CreateAttribute(inputsPrefix+name, typ)
	if err != nil {
		return Input{}, err
	}
	return Input{attr: a}, nil
}

func (c connectable) CreateOutput(name string, typ ValueType) (Output, error) {
	a, err := c.prim.CreateAttribute(outputsPrefix+name, typ)
	if err != nil {
		return Output{}, err
	}
	return Output{attr: a}, nil
}

func (c connectable) GetInput(name string) Input {
	return Input{attr: c.prim.GetAttribute(inputsPrefix + name)}
}

func (c connectable) GetOutput(name string) Output {
	return Output{attr: c.prim.GetAttribute(outputsPrefix + name)}
}

func (c connectable) Inputs() []Input {
	var inputs []Input
	for _, a := range c.prim.attrs {
		if strings.HasPrefix(a.name, inputsPrefix) {
			inputs = append(inputs, Input{attr: a})
		}
	}
	return inputs
}

type Material struct{ connectable }

func DefineMaterial(s *Stage, path Path) (Material, error) {
	p, err := definePrim(s, path, TypeNameMaterial)
	return Material{connectable{prim: p}}, err
}

// MaterialFromPrim wraps an existing Material prim.
func MaterialFromPrim(p *Prim) (Material, error) {
	if p == nil || p.typeName != TypeNameMaterial {
		return Material{}, errors.Errorf("Prim is not a Material")
	}
	return Material{connectable{prim: p}}, nil
}

func (m Material) CreateSurfaceOutput() (Output, error) {
	return m.CreateOutput("surface", TypeToken)
}

func (m Material) CreateDisplacementOutput() (Output, error) {
	return m.CreateOutput("displacement", TypeToken)
}

func (m Material) CreateVolumeOutput() (Output, error) {
	return m.CreateOutput("volume", TypeToken)
}

// SurfaceSource follows the surface output connection to the shader prim.
func (m Material) SurfaceSource() (Shader, error) {
	out := m.GetOutput("surface")
	if !out.IsValid() || !out.attr.HasConnections() {
		return Shader{}, errors.Errorf("Material %v has no connected surface output", m.prim.path)
	}
	src := out.attr.GetConnections()[0].PrimPath()
	p := m.prim.stage.GetPrimAtPath(src)
	if p == nil {
		return Shader{}, errors.Errorf("Material %v surface source %v does not exist", m.prim.path, src)
	}
	return Shader{connectable{prim: p}}, nil
}

type Shader struct{ connectable }

func DefineShader(s *Stage, path Path) (Shader, error) {
	p, err := definePrim(s, path, TypeNameShader)
	return Shader{connectable{prim: p}}, err
}

func ShaderFromPrim(p *Prim) (Shader, error) {
	if p == nil || p.typeName != TypeNameShader {
		return Shader{}, errors.Errorf("Prim is not a Shader")
	}
	return Shader{connectable{prim: p}}, nil
}

func (s Shader) IDAttr() *Attribute {
	return s.prim.schemaAttr("info:id", TypeToken, true)
}

func (s Shader) CreateIDAttr(id string) error {
	return s.IDAttr().Set(Token(id))
}

func (s Shader) ShaderID() string {
	a := s.prim.GetAttribute("info:id")
	if a == nil {
		return ""
	}
	v, _ := a.Get()
	id, _ := v.(Token)
	return string(id)
}

// SetSourceAsset points the shader at an external implementation such as an
// MDL module, for the given source type ("mdl").
func (s Shader) SetSourceAsset(asset string, sourceType string) error {
	if err := s.prim.schemaAttr("info:implementationSource", TypeToken, true).Set(Token("sourceAsset")); err != nil {
		return err
	}
	return s.prim.schemaAttr("info:"+sourceType+":sourceAsset", TypeAsset, true).Set(Asset(asset))
}

func (s Shader) SetSourceAssetSubIdentifier(sub string, sourceType string) error {
	return s.prim.schemaAttr("info:"+sourceType+":sourceAsset:subIdentifier", TypeToken, true).Set(Token(sub))
}

// MaterialBindingAPI binds materials to geometry through material:binding.
type MaterialBindingAPI struct {
	prim *Prim
}

func ApplyMaterialBindingAPI(p *Prim) MaterialBindingAPI {
	p.ApplyAPI(MaterialBindingAPIName)
	return MaterialBindingAPI{prim: p}
}

func (b MaterialBindingAPI) Bind(m Material) error {
	rel, err := b.prim.CreateRelationship(MaterialBindingRel)
	if err != nil {
		return err
	}
	rel.SetTargets([]Path{m.prim.path})
	return nil
}

func (b MaterialBindingAPI) UnbindAll() {
	if rel := b.prim.GetRelationship(MaterialBindingRel); rel != nil {
		rel.SetTargets(nil)
	}
}

// ComputeBoundMaterial resolves the binding on the prim or its nearest
// bound ancestor.
func ComputeBoundMaterial(p *Prim) (Material, bool) {
	for cur := p; cur != nil && !cur.IsPseudoRoot(); cur = cur.parent {
		rel := cur.GetRelationship(MaterialBindingRel)
		if rel == nil || len(rel.targets) == 0 {
			continue
		}
		m, err := MaterialFromPrim(cur.stage.GetPrimAtPath(rel.targets[0]))
		if err != nil {
			return Material{}, false
		}
		return m, true
	}
	return Material{}, false
}
