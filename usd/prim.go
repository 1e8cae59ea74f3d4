package usd

import (
	"github.com/pkg/errors"
)

type Specifier int

const (
	SpecifierDef Specifier = iota
	SpecifierOver
	SpecifierClass
)

func (s Specifier) String() string {
	switch s {
	case SpecifierOver:
		return "over"
	case SpecifierClass:
		return "class"
	default:
		return "def"
	}
}

// Model kinds
const (
	KindComponent = "component"
	KindGroup     = "group"
	KindAssembly  = "assembly"
)

type Prim struct {
	stage      *Stage
	parent     *Prim
	path       Path
	specifier  Specifier
	typeName   string
	kind       string
	apiSchemas []string
	children   []*Prim
	attrs      []*Attribute
	rels       []*Relationship
}

func (p *Prim) Path() Path            { return p.path }
func (p *Prim) Name() string          { return p.path.Name() }
func (p *Prim) Stage() *Stage         { return p.stage }
func (p *Prim) Parent() *Prim         { return p.parent }
func (p *Prim) TypeName() string      { return p.typeName }
func (p *Prim) SetTypeName(t string)  { p.typeName = t }
func (p *Prim) Specifier() Specifier  { return p.specifier }
func (p *Prim) Kind() string          { return p.kind }
func (p *Prim) SetKind(kind string)   { p.kind = kind }
func (p *Prim) IsPseudoRoot() bool    { return p.path == AbsoluteRootPath }

func (p *Prim) SetSpecifier(s Specifier) {
	p.specifier = s
}

func (p *Prim) Children() []*Prim {
	return append([]*Prim(nil), p.children...)
}

func (p *Prim) Child(name string) *Prim {
	for _, c := range p.children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func (p *Prim) removeChild(child *Prim) {
	for i, c := range p.children {
		if c == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}

// ApplyAPI records an applied API schema once.
func (p *Prim) ApplyAPI(schema string) {
	if !p.HasAPI(schema) {
		p.apiSchemas = append(p.apiSchemas, schema)
	}
}

func (p *Prim) HasAPI(schema string) bool {
	for _, s := range p.apiSchemas {
		if s == schema {
			return true
		}
	}
	return false
}

func (p *Prim) AppliedSchemas() []string {
	return append([]string(nil), p.apiSchemas...)
}

func (p *Prim) Attributes() []*Attribute {
	return append([]*Attribute(nil), p.attrs...)
}

func (p *Prim) GetAttribute(name string) *Attribute {
	for _, a := range p.attrs {
		if a.name == name {
			return a
		}
	}
	return nil
}

// GetValue reads the default value of an attribute, falling back to the
// schema fallback when the attribute was never authored.
func (p *Prim) GetValue(name string) (interface{}, bool) {
	if a := p.GetAttribute(name); a != nil {
		return a.Get()
	}
	return schemaFallback(p.typeName, name)
}

func (p *Prim) HasAttribute(name string) bool {
	return p.GetAttribute(name) != nil
}

// CreateAttribute returns the existing attribute when one of the same type
// is already present.
func (p *Prim) CreateAttribute(name string, typ ValueType) (*Attribute, error) {
	if p.IsPseudoRoot() {
		return nil, errors.Errorf("Can't create attribute %q on the pseudo root", name)
	}
	if !IsValidPropertyName(name) {
		return nil, errors.Errorf("Invalid attribute name %q on %v", name, p.path)
	}
	if !typ.IsValid() {
		return nil, errors.Errorf("Unknown value type %q for %v.%s", typ, p.path, name)
	}
	if a := p.GetAttribute(name); a != nil {
		if a.typ != typ {
			return nil, errors.Errorf("Attribute %v already exists with type %q, requested %q", a.Path(), a.typ, typ)
		}
		return a, nil
	}
	if p.GetRelationship(name) != nil {
		return nil, errors.Errorf("Property %v is a relationship", p.path.AppendProperty(name))
	}
	a := &Attribute{prim: p, name: name, typ: typ}
	p.attrs = append(p.attrs, a)
	return a, nil
}

// schemaAttr creates a built-in schema attribute. A conflicting attribute
// authored earlier is returned as is and will reject mistyped values.
func (p *Prim) schemaAttr(name string, typ ValueType, uniform bool) *Attribute {
	if a := p.GetAttribute(name); a != nil {
		return a
	}
	a := &Attribute{prim: p, name: name, typ: typ, uniform: uniform}
	p.attrs = append(p.attrs, a)
	return a
}

func (p *Prim) RemoveAttribute(name string) bool {
	for i, a := range p.attrs {
		if a.name == name {
			p.attrs = append(p.attrs[:i], p.attrs[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Prim) Relationships() []*Relationship {
	return append([]*Relationship(nil), p.rels...)
}

func (p *Prim) GetRelationship(name string) *Relationship {
	for _, r := range p.rels {
		if r.name == name {
			return r
		}
	}
	return nil
}

func (p *Prim) CreateRelationship(name string) (*Relationship, error) {
	if !IsValidPropertyName(name) {
		return nil, errors.Errorf("Invalid relationship name %q on %v", name, p.path)
	}
	if r := p.GetRelationship(name); r != nil {
		return r, nil
	}
	if p.GetAttribute(name) != nil {
		return nil, errors.Errorf("Property %v is an attribute", p.path.AppendProperty(name))
	}
	r := &Relationship{prim: p, name: name}
	p.rels = append(p.rels, r)
	return r, nil
}

// schema fallbacks for attributes that were never authored
var schemaFallbacks = map[string]map[string]interface{}{
	"Cube": {
		"size": float64(2),
	},
	"Sphere": {
		"radius": float64(1),
	},
	"Cylinder": {
		"height": float64(2),
		"radius": float64(1),
		"axis":   Token("Z"),
	},
	"Mesh": {
		"subdivisionScheme": Token("catmullClark"),
	},
}

func schemaFallback(typeName, attr string) (interface{}, bool) {
	if attrs, ok := schemaFallbacks[typeName]; ok {
		v, ok := attrs[attr]
		return v, ok
	}
	return nil, false
}
