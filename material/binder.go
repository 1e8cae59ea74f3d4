package material

import (
	"github.com/mogaika/usd_exporter/usd"
	"github.com/pkg/errors"
)

// Binder exports named materials to a stage on first use and binds them to
// geometry prims.
type Binder struct {
	stage    *usd.Stage
	lib      *Library
	mdl      map[string]string
	exported map[string]*USDMaterial
}

// NewBinder resolves names against lib first, then against mdl module
// paths. Both may be nil.
func NewBinder(stage *usd.Stage, lib *Library, mdl map[string]string) *Binder {
	return &Binder{
		stage:    stage,
		lib:      lib,
		mdl:      mdl,
		exported: make(map[string]*USDMaterial),
	}
}

func (b *Binder) Material(name string) (*USDMaterial, error) {
	if um, ok := b.exported[name]; ok {
		return um, nil
	}
	var um *USDMaterial
	var err error
	if m := b.lib.Material(name); m != nil {
		um, err = FromMaterial(b.stage, m, b.lib)
	} else if module, ok := b.mdl[name]; ok {
		um, err = FromMDL(b.stage, module, name)
	} else {
		return nil, errors.Errorf("Unknown material %q", name)
	}
	if err != nil {
		return nil, err
	}
	b.exported[name] = um
	return um, nil
}

func (b *Binder) Bind(prim *usd.Prim, name string) error {
	um, err := b.Material(name)
	if err != nil {
		return err
	}
	return um.Bind(prim)
}

// Exported returns the number of materials written so far.
func (b *Binder) Exported() int { return len(b.exported) }
