package material

import (
	"path/filepath"
	"strings"

	"github.com/mogaika/usd_exporter/config"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/mogaika/usd_exporter/utils"
	"github.com/pkg/errors"
)

const (
	ShaderName = "Shader"

	PreviewSurfaceID = "UsdPreviewSurface"
	PrimvarReaderID  = "UsdPrimvarReader_float2"
	UVTextureID      = "UsdUVTexture"
	MDLMaterialID    = "mdlMaterial"
)

// USDMaterial wraps a Material prim under the materials scope.
type USDMaterial struct {
	stage        *usd.Stage
	material     usd.Material
	surface      usd.Output
	displacement usd.Output
}

// materialsScope returns the scope materials live under, defining it on
// first use.
func materialsScope(stage *usd.Stage) (usd.Path, error) {
	path := config.GetMaterialsPath()
	if stage.GetPrimAtPath(path) == nil {
		if _, err := usd.DefineScope(stage, path); err != nil {
			return path, errors.Wrapf(err, "Can't create materials scope")
		}
	}
	return path, nil
}

// NewUSDMaterial defines a Material named after name with surface and
// displacement outputs. A name already used in the materials scope gets a
// numeric suffix.
func NewUSDMaterial(stage *usd.Stage, name string) (*USDMaterial, error) {
	scope, err := materialsScope(stage)
	if err != nil {
		return nil, err
	}
	primName := utils.UniqueName(utils.SanitizeName(name), func(n string) bool {
		return stage.GetPrimAtPath(scope.AppendChild(n)) != nil
	})
	m, err := usd.DefineMaterial(stage, scope.AppendChild(primName))
	if err != nil {
		return nil, errors.Wrapf(err, "Can't define material %q", name)
	}
	um := &USDMaterial{stage: stage, material: m}
	if um.surface, err = m.CreateSurfaceOutput(); err != nil {
		return nil, err
	}
	if um.displacement, err = m.CreateDisplacementOutput(); err != nil {
		return nil, err
	}
	return um, nil
}

// FromPath wraps a Material prim that already exists on the stage.
func FromPath(stage *usd.Stage, path usd.Path) (*USDMaterial, error) {
	m, err := usd.MaterialFromPrim(stage.GetPrimAtPath(path))
	if err != nil {
		return nil, errors.Wrapf(err, "No material at %v", path)
	}
	return &USDMaterial{
		stage:        stage,
		material:     m,
		surface:      m.GetOutput("surface"),
		displacement: m.GetOutput("displacement"),
	}, nil
}

// FromMaterial builds the preview surface graph for m. lib resolves texture
// references and may be nil for untextured materials.
func FromMaterial(stage *usd.Stage, m *Material, lib *Library) (*USDMaterial, error) {
	um, err := NewUSDMaterial(stage, m.Name)
	if err != nil {
		return nil, err
	}
	ps, err := NewPreviewSurface(um, lib)
	if err != nil {
		return nil, err
	}
	if err := ps.Apply(m); err != nil {
		return nil, errors.Wrapf(err, "Can't build material %q", m.Name)
	}
	return um, nil
}

// FromMDL defines a material implemented by an MDL module. The module path
// is written relative to the stage file when the stage has one.
func FromMDL(stage *usd.Stage, mdlPath string, name string) (*USDMaterial, error) {
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(mdlPath), filepath.Ext(mdlPath))
	}
	um, err := NewUSDMaterial(stage, name)
	if err != nil {
		return nil, err
	}
	shader, err := usd.DefineShader(stage, um.Path().AppendChild(ShaderName))
	if err != nil {
		return nil, err
	}
	if err := shader.CreateIDAttr(MDLMaterialID); err != nil {
		return nil, err
	}
	if err := shader.SetSourceAsset(mdlModulePath(stage, mdlPath), "mdl"); err != nil {
		return nil, err
	}
	if err := shader.SetSourceAssetSubIdentifier(name, "mdl"); err != nil {
		return nil, err
	}
	out, err := shader.CreateOutput("out", usd.TypeToken)
	if err != nil {
		return nil, err
	}
	return um, um.surface.ConnectToSource(out)
}

func mdlModulePath(stage *usd.Stage, mdlPath string) string {
	module := mdlPath
	if stage.FilePath() != "" {
		if rel, err := filepath.Rel(filepath.Dir(stage.FilePath()), mdlPath); err == nil {
			module = rel
		}
	}
	module = filepath.ToSlash(module)
	if !filepath.IsAbs(module) && !strings.HasPrefix(module, ".") {
		module = "./" + module
	}
	return module
}

func (um *USDMaterial) Path() usd.Path            { return um.material.Prim().Path() }
func (um *USDMaterial) Material() usd.Material    { return um.material }
func (um *USDMaterial) SurfaceOutput() usd.Output { return um.surface }

func (um *USDMaterial) DisplacementOutput() usd.Output {
	return um.displacement
}

// Bind applies MaterialBindingAPI on prim and targets this material.
func (um *USDMaterial) Bind(prim *usd.Prim) error {
	if err := usd.ApplyMaterialBindingAPI(prim).Bind(um.material); err != nil {
		return errors.Wrapf(err, "Can't bind %v to %v", um.Path(), prim.Path())
	}
	return nil
}
