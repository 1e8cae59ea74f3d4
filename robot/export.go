package robot

import (
	"fmt"
	"log"

	"github.com/mogaika/usd_exporter/config"
	"github.com/mogaika/usd_exporter/conversions"
	"github.com/mogaika/usd_exporter/geom"
	"github.com/mogaika/usd_exporter/material"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/mogaika/usd_exporter/utils"
	"github.com/pkg/errors"
)

// VisualPrim is the transform prim written for one mesh of a visual.
type VisualPrim struct {
	Link   *Link
	Visual *Visual
	Init   geom.Transformation
	Xform  usd.Xform
}

// StageFromRobot exports every visual mesh of the model under /<robot name>.
// Without a trajectory the zero configuration is written once; with one,
// each visual transform is sampled at time codes 0..len(trajectory)-1.
// fps <= 0 uses the configured default rate. With an empty filePath the
// stage stays in memory, otherwise it is saved once at the end.
func StageFromRobot(model *Model, filePath string, trajectory []Configuration, fps float64) (*usd.Stage, error) {
	stage := usd.CreateInMemory()
	if filePath != "" {
		var err error
		if stage, err = usd.CreateNew(filePath); err != nil {
			return nil, err
		}
	}
	if err := stage.SetUpAxis(config.GetUpAxis()); err != nil {
		return nil, err
	}
	if len(trajectory) != 0 {
		if fps <= 0 {
			fps = config.GetDefaultFPS()
		}
		stage.SetStartTimeCode(0)
		stage.SetEndTimeCode(float64(len(trajectory) - 1))
		stage.SetTimeCodesPerSecond(fps)
	}

	rootPath := usd.AbsoluteRootPath.AppendChild(utils.SanitizeName(model.Name))
	root, err := usd.DefineXform(stage, rootPath)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't create robot root")
	}
	root.Prim().SetKind(usd.KindAssembly)
	if err := stage.SetDefaultPrim(root.Prim()); err != nil {
		return nil, err
	}

	binder := material.NewBinder(stage, model.Materials, model.MDL)
	prims, err := visualPrims(stage, binder, model, rootPath)
	if err != nil {
		return nil, err
	}

	if len(trajectory) != 0 {
		err = ApplyAnimation(model, prims, trajectory)
	} else {
		err = ApplyStaticTransforms(prims)
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[robot] Robot %q: %d visual meshes, %d frames", model.Name, len(prims), len(trajectory))

	if filePath != "" {
		if err := stage.Save(); err != nil {
			return nil, err
		}
	}
	return stage, nil
}

func visualPrims(stage *usd.Stage, binder *material.Binder, model *Model, rootPath usd.Path) ([]VisualPrim, error) {
	frames := model.LinkTransformations()
	var prims []VisualPrim
	for _, l := range model.IterLinks() {
		for i, v := range l.Visuals {
			init := InitTransformation(frames, l, v)
			for j, mesh := range v.Meshes {
				path := rootPath.AppendChild(utils.SanitizeName(fmt.Sprintf("%s_visual_%d_%d", l.Name, i, j)))
				if stage.GetPrimAtPath(path) != nil {
					return nil, errors.Errorf("Visual %v of link %q collides with another link", path, l.Name)
				}
				x, err := usd.DefineXform(stage, path)
				if err != nil {
					return nil, err
				}
				m, err := conversions.PrimFromMesh(stage, path.AppendChild("mesh"), mesh)
				if err != nil {
					return nil, errors.Wrapf(err, "Link %q visual %d mesh %d", l.Name, i, j)
				}
				if v.Material != "" {
					if err := binder.Bind(m.Prim(), v.Material); err != nil {
						return nil, errors.Wrapf(err, "Link %q visual %d", l.Name, i)
					}
				}
				prims = append(prims, VisualPrim{Link: l, Visual: v, Init: init, Xform: x})
			}
		}
	}
	return prims, nil
}

// ApplyStaticTransforms sets every visual transform to its zero
// configuration world transform.
func ApplyStaticTransforms(prims []VisualPrim) error {
	for _, vp := range prims {
		if err := vp.Xform.ResetXformOps(); err != nil {
			return err
		}
		if err := conversions.ApplyTransformationOnPrim(vp.Xform.Prim(), vp.Init); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAnimation replaces the ops of every visual transform with a single
// transform op sampled once per trajectory frame, in frame order.
func ApplyAnimation(model *Model, prims []VisualPrim, trajectory []Configuration) error {
	ops := make([]usd.XformOp, len(prims))
	for i, vp := range prims {
		if err := vp.Xform.ResetXformOps(); err != nil {
			return err
		}
		op, err := vp.Xform.AddTransformOp()
		if err != nil {
			return errors.Wrapf(err, "Can't animate %v", vp.Xform.Prim().Path())
		}
		ops[i] = op
	}

	for frame, cfg := range trajectory {
		transformations, err := model.ComputeTransformations(cfg)
		if err != nil {
			return errors.Wrapf(err, "Frame %d", frame)
		}
		for i, vp := range prims {
			joint := geom.Identity()
			if pj := vp.Link.ParentJoint; pj != nil {
				if t, ok := transformations[pj.Name]; ok {
					joint = t
				}
			}
			world := joint.Mul(vp.Init)
			if err := ops[i].SetAt(float64(frame), conversions.Matrix4dFromTransformation(world)); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrimFromLink writes the link as an Xform with one Mesh child per visual
// mesh, named visual_<i>_<j>.
func PrimFromLink(stage *usd.Stage, path usd.Path, l *Link) (usd.Xform, error) {
	x, err := usd.DefineXform(stage, path)
	if err != nil {
		return x, err
	}
	for i, v := range l.Visuals {
		for j, mesh := range v.Meshes {
			if _, err := conversions.PrimFromMesh(stage, path.AppendChild(fmt.Sprintf("visual_%d_%d", i, j)), mesh); err != nil {
				return x, errors.Wrapf(err, "Link %q visual %d mesh %d", l.Name, i, j)
			}
		}
	}
	return x, nil
}
