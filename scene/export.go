package scene

import (
	"log"

	"github.com/mogaika/usd_exporter/config"
	"github.com/mogaika/usd_exporter/conversions"
	"github.com/mogaika/usd_exporter/geom"
	"github.com/mogaika/usd_exporter/material"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/mogaika/usd_exporter/utils"
	"github.com/pkg/errors"
)

type exporter struct {
	stage  *usd.Stage
	binder *material.Binder
	prims  int
}

// StageFromScene writes the scene under /<scene name>. With an empty
// filePath the stage stays in memory, otherwise it is saved once at the end.
func StageFromScene(s *Scene, filePath string) (*usd.Stage, error) {
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

	rootPath := usd.AbsoluteRootPath.AppendChild(utils.SanitizeName(s.Name))
	root, err := usd.DefineXform(stage, rootPath)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't create scene root")
	}
	if err := stage.SetDefaultPrim(root.Prim()); err != nil {
		return nil, err
	}

	e := &exporter{stage: stage, binder: material.NewBinder(stage, s.Materials, s.MDL)}
	for _, n := range s.Root.Children {
		if _, err := e.node(n, rootPath); err != nil {
			return nil, err
		}
	}
	log.Printf("[scene] Scene %q: %d prims, %d materials", s.Name, e.prims, e.binder.Exported())

	if filePath != "" {
		if err := stage.Save(); err != nil {
			return nil, err
		}
	}
	return stage, nil
}

// PrimFromSceneObject writes node and its subtree under parentPath. Items
// referencing materials need StageFromScene.
func PrimFromSceneObject(stage *usd.Stage, node *Node, parentPath usd.Path) (*usd.Prim, error) {
	e := &exporter{stage: stage, binder: material.NewBinder(stage, nil, nil)}
	return e.node(node, parentPath)
}

func (e *exporter) define(path usd.Path) error {
	if e.stage.GetPrimAtPath(path) != nil {
		return errors.Errorf("Duplicate scene object name %q under %v", path.Name(), path.Parent())
	}
	e.prims++
	return nil
}

func (e *exporter) node(n *Node, parentPath usd.Path) (*usd.Prim, error) {
	path := parentPath.AppendChild(utils.SanitizeName(n.Name))
	if err := e.define(path); err != nil {
		return nil, err
	}
	t := geom.Identity()
	if n.Transformation != nil {
		t = *n.Transformation
	}
	x, err := conversions.PrimFromTransformation(e.stage, path, t)
	if err != nil {
		return nil, errors.Wrapf(err, "Node %q", n.Name)
	}

	if n.Item != nil {
		if err := e.item(n.Item, path); err != nil {
			return nil, errors.Wrapf(err, "Node %q", n.Name)
		}
	}
	for _, c := range n.Children {
		if _, err := e.node(c, path); err != nil {
			return nil, err
		}
	}
	return x.Prim(), nil
}

func (e *exporter) item(item *Item, parentPath usd.Path) error {
	if item.Shape == nil {
		return errors.Errorf("Item %q has no shape", item.Name)
	}
	path := parentPath.AppendChild(utils.SanitizeName(item.PrimName()))
	if err := e.define(path); err != nil {
		return err
	}
	prim, err := conversions.PrimFromShape(e.stage, path, item.Shape)
	if err != nil {
		return err
	}
	if item.Material != "" {
		return e.binder.Bind(prim, item.Material)
	}
	return nil
}
