package scene

import (
	"os"
	"path/filepath"

	"github.com/mogaika/usd_exporter/geom"
	"github.com/mogaika/usd_exporter/material"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type ItemDesc struct {
	Name           string `yaml:"name,omitempty"`
	Material       string `yaml:"material,omitempty"`
	geom.ShapeDesc `yaml:",inline"`
}

type NodeDesc struct {
	Name           string                   `yaml:"name"`
	Transformation *geom.TransformationDesc `yaml:"transformation,omitempty"`
	Item           *ItemDesc                `yaml:"item,omitempty"`
	Children       []NodeDesc               `yaml:"children,omitempty"`
}

// Desc is the YAML form of a scene. GLTFMaterials names a .gltf/.glb file
// whose materials are added before the inline ones.
type Desc struct {
	Name          string                  `yaml:"name"`
	GLTFMaterials string                  `yaml:"gltf_materials,omitempty"`
	Materials     []material.MaterialDesc `yaml:"materials,omitempty"`
	Objects       []NodeDesc              `yaml:"objects"`
}

func Parse(data []byte, dir string) (*Scene, error) {
	var d Desc
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrapf(err, "Can't parse scene description")
	}
	return d.Scene(dir)
}

func LoadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read scene %q", path)
	}
	s, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "Scene %q", path)
	}
	return s, nil
}

// Scene builds the scene tree. Relative file references resolve against dir.
func (d *Desc) Scene(dir string) (*Scene, error) {
	if d.Name == "" {
		return nil, errors.Errorf("Scene without name")
	}
	s := NewScene(d.Name)
	if d.GLTFMaterials != "" {
		path := d.GLTFMaterials
		if !filepath.IsAbs(path) && dir != "" {
			path = filepath.Join(dir, path)
		}
		lib, err := material.LoadGLTF(path)
		if err != nil {
			return nil, err
		}
		s.Materials = lib
	}
	mdl, err := s.Materials.AddDescs(d.Materials)
	if err != nil {
		return nil, err
	}
	for name, module := range mdl {
		if !filepath.IsAbs(module) && dir != "" {
			mdl[name] = filepath.Join(dir, module)
		}
	}
	s.MDL = mdl

	for i := range d.Objects {
		if err := d.Objects[i].add(s.Root); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (d *NodeDesc) add(parent *Node) error {
	if d.Name == "" {
		return errors.Errorf("Scene object without name under %q", parent.Name)
	}
	n := parent.AddGroup(d.Name)
	if d.Transformation != nil {
		t, err := d.Transformation.Transformation()
		if err != nil {
			return errors.Wrapf(err, "Object %q", d.Name)
		}
		n.Transformation = &t
	}
	if d.Item != nil {
		shape, err := d.Item.Shape()
		if err != nil {
			return errors.Wrapf(err, "Object %q", d.Name)
		}
		n.Item = &Item{Name: d.Item.Name, Shape: shape, Material: d.Item.Material}
	}
	for i := range d.Children {
		if err := d.Children[i].add(n); err != nil {
			return err
		}
	}
	return nil
}
