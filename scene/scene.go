package scene

import (
	"github.com/mogaika/usd_exporter/geom"
	"github.com/mogaika/usd_exporter/material"
)

// Item is the geometry carried by a scene node.
type Item struct {
	Name     string
	Shape    geom.Shape
	Material string
}

// PrimName is the item name, or the shape kind when the item is unnamed.
func (i *Item) PrimName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Shape.Kind().String()
}

type Node struct {
	Name           string
	Transformation *geom.Transformation
	Item           *Item
	Children       []*Node
}

func (n *Node) Add(name string, item *Item, t *geom.Transformation) *Node {
	child := &Node{Name: name, Item: item, Transformation: t}
	n.Children = append(n.Children, child)
	return child
}

func (n *Node) AddGroup(name string) *Node {
	return n.Add(name, nil, nil)
}

// Scene is a tree of named nodes under an unnamed root. Materials and MDL
// resolve the material names used by items.
type Scene struct {
	Name      string
	Root      *Node
	Materials *material.Library
	MDL       map[string]string
}

func NewScene(name string) *Scene {
	return &Scene{
		Name:      name,
		Root:      &Node{},
		Materials: &material.Library{},
	}
}

func (s *Scene) Add(name string, item *Item, t *geom.Transformation) *Node {
	return s.Root.Add(name, item, t)
}

func (s *Scene) AddGroup(name string) *Node {
	return s.Root.AddGroup(name)
}

// Walk visits nodes depth first, parents before children. The root is not
// visited.
func (s *Scene) Walk(f func(n *Node, depth int) error) error {
	var walk func(n *Node, depth int) error
	walk = func(n *Node, depth int) error {
		for _, c := range n.Children {
			if err := f(c, depth); err != nil {
				return err
			}
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(s.Root, 0)
}
