package gltfutils

import (
	"io"
	"log"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mogaika/usd_exporter/config"
	"github.com/mogaika/usd_exporter/conversions"
	"github.com/mogaika/usd_exporter/geom"
	"github.com/mogaika/usd_exporter/material"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const Generator = "usd_exporter"

func NewDocument() *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = Generator
	return doc
}

type stageExporter struct {
	stage *usd.Stage
	doc   *gltf.Document
	time  float64

	lib *material.Library
	// material prim path -> index in lib.Materials, -1 when not exportable
	materials map[usd.Path]int
	// primitives waiting for the material offset, by lib index
	pending map[*gltf.Primitive]int
}

// FromStage converts the stage at its start time code. Every prim outside the
// materials scope becomes a node carrying its local transform; Mesh and Cube
// prims also get a triangulated mesh. Z-up stages are wrapped into a root
// node that turns them Y-up.
func FromStage(stage *usd.Stage) (*gltf.Document, error) {
	e := &stageExporter{
		stage:     stage,
		doc:       NewDocument(),
		time:      stage.GetStartTimeCode(),
		lib:       &material.Library{},
		materials: make(map[usd.Path]int),
		pending:   make(map[*gltf.Primitive]int),
	}

	var roots []uint32
	for _, p := range stage.PseudoRoot().Children() {
		if e.skip(p) {
			continue
		}
		index, err := e.node(p)
		if err != nil {
			return nil, err
		}
		roots = append(roots, index)
	}

	if stage.GetUpAxis() == "Z" {
		zUp := conversions.Matrix4dFromTransformation(
			geom.RotationAxisAngle(mgl64.Vec3{1, 0, 0}, -mgl64.DegToRad(90), mgl64.Vec3{}))
		e.doc.Nodes = append(e.doc.Nodes, &gltf.Node{
			Name:     "z_up",
			Matrix:   matrix32(zUp),
			Children: roots,
		})
		roots = []uint32{uint32(len(e.doc.Nodes) - 1)}
	}
	e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, roots...)

	if len(e.lib.Materials) != 0 {
		offset := material.ExportGLTF(e.doc, e.lib)
		for primitive, index := range e.pending {
			primitive.Material = gltf.Index(offset + uint32(index))
		}
	}
	log.Printf("[gltf] Stage converted: %d nodes, %d meshes, %d materials",
		len(e.doc.Nodes), len(e.doc.Meshes), len(e.doc.Materials))
	return e.doc, nil
}

func (e *stageExporter) skip(p *usd.Prim) bool {
	switch p.TypeName() {
	case usd.TypeNameMaterial, usd.TypeNameShader:
		return true
	}
	return p.Path() == config.GetMaterialsPath()
}

func matrix32(m mgl64.Mat4) [16]float32 {
	var r [16]float32
	for i, v := range m {
		r[i] = float32(v)
	}
	return r
}

func (e *stageExporter) node(p *usd.Prim) (uint32, error) {
	local, err := usd.NewXformable(p).LocalTransformation(e.time)
	if err != nil {
		return 0, err
	}
	node := &gltf.Node{Name: p.Name(), Matrix: matrix32(local)}
	index := uint32(len(e.doc.Nodes))
	e.doc.Nodes = append(e.doc.Nodes, node)

	var mesh *geom.Mesh
	switch p.TypeName() {
	case usd.TypeNameMesh:
		if mesh, err = conversions.MeshFromPrim(p); err != nil {
			return 0, errors.Wrapf(err, "Can't convert %v", p.Path())
		}
	case usd.TypeNameCube:
		// the box frame and sizes are already in the node matrix
		mesh = geom.MeshFromBox(geom.NewCube(usd.Cube{Xformable: usd.NewXformable(p)}.Size()))
	}
	if mesh != nil {
		meshIndex, err := e.mesh(p, mesh)
		if err != nil {
			return 0, err
		}
		node.Mesh = gltf.Index(meshIndex)
	}

	for _, c := range p.Children() {
		if e.skip(c) {
			continue
		}
		child, err := e.node(c)
		if err != nil {
			return 0, err
		}
		node.Children = append(node.Children, child)
	}
	return index, nil
}

func (e *stageExporter) mesh(p *usd.Prim, mesh *geom.Mesh) (uint32, error) {
	vertices, faces := mesh.VerticesAndFaces()
	positions := make([][3]float32, len(vertices))
	for i, v := range vertices {
		positions[i] = [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
	}
	indices := triangulate(faces)
	if len(indices) == 0 {
		return 0, errors.Errorf("Mesh %v has no triangles", p.Path())
	}

	primitive := &gltf.Primitive{
		Indices: gltf.Index(modeler.WriteIndices(e.doc, indices)),
		Attributes: map[string]uint32{
			"POSITION": modeler.WritePosition(e.doc, positions),
		},
	}
	if m, ok := usd.ComputeBoundMaterial(p); ok {
		if index := e.material(m.Prim().Path()); index >= 0 {
			e.pending[primitive] = index
		}
	}

	e.doc.Meshes = append(e.doc.Meshes, &gltf.Mesh{
		Name:       p.Name(),
		Primitives: []*gltf.Primitive{primitive},
	})
	return uint32(len(e.doc.Meshes) - 1), nil
}

// material reads a bound preview surface back once per material prim.
func (e *stageExporter) material(path usd.Path) int {
	if index, ok := e.materials[path]; ok {
		return index
	}
	index := -1
	um, err := material.FromPath(e.stage, path)
	if err == nil {
		var m *material.Material
		if m, err = um.ToMaterial(e.lib); err == nil {
			e.lib.AddMaterial(m)
			index = len(e.lib.Materials) - 1
		}
	}
	if err != nil {
		log.Printf("[gltf] Material %v skipped: %v", path, err)
	}
	e.materials[path] = index
	return index
}

// triangulate fans every face around its first vertex.
func triangulate(faces [][]int) []uint32 {
	var indices []uint32
	for _, f := range faces {
		for i := 1; i+1 < len(f); i++ {
			indices = append(indices, uint32(f[0]), uint32(f[i]), uint32(f[i+1]))
		}
	}
	return indices
}

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// SaveBinary writes the stage as a .glb file.
func SaveBinary(stage *usd.Stage, path string) error {
	doc, err := FromStage(stage)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Can't create %q", path)
	}
	defer f.Close()
	if err := ExportBinary(f, doc); err != nil {
		return errors.Wrapf(err, "Can't encode %q", path)
	}
	return nil
}
