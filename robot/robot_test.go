package robot

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mogaika/usd_exporter/conversions"
	"github.com/mogaika/usd_exporter/geom"
	"github.com/mogaika/usd_exporter/material"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boxMesh(size float64) *geom.Mesh {
	return geom.MeshFromBox(geom.NewCube(size))
}

// sampleArm is a two joint arm: a pan joint about Z at (0, 0, 1) and an
// elbow about Y at (1, 0, 1), ending in a fixed tool frame.
func sampleArm(t *testing.T) *Model {
	m := NewModel("arm")
	base, err := m.AddLink("base_link")
	require.NoError(t, err)
	base.AddVisual(&Visual{Origin: geom.Identity(), Meshes: []*geom.Mesh{boxMesh(0.2)}})

	shoulder, err := m.AddLink("shoulder_link")
	require.NoError(t, err)
	shoulder.AddVisual(&Visual{Origin: geom.Translation(mgl64.Vec3{0.5, 0, 0}), Meshes: []*geom.Mesh{boxMesh(0.1)}})

	upper, err := m.AddLink("upper_arm_link")
	require.NoError(t, err)
	upper.AddVisual(&Visual{
		Origin: geom.Translation(mgl64.Vec3{0, 0, 0.5}),
		Meshes: []*geom.Mesh{boxMesh(0.1), boxMesh(0.05)},
	})

	tool, err := m.AddLink("tool0")
	require.NoError(t, err)

	_, err = m.AddJoint("shoulder_pan_joint", JointRevolute, base, shoulder, geom.Translation(mgl64.Vec3{0, 0, 1}), mgl64.Vec3{0, 0, 1})
	require.NoError(t, err)
	_, err = m.AddJoint("elbow_joint", JointRevolute, shoulder, upper, geom.Translation(mgl64.Vec3{1, 0, 0}), mgl64.Vec3{0, 1, 0})
	require.NoError(t, err)
	_, err = m.AddJoint("tool_joint", JointFixed, upper, tool, geom.Translation(mgl64.Vec3{0, 0, 1}), mgl64.Vec3{})
	require.NoError(t, err)
	return m
}

func sampleTrajectory(frames int) []Configuration {
	trajectory := make([]Configuration, 0, frames+1)
	for i := 0; i <= frames; i++ {
		t := float64(i) / float64(frames)
		trajectory = append(trajectory, Configuration{
			"shoulder_pan_joint": 2 * t,
			"elbow_joint":        -0.5 * (1 - math.Abs(2*t-1)),
		})
	}
	return trajectory
}

func TestIterLinks(t *testing.T) {
	m := sampleArm(t)
	var names []string
	for _, l := range m.IterLinks() {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"base_link", "shoulder_link", "upper_arm_link", "tool0"}, names)
	assert.Equal(t, Configuration{"shoulder_pan_joint": 0, "elbow_joint": 0}, m.ZeroConfiguration())
}

func TestModelRejectsBadTopology(t *testing.T) {
	m := sampleArm(t)
	_, err := m.AddLink("tool0")
	assert.Error(t, err)

	extra, err := m.AddLink("extra")
	require.NoError(t, err)
	_, err = m.AddJoint("elbow_joint", JointFixed, m.Root(), extra, geom.Identity(), mgl64.Vec3{})
	assert.Error(t, err, "duplicate joint name")
	_, err = m.AddJoint("second_parent", JointFixed, m.Root(), m.Link("tool0"), geom.Identity(), mgl64.Vec3{})
	assert.Error(t, err, "second parent")
	_, err = m.AddJoint("to_root", JointFixed, extra, m.Root(), geom.Identity(), mgl64.Vec3{})
	assert.Error(t, err, "root as child")
	_, err = m.AddJoint("no_axis", JointRevolute, m.Root(), extra, geom.Identity(), mgl64.Vec3{})
	assert.Error(t, err, "no axis")
}

func TestComputeTransformations(t *testing.T) {
	m := sampleArm(t)
	frames := m.LinkTransformations()
	assert.Equal(t, mgl64.Vec3{1, 0, 1}, frames["upper_arm_link"].TranslationVector())
	assert.Equal(t, mgl64.Vec3{1, 0, 2}, frames["tool0"].TranslationVector())

	upper := m.Link("upper_arm_link")
	init := InitTransformation(frames, upper, upper.Visuals[0])
	assert.Equal(t, mgl64.Vec3{1, 0, 1.5}, init.TranslationVector())

	for _, test := range []struct {
		name     string
		cfg      Configuration
		expected mgl64.Vec3
	}{
		{"zero", Configuration{}, mgl64.Vec3{1, 0, 1.5}},
		{"pan", Configuration{"shoulder_pan_joint": math.Pi / 2}, mgl64.Vec3{0, 1, 1.5}},
		{"elbow", Configuration{"elbow_joint": math.Pi / 2}, mgl64.Vec3{1.5, 0, 1}},
		{"both", Configuration{"shoulder_pan_joint": math.Pi / 2, "elbow_joint": math.Pi / 2}, mgl64.Vec3{0, 1.5, 1}},
	} {
		transformations, err := m.ComputeTransformations(test.cfg)
		require.NoError(t, err, test.name)
		world := transformations["elbow_joint"].Mul(init)
		assert.True(t, geom.VecEqualThreshold(world.TranslationVector(), test.expected, 1e-12),
			"%s: got %v, expected %v", test.name, world.TranslationVector(), test.expected)
		assert.True(t, transformations["tool_joint"].EqualThreshold(transformations["elbow_joint"], 1e-12), test.name)
	}

	_, err := m.ComputeTransformations(Configuration{"wrist_joint": 1})
	assert.Error(t, err)
}

func TestPrismaticJoint(t *testing.T) {
	m := NewModel("slider")
	rail, err := m.AddLink("rail")
	require.NoError(t, err)
	carriage, err := m.AddLink("carriage")
	require.NoError(t, err)
	_, err = m.AddJoint("slide", JointPrismatic, rail, carriage, geom.RotationAxisAngle(mgl64.Vec3{0, 0, 1}, math.Pi/2, mgl64.Vec3{}), mgl64.Vec3{1, 0, 0})
	require.NoError(t, err)

	transformations, err := m.ComputeTransformations(Configuration{"slide": 0.3})
	require.NoError(t, err)
	// the joint frame is rotated 90 degrees about Z, so local X is world Y
	assert.True(t, geom.VecEqualThreshold(transformations["slide"].TranslationVector(), mgl64.Vec3{0, 0.3, 0}, 1e-12))
}

func visualPaths(stage *usd.Stage) []usd.Path {
	var paths []usd.Path
	for _, c := range stage.GetPrimAtPath("/arm").Children() {
		paths = append(paths, c.Path())
	}
	return paths
}

func TestStageFromRobotStatic(t *testing.T) {
	m := sampleArm(t)
	stage, err := StageFromRobot(m, "", nil, 0)
	require.NoError(t, err)

	assert.Equal(t, "Z", stage.GetUpAxis())
	assert.False(t, stage.HasAuthoredTimeCodeRange())
	assert.Equal(t, []usd.Path{
		"/arm/base_link_visual_0_0",
		"/arm/shoulder_link_visual_0_0",
		"/arm/upper_arm_link_visual_0_0",
		"/arm/upper_arm_link_visual_0_1",
	}, visualPaths(stage))
	for _, p := range visualPaths(stage) {
		mesh := stage.GetPrimAtPath(p.AppendChild("mesh"))
		require.NotNil(t, mesh, p)
		assert.Equal(t, usd.TypeNameMesh, mesh.TypeName())
	}

	x := usd.NewXformable(stage.GetPrimAtPath("/arm/shoulder_link_visual_0_0"))
	ops, err := x.GetOrderedXformOps()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, usd.XformOpTransform, ops[0].OpType())
	local, err := x.LocalTransformation(0)
	require.NoError(t, err)
	assert.Equal(t, conversions.Matrix4dFromTransformation(geom.Translation(mgl64.Vec3{0.5, 0, 1})), local)
}

func TestStageFromRobotAnimated(t *testing.T) {
	m := sampleArm(t)
	trajectory := sampleTrajectory(48)
	stage, err := StageFromRobot(m, "", trajectory, 24)
	require.NoError(t, err)

	assert.Equal(t, 0.0, stage.GetStartTimeCode())
	assert.Equal(t, 48.0, stage.GetEndTimeCode())
	assert.Equal(t, 24.0, stage.GetTimeCodesPerSecond())

	times := make([]float64, 49)
	for i := range times {
		times[i] = float64(i)
	}
	for _, p := range visualPaths(stage) {
		ops, err := usd.NewXformable(stage.GetPrimAtPath(p)).GetOrderedXformOps()
		require.NoError(t, err)
		require.Len(t, ops, 1, p)
		assert.Equal(t, times, ops[0].Attr().GetTimeSamples(), p)
	}

	x := usd.NewXformable(stage.GetPrimAtPath("/arm/shoulder_link_visual_0_0"))
	first, err := x.LocalTransformation(0)
	require.NoError(t, err)
	assert.True(t, conversions.TransformationFromMatrix4d(first).EqualThreshold(geom.Translation(mgl64.Vec3{0.5, 0, 1}), 1e-12))
	last, err := x.LocalTransformation(48)
	require.NoError(t, err)
	assert.True(t, geom.VecEqualThreshold(mgl64.Vec3{last[12], last[13], last[14]}, mgl64.Vec3{0.5 * math.Cos(2), 0.5 * math.Sin(2), 1}, 1e-12))

	// the base never moves
	base := usd.NewXformable(stage.GetPrimAtPath("/arm/base_link_visual_0_0"))
	mid, err := base.LocalTransformation(24)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Ident4(), mid)
}

func TestApplyAnimationIsIdempotent(t *testing.T) {
	m := sampleArm(t)
	trajectory := sampleTrajectory(10)
	stage, err := StageFromRobot(m, "", trajectory, 30)
	require.NoError(t, err)

	var prims []VisualPrim
	frames := m.LinkTransformations()
	upper := m.Link("upper_arm_link")
	prim := stage.GetPrimAtPath("/arm/upper_arm_link_visual_0_1")
	prims = append(prims, VisualPrim{
		Link:   upper,
		Visual: upper.Visuals[0],
		Init:   InitTransformation(frames, upper, upper.Visuals[0]),
		Xform:  usd.Xform{Xformable: usd.NewXformable(prim)},
	})
	require.NoError(t, ApplyAnimation(m, prims, trajectory[:4]))

	ops, err := usd.NewXformable(prim).GetOrderedXformOps()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Len(t, ops[0].Attr().GetTimeSamples(), 4)
}

func TestStageFromRobotDefaultFPS(t *testing.T) {
	stage, err := StageFromRobot(sampleArm(t), "", sampleTrajectory(2), 0)
	require.NoError(t, err)
	assert.Equal(t, 24.0, stage.GetTimeCodesPerSecond())
	assert.Equal(t, 2.0, stage.GetEndTimeCode())

	_, err = StageFromRobot(sampleArm(t), "", []Configuration{{"unknown": 1}}, 24)
	assert.Error(t, err)
}

func TestStageFromRobotSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot_animated.usda")
	_, err := StageFromRobot(sampleArm(t), path, sampleTrajectory(48), 24)
	require.NoError(t, err)

	stage, err := usd.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 48.0, stage.GetEndTimeCode())
	ops, err := usd.NewXformable(stage.GetPrimAtPath("/arm/shoulder_link_visual_0_0")).GetOrderedXformOps()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Len(t, ops[0].Attr().GetTimeSamples(), 49)
}

func TestVisualMaterials(t *testing.T) {
	m := sampleArm(t)
	grey := material.NewMaterial("grey")
	m.Materials.AddMaterial(grey)
	for _, l := range m.IterLinks() {
		for _, v := range l.Visuals {
			v.Material = "grey"
		}
	}
	stage, err := StageFromRobot(m, "", nil, 0)
	require.NoError(t, err)
	bound, ok := usd.ComputeBoundMaterial(stage.GetPrimAtPath("/arm/upper_arm_link_visual_0_1/mesh"))
	require.True(t, ok)
	assert.Equal(t, usd.Path("/Looks/grey"), bound.Prim().Path())

	m.Link("base_link").Visuals[0].Material = "gold"
	_, err = StageFromRobot(m, "", nil, 0)
	assert.Error(t, err)
}

func TestPrimFromLink(t *testing.T) {
	m := sampleArm(t)
	stage := usd.CreateInMemory()
	x, err := PrimFromLink(stage, "/arm/upper_arm_link", m.Link("upper_arm_link"))
	require.NoError(t, err)
	assert.Equal(t, usd.TypeNameXform, x.Prim().TypeName())
	var names []string
	for _, c := range x.Prim().Children() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"visual_0_0", "visual_0_1"}, names)
}

const sampleDesc = `
name: picker
materials:
  - name: orange
    base_color: [1, 0.5, 0]
links:
  - name: base
    visuals:
      - material: orange
        geometry:
          - box: {xsize: 0.3, ysize: 0.3, zsize: 0.1}
  - name: arm
    visuals:
      - origin: {translation: [0, 0, 0.25]}
        geometry:
          - mesh:
              vertices: [[0, 0, 0], [1, 0, 0], [1, 1, 0]]
              faces: [[0, 1, 2]]
joints:
  - name: pan
    type: revolute
    parent: base
    child: arm
    origin: {translation: [0, 0, 0.1]}
    axis: [0, 0, 1]
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleDesc), "")
	require.NoError(t, err)
	assert.Equal(t, "picker", m.Name)
	require.NotNil(t, m.Materials.Material("orange"))
	assert.Len(t, m.Link("base").Visuals[0].Meshes[0].Faces, 6)
	assert.Equal(t, JointRevolute, m.Joint("pan").Type)

	stage, err := StageFromRobot(m, "", nil, 0)
	require.NoError(t, err)
	local, err := usd.NewXformable(stage.GetPrimAtPath("/picker/arm_visual_0_0")).LocalTransformation(0)
	require.NoError(t, err)
	assert.True(t, geom.VecEqualThreshold(mgl64.Vec3{local[12], local[13], local[14]}, mgl64.Vec3{0, 0, 0.35}, 1e-12))
}

func TestParseRejectsBadDescriptions(t *testing.T) {
	for _, test := range []struct {
		name string
		desc string
	}{
		{"no name", "links: [{name: a}]"},
		{"no links", "name: r"},
		{"sphere visual", "name: r\nlinks: [{name: a, visuals: [{geometry: [{sphere: {radius: 1}}]}]}]"},
		{"bad joint type", "name: r\nlinks: [{name: a}, {name: b}]\njoints: [{name: j, type: ball, parent: a, child: b}]"},
		{"unknown link", "name: r\nlinks: [{name: a}]\njoints: [{name: j, type: fixed, parent: a, child: c}]"},
		{"disconnected", "name: r\nlinks: [{name: a}, {name: b}]"},
		{"short axis", "name: r\nlinks: [{name: a}, {name: b}]\njoints: [{name: j, type: revolute, parent: a, child: b, axis: [0, 1]}]"},
	} {
		_, err := Parse([]byte(test.desc), "")
		assert.Error(t, err, test.name)
	}
}

func TestParseTrajectory(t *testing.T) {
	traj, err := ParseTrajectory([]byte("fps: 30\nconfigurations:\n  - {pan: 0}\n  - {pan: 0.5}\n"))
	require.NoError(t, err)
	assert.Equal(t, 30.0, traj.FPS)
	assert.Equal(t, []Configuration{{"pan": 0}, {"pan": 0.5}}, traj.Configurations)

	_, err = ParseTrajectory([]byte("fps: 30\n"))
	assert.Error(t, err)
}
