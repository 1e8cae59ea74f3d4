package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneYAML = `
name: yard
materials:
  - name: red
    base_color: [1, 0, 0]
objects:
  - name: crate
    transformation: {translation: [1, 2, 3]}
    item: {material: red, box: {xsize: 1, ysize: 1, zsize: 1}}
`

const robotYAML = `
name: arm
links:
  - name: base
    visuals:
      - geometry: [{box: {xsize: 1, ysize: 1, zsize: 0.2}}]
  - name: upper
    visuals:
      - geometry: [{box: {xsize: 0.2, ysize: 0.2, zsize: 1}}]
joints:
  - {name: pan, type: revolute, parent: base, child: upper, axis: [0, 0, 1]}
`

const trajectoryYAML = `
fps: 30
configurations:
  - {pan: 0}
  - {pan: 0.5}
  - {pan: 1}
`

func multipartRequest(t *testing.T, url string, files map[string]string) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".yaml")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest("POST", url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewRouter().ServeHTTP(rec, req)
	return rec
}

func TestConvertScene(t *testing.T) {
	rec := serve(httptest.NewRequest("POST", "/convert/scene", strings.NewReader(sceneYAML)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "yard.usda")

	stage, err := usd.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	require.NotNil(t, stage.GetPrimAtPath("/yard/crate/Box"))
	bound, ok := usd.ComputeBoundMaterial(stage.GetPrimAtPath("/yard/crate/Box"))
	require.True(t, ok)
	assert.Equal(t, usd.Path("/Looks/red"), bound.Prim().Path())
}

func TestConvertSceneGLB(t *testing.T) {
	rec := serve(multipartRequest(t, "/convert/scene?format=glb", map[string]string{"scene": sceneYAML}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "model/gltf-binary", rec.Header().Get("Content-Type"))
	assert.Equal(t, "glTF", rec.Body.String()[:4])
}

func TestConvertRobot(t *testing.T) {
	rec := serve(multipartRequest(t, "/convert/robot", map[string]string{
		"robot":      robotYAML,
		"trajectory": trajectoryYAML,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stage, err := usd.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2.0, stage.GetEndTimeCode())
	assert.Equal(t, 30.0, stage.GetTimeCodesPerSecond())
	ops, err := usd.NewXformable(stage.GetPrimAtPath("/arm/upper_visual_0_0")).GetOrderedXformOps()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Len(t, ops[0].Attr().GetTimeSamples(), 3)

	rec = serve(multipartRequest(t, "/convert/robot?fps=12", map[string]string{
		"robot":      robotYAML,
		"trajectory": trajectoryYAML,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stage, err = usd.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 12.0, stage.GetTimeCodesPerSecond())
}

func TestConvertRobotStatic(t *testing.T) {
	rec := serve(httptest.NewRequest("POST", "/convert/robot", strings.NewReader(robotYAML)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stage, err := usd.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	assert.False(t, stage.HasAuthoredTimeCodeRange())
}

func TestInspect(t *testing.T) {
	rec := serve(httptest.NewRequest("POST", "/convert/scene", strings.NewReader(sceneYAML)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(httptest.NewRequest("POST", "/inspect", rec.Body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum usd.StageSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, usd.Path("/yard"), sum.DefaultPrim)
	var paths []usd.Path
	for _, p := range sum.Prims {
		paths = append(paths, p.Path)
	}
	assert.Contains(t, paths, usd.Path("/yard/crate/Box"))
}

func TestDump(t *testing.T) {
	rec := serve(httptest.NewRequest("POST", "/dump/scene", strings.NewReader(sceneYAML)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "crate")

	rec = serve(httptest.NewRequest("POST", "/dump/robot", strings.NewReader(robotYAML)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "pan")
}

func TestConfig(t *testing.T) {
	rec := serve(httptest.NewRequest("GET", "/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"upAxis":"Z"`)
}

func TestErrors(t *testing.T) {
	for _, test := range []struct {
		name string
		req  *http.Request
	}{
		{"bad format", httptest.NewRequest("POST", "/convert/scene?format=fbx", strings.NewReader(sceneYAML))},
		{"empty body", httptest.NewRequest("POST", "/convert/scene", strings.NewReader(""))},
		{"bad yaml", httptest.NewRequest("POST", "/convert/robot", strings.NewReader("name: [1"))},
		{"bad fps", httptest.NewRequest("POST", "/convert/robot?fps=-1", strings.NewReader(robotYAML))},
		{"bad stage", httptest.NewRequest("POST", "/inspect", strings.NewReader("#usda 1.0\ndef Xform \"a\" {"))},
	} {
		rec := serve(test.req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, test.name)
		assert.Contains(t, rec.Body.String(), `"error"`, test.name)
	}

	rec := serve(httptest.NewRequest("GET", "/convert/scene", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoveryHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/config", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusWebsocket(t *testing.T) {
	srv := httptest.NewServer(NewRouter())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/status", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	// the first message confirms the subscription
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/convert/scene", "application/x-yaml", strings.NewReader(sceneYAML))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for {
		var msg struct {
			Message string `json:"message"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Message == `Scene "yard" converted to usda` {
			break
		}
	}
}
