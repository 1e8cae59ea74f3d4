package web

import (
	"bytes"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/mogaika/usd_exporter/config"
	"github.com/mogaika/usd_exporter/robot"
	"github.com/mogaika/usd_exporter/scene"
	"github.com/mogaika/usd_exporter/status"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/mogaika/usd_exporter/utils"
	"github.com/mogaika/usd_exporter/utils/gltfutils"
	"github.com/mogaika/usd_exporter/webutils"
	"github.com/pkg/errors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func fail(w http.ResponseWriter, err error) {
	status.Error("%v", err)
	webutils.WriteError(w, err)
}

func outputFormat(r *http.Request) (string, error) {
	format := r.URL.Query().Get("format")
	switch format {
	case "":
		return config.GetOutputFormat(), nil
	case config.FormatUSDA, config.FormatGLB:
		return format, nil
	}
	return "", errors.Errorf("Unknown output format %q", format)
}

func writeStage(w http.ResponseWriter, stage *usd.Stage, format string, name string) bool {
	switch format {
	case config.FormatGLB:
		doc, err := gltfutils.FromStage(stage)
		if err != nil {
			fail(w, err)
			return false
		}
		var buf bytes.Buffer
		if err := gltfutils.ExportBinary(&buf, doc); err != nil {
			fail(w, err)
			return false
		}
		webutils.WriteAttachment(w, buf.Bytes(), name+".glb", "model/gltf-binary")
	default:
		text, err := stage.ExportToString()
		if err != nil {
			fail(w, err)
			return false
		}
		webutils.WriteAttachment(w, []byte(text), name+".usda", "text/plain; charset=utf-8")
	}
	return true
}

func HandlerConvertScene(w http.ResponseWriter, r *http.Request) {
	format, err := outputFormat(r)
	if err != nil {
		fail(w, err)
		return
	}
	data, err := webutils.ReadFormFile(r, "scene")
	if err != nil {
		fail(w, err)
		return
	}
	// uploads have no directory, MDL module paths are kept as written
	s, err := scene.Parse(data, "")
	if err != nil {
		fail(w, err)
		return
	}
	stage, err := scene.StageFromScene(s, "")
	if err != nil {
		fail(w, errors.Wrapf(err, "Can't export scene %q", s.Name))
		return
	}
	if writeStage(w, stage, format, utils.SanitizeName(s.Name)) {
		status.Info("Scene %q converted to %s", s.Name, format)
	}
}

// robotRequest reads the robot description and an optional trajectory. The
// fps query parameter wins over the trajectory file rate.
func robotRequest(r *http.Request) (*robot.Model, *robot.TrajectoryDesc, error) {
	data, err := webutils.ReadFormFile(r, "robot")
	if err != nil {
		return nil, nil, err
	}
	model, err := robot.Parse(data, "")
	if err != nil {
		return nil, nil, err
	}

	traj := &robot.TrajectoryDesc{}
	trajData, err := webutils.ReadOptionalFormFile(r, "trajectory")
	if err != nil {
		return nil, nil, err
	}
	if trajData != nil {
		if traj, err = robot.ParseTrajectory(trajData); err != nil {
			return nil, nil, err
		}
	}
	if v := r.URL.Query().Get("fps"); v != "" {
		if traj.FPS, err = strconv.ParseFloat(v, 64); err != nil || traj.FPS <= 0 {
			return nil, nil, errors.Errorf("Bad fps %q", v)
		}
	}
	return model, traj, nil
}

func HandlerConvertRobot(w http.ResponseWriter, r *http.Request) {
	format, err := outputFormat(r)
	if err != nil {
		fail(w, err)
		return
	}
	model, traj, err := robotRequest(r)
	if err != nil {
		fail(w, err)
		return
	}
	stage, err := robot.StageFromRobot(model, "", traj.Configurations, traj.FPS)
	if err != nil {
		fail(w, errors.Wrapf(err, "Can't export robot %q", model.Name))
		return
	}
	if writeStage(w, stage, format, utils.SanitizeName(model.Name)) {
		status.Info("Robot %q converted to %s, %d frames", model.Name, format, len(traj.Configurations))
	}
}

func HandlerInspect(w http.ResponseWriter, r *http.Request) {
	data, err := webutils.ReadFormFile(r, "stage")
	if err != nil {
		fail(w, err)
		return
	}
	stage, err := usd.Parse(data)
	if err != nil {
		fail(w, err)
		return
	}
	webutils.WriteJson(w, usd.Summarize(stage))
}

func HandlerDumpScene(w http.ResponseWriter, r *http.Request) {
	data, err := webutils.ReadFormFile(r, "scene")
	if err != nil {
		fail(w, err)
		return
	}
	s, err := scene.Parse(data, "")
	if err != nil {
		fail(w, err)
		return
	}
	webutils.WriteText(w, utils.SDump(s))
}

func HandlerDumpRobot(w http.ResponseWriter, r *http.Request) {
	model, traj, err := robotRequest(r)
	if err != nil {
		fail(w, err)
		return
	}
	webutils.WriteText(w, utils.SDump(model, traj))
}

func HandlerConfig(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, config.Current())
}

// HandlerStatus upgrades to a websocket that receives conversion statuses.
func HandlerStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] Status upgrade failed: %v", err)
		return
	}
	status.NewClient(conn)
}
