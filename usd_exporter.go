package main

import (
	"flag"
	"log"
	"path/filepath"
	"strings"

	"github.com/mogaika/usd_exporter/config"
	"github.com/mogaika/usd_exporter/robot"
	"github.com/mogaika/usd_exporter/scene"
	"github.com/mogaika/usd_exporter/usd"
	"github.com/mogaika/usd_exporter/utils"
	"github.com/mogaika/usd_exporter/utils/gltfutils"
	"github.com/mogaika/usd_exporter/web"
)

func outputPath(out, input, format string) string {
	if out != "" {
		return out
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return base + "." + format
}

// export writes a .usda stage directly through build, or builds it in
// memory and converts it for .glb.
func export(out, format string, build func(filePath string) (*usd.Stage, error)) error {
	if format == config.FormatGLB {
		stage, err := build("")
		if err != nil {
			return err
		}
		return gltfutils.SaveBinary(stage, out)
	}
	_, err := build(out)
	return err
}

func main() {
	var addr, scenePath, robotPath, trajPath, out, format, configPath, upAxis string
	var fps float64
	var serve, dump bool
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.BoolVar(&serve, "serve", false, "Start conversion http server")
	flag.StringVar(&scenePath, "scene", "", "Scene description (.yaml) to convert")
	flag.StringVar(&robotPath, "robot", "", "Robot description (.yaml) to convert")
	flag.StringVar(&trajPath, "trajectory", "", "Robot trajectory (.yaml), animates the robot")
	flag.Float64Var(&fps, "fps", 0, "Trajectory frames per second override")
	flag.StringVar(&out, "o", "", "Output file, defaults to input name with format extension")
	flag.StringVar(&format, "format", "", "Output format: usda or glb")
	flag.StringVar(&configPath, "config", "", "Config file (.yaml or .toml)")
	flag.StringVar(&upAxis, "upaxis", "", "Stage up axis override: Y or Z")
	flag.BoolVar(&dump, "dump", false, "Dump parsed descriptions to stdout")
	flag.Parse()

	if configPath != "" {
		if err := config.LoadFile(configPath); err != nil {
			log.Fatal(err)
		}
	}
	if upAxis != "" {
		if err := config.SetUpAxis(upAxis); err != nil {
			log.Fatal(err)
		}
	}
	if format == "" && strings.EqualFold(filepath.Ext(out), ".glb") {
		format = config.FormatGLB
	}
	if format != "" {
		if err := config.SetOutputFormat(format); err != nil {
			log.Fatal(err)
		}
	}
	format = config.GetOutputFormat()

	switch {
	case serve:
		if err := web.StartServer(addr); err != nil {
			log.Fatal(err)
		}
	case scenePath != "":
		s, err := scene.LoadFile(scenePath)
		if err != nil {
			log.Fatal(err)
		}
		if dump {
			utils.Dump(s)
		}
		out = outputPath(out, scenePath, format)
		if err := export(out, format, func(filePath string) (*usd.Stage, error) {
			return scene.StageFromScene(s, filePath)
		}); err != nil {
			log.Fatal(err)
		}
		log.Printf("Scene %q written to %q", s.Name, out)
	case robotPath != "":
		model, err := robot.LoadFile(robotPath)
		if err != nil {
			log.Fatal(err)
		}
		traj := &robot.TrajectoryDesc{}
		if trajPath != "" {
			if traj, err = robot.LoadTrajectory(trajPath); err != nil {
				log.Fatal(err)
			}
		}
		if fps > 0 {
			traj.FPS = fps
		}
		if dump {
			utils.Dump(model, traj)
		}
		out = outputPath(out, robotPath, format)
		if err := export(out, format, func(filePath string) (*usd.Stage, error) {
			return robot.StageFromRobot(model, filePath, traj.Configurations, traj.FPS)
		}); err != nil {
			log.Fatal(err)
		}
		log.Printf("Robot %q written to %q", model.Name, out)
	default:
		flag.PrintDefaults()
	}
}
