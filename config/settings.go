package config

import (
	"github.com/mogaika/usd_exporter/usd"
	"github.com/pkg/errors"
)

const (
	FormatUSDA = "usda"
	FormatGLB  = "glb"
)

var (
	upAxis        = "Z"
	defaultFPS    = 24.0
	materialsPath = usd.Path("/Looks")
	rotationOrder = usd.RotationOrderXYZ
	outputFormat  = FormatUSDA
)

func GetUpAxis() string {
	return upAxis
}

func SetUpAxis(axis string) error {
	if axis != "Y" && axis != "Z" {
		return errors.Errorf("Up axis must be Y or Z, got %q", axis)
	}
	upAxis = axis
	return nil
}

// GetDefaultFPS is the animation rate used when the caller gives none.
func GetDefaultFPS() float64 {
	return defaultFPS
}

func SetDefaultFPS(fps float64) error {
	if fps <= 0 {
		return errors.Errorf("Frames per second must be positive, got %v", fps)
	}
	defaultFPS = fps
	return nil
}

// GetMaterialsPath is the scope all materials are nested under.
func GetMaterialsPath() usd.Path {
	return materialsPath
}

func SetMaterialsPath(path string) error {
	p, err := usd.NewPath(path)
	if err != nil {
		return errors.Wrapf(err, "Bad materials path")
	}
	if p.IsAbsoluteRoot() || p.IsPropertyPath() {
		return errors.Errorf("Materials path %q must be a prim path", path)
	}
	materialsPath = p
	return nil
}

// GetRotationOrder is used for prims that have no rotation order yet.
func GetRotationOrder() usd.RotationOrder {
	return rotationOrder
}

func SetRotationOrder(order usd.RotationOrder) {
	rotationOrder = order
}

func GetOutputFormat() string {
	return outputFormat
}

func SetOutputFormat(format string) error {
	switch format {
	case FormatUSDA, FormatGLB:
		outputFormat = format
		return nil
	}
	return errors.Errorf("Unknown output format %q", format)
}

// Settings is a snapshot of the current values.
type Settings struct {
	UpAxis        string   `json:"upAxis"`
	FPS           float64  `json:"fps"`
	MaterialsPath usd.Path `json:"materialsPath"`
	RotationOrder string   `json:"rotationOrder"`
	OutputFormat  string   `json:"outputFormat"`
}

func Current() Settings {
	return Settings{
		UpAxis:        upAxis,
		FPS:           defaultFPS,
		MaterialsPath: materialsPath,
		RotationOrder: rotationOrder.String(),
		OutputFormat:  outputFormat,
	}
}
