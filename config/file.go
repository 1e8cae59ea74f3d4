package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mogaika/usd_exporter/usd"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// File is the config file layout, YAML or TOML. Absent keys keep their
// current values.
type File struct {
	UpAxis        *string  `yaml:"up_axis" toml:"up_axis"`
	FPS           *float64 `yaml:"fps" toml:"fps"`
	MaterialsPath *string  `yaml:"materials_path" toml:"materials_path"`
	RotationOrder *string  `yaml:"rotation_order" toml:"rotation_order"`
	OutputFormat  *string  `yaml:"output_format" toml:"output_format"`
}

func (f *File) Apply() error {
	if f.UpAxis != nil {
		if err := SetUpAxis(*f.UpAxis); err != nil {
			return err
		}
	}
	if f.FPS != nil {
		if err := SetDefaultFPS(*f.FPS); err != nil {
			return err
		}
	}
	if f.MaterialsPath != nil {
		if err := SetMaterialsPath(*f.MaterialsPath); err != nil {
			return err
		}
	}
	if f.RotationOrder != nil {
		order, err := usd.ParseRotationOrder(*f.RotationOrder)
		if err != nil {
			return err
		}
		SetRotationOrder(order)
	}
	if f.OutputFormat != nil {
		if err := SetOutputFormat(*f.OutputFormat); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile applies a config file. Files ending in .toml are read as TOML,
// anything else as YAML.
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "Cannot read config %q", path)
	}
	var f File
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return errors.Wrapf(err, "Cannot parse config %q", path)
	}
	if err := f.Apply(); err != nil {
		return errors.Wrapf(err, "Invalid config %q", path)
	}
	return nil
}
