package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// CalibrationSource resolves the calibration of a map.
type CalibrationSource interface {
	Calibration(mapName string) Calibration
}

// StaticCalibrations is an in-memory CalibrationSource. Unknown maps resolve
// to DefaultCalibration.
type StaticCalibrations map[string]Calibration

func (s StaticCalibrations) Calibration(mapName string) Calibration {
	if cal, ok := s[mapName]; ok {
		return cal.withDefaults()
	}
	return DefaultCalibration
}

// DirCalibrations reads map.json sidecars laid out as <root>/<map>/<version>/map.json.
// The map directory must contain exactly one subdirectory. Files are read on every
// call so edits between runs are picked up without a restart.
type DirCalibrations struct {
	Root   string
	Logger *slog.Logger
}

func (d DirCalibrations) Calibration(mapName string) Calibration {
	cal, err := d.load(mapName)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && d.Logger != nil {
			d.Logger.Warn("Failed to read map calibration, using default",
				"map", mapName, "error", err)
		}
		return DefaultCalibration
	}
	return cal
}

func (d DirCalibrations) load(mapName string) (Calibration, error) {
	if d.Root == "" || mapName == "" {
		return Calibration{}, fs.ErrNotExist
	}

	mapDir := filepath.Join(d.Root, mapName)
	entries, err := os.ReadDir(mapDir)
	if err != nil {
		return Calibration{}, err
	}

	var subdirs []string
	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, e.Name())
		}
	}
	if len(subdirs) != 1 {
		return Calibration{}, fs.ErrNotExist
	}

	data, err := os.ReadFile(filepath.Join(mapDir, subdirs[0], "map.json"))
	if err != nil {
		return Calibration{}, err
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return Calibration{}, fmt.Errorf("parsing map.json: %w", err)
	}
	return cal.withDefaults(), nil
}

func (c Calibration) withDefaults() Calibration {
	if c.WorldSize <= 0 {
		c.WorldSize = DefaultCalibration.WorldSize
	}
	if c.Multiplier <= 0 {
		c.Multiplier = DefaultCalibration.Multiplier
	}
	return c
}
