// Copyright 2018 Vasily Turchenko <turchenkov@gmail.com>. All rights reserved.
// Use of this source code is free

// Package gerber2solid imports a Gerber RS-274X layer as a copper outline and solid.
package gerber2solid

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/viper"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/configurator"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/diag"
	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberdatamodel"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberlexer"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberstates"
)

var ErrBadConfig = errors.New("bad import configuration")

type Config struct {
	Thickness           float64 // mm, copper and layers of unknown kind
	SoldermaskThickness float64 // mm
	SilkscreenThickness float64 // mm
	ArcTolerance       float64 // relative chord deviation
	MinCircleSegments  int
	ArcRadiusTolerance float64 // mm
	StrictApertures    bool
	OutputUnits        Units
	MaxCommands        int   // 0 is unlimited
	MaxFileSize        int64 // bytes, 0 is unlimited
}

func DefaultConfig() Config {
	return Config{
		Thickness:           0.035,
		SoldermaskThickness: 0.025,
		SilkscreenThickness: 0.020,
		ArcTolerance:        0.01,
		MinCircleSegments:   8,
		ArcRadiusTolerance:  0.01,
		OutputUnits:         UnitsMM,
	}
}

// ConfigFromViper reads the import settings, see configurator for the keys
func ConfigFromViper(v *viper.Viper) (Config, error) {
	retVal := Config{
		Thickness:           v.GetFloat64(configurator.CfgGeometryThickness),
		SoldermaskThickness: v.GetFloat64(configurator.CfgGeometrySoldermaskThickness),
		SilkscreenThickness: v.GetFloat64(configurator.CfgGeometrySilkscreenThickness),
		ArcTolerance:        v.GetFloat64(configurator.CfgGeometryArcTolerance),
		MinCircleSegments:   v.GetInt(configurator.CfgGeometryMinCircleSegments),
		ArcRadiusTolerance:  v.GetFloat64(configurator.CfgParserArcRadiusTolerance),
		StrictApertures:     v.GetBool(configurator.CfgParserStrictApertures),
		MaxCommands:         v.GetInt(configurator.CfgParserMaxCommands),
		MaxFileSize:         v.GetInt64(configurator.CfgImportMaxFileSize),
	}
	units, ok := ParseUnits(v.GetString(configurator.CfgOutputUnits))
	if !ok {
		return retVal, fmt.Errorf("%w: units %q", ErrBadConfig, v.GetString(configurator.CfgOutputUnits))
	}
	retVal.OutputUnits = units
	return retVal, retVal.Validate()
}

func (cfg Config) Validate() error {
	switch {
	case cfg.Thickness <= 0:
		return fmt.Errorf("%w: thickness %v", ErrBadConfig, cfg.Thickness)
	case cfg.SoldermaskThickness <= 0 || cfg.SilkscreenThickness <= 0:
		return fmt.Errorf("%w: soldermask thickness %v, silkscreen thickness %v",
			ErrBadConfig, cfg.SoldermaskThickness, cfg.SilkscreenThickness)
	case cfg.ArcRadiusTolerance < 0:
		return fmt.Errorf("%w: arc radius tolerance %v", ErrBadConfig, cfg.ArcRadiusTolerance)
	case cfg.MaxCommands < 0 || cfg.MaxFileSize < 0:
		return fmt.Errorf("%w: negative size limit", ErrBadConfig)
	case cfg.OutputUnits != UnitsMM && cfg.OutputUnits != UnitsInch:
		return fmt.Errorf("%w: output units", ErrBadConfig)
	}
	if err := cfg.geometry().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	return nil
}

func (cfg Config) parser() gerberstates.Config {
	return gerberstates.Config{
		StrictApertures:    cfg.StrictApertures,
		ArcRadiusTolerance: cfg.ArcRadiusTolerance,
		MaxCommands:        cfg.MaxCommands,
	}
}

func (cfg Config) geometry() gerberdatamodel.Config {
	return gerberdatamodel.Config{
		ArcTolerance:      cfg.ArcTolerance,
		MinCircleSegments: cfg.MinCircleSegments,
	}
}

// Result of one import. Geometry is nil when the import failed.
type Result struct {
	Geometry   *gerberdatamodel.Geometry
	Warnings   []diag.Warning
	Operations int // draw operations folded into the geometry
	Commands   int
	Apertures  int
	Excluded   int // outlines dropped as degenerate
}

// Mesh extrudes the geometry
func (r *Result) Mesh() (*gerberdatamodel.Mesh, error) {
	if r.Geometry == nil {
		return nil, errors.New("no geometry")
	}
	return gerberdatamodel.Extrude(r.Geometry)
}

func (r *Result) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "commands: %d, apertures: %d, operations: %d, excluded: %d, warnings: %d",
		r.Commands, r.Apertures, r.Operations, r.Excluded, len(r.Warnings))
	if r.Geometry != nil {
		lo, hi := r.Geometry.Bounds()
		fmt.Fprintf(&sb, "\nshapes: %d, area: %.4f, bounds: %v - %v %s",
			len(r.Geometry.Shapes), r.Geometry.Area(), lo, hi, r.Geometry.Units)
	}
	return sb.String()
}

/*
	Import reads the whole layer from r and builds its geometry.
	On a fatal error the result carries the warnings collected so far
	and no geometry.
*/
func Import(r io.Reader, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src := r
	if cfg.MaxFileSize > 0 {
		src = io.LimitReader(r, cfg.MaxFileSize+1)
	}
	content, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read gerber: %w", err)
	}
	if cfg.MaxFileSize > 0 && int64(len(content)) > cfg.MaxFileSize {
		err := diag.NewError(diag.KindSizeLimit, 0, "input is larger than %d bytes", cfg.MaxFileSize)
		return &Result{}, err
	}
	return ImportBytes(content, cfg)
}

func ImportBytes(content []byte, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := diag.NewLog()
	interp := gerberstates.NewInterpreter(gerberlexer.NewReader(content), cfg.parser(), log)
	builder := gerberdatamodel.NewBuilder(cfg.geometry(), log)
	retVal := new(Result)

	var fatal error
	for {
		op, err := interp.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fatal = err
			break
		}
		if glog.V(4) {
			glog.Infoln(op)
		}
		builder.Add(op)
	}
	retVal.Commands = interp.Commands()
	retVal.Apertures = interp.Apertures().Len()
	retVal.Operations, retVal.Excluded = builder.Stats()
	retVal.Warnings = log.Warnings()
	if fatal != nil {
		return retVal, fatal
	}
	retVal.Geometry = builder.Geometry(cfg.Thickness, cfg.OutputUnits)
	return retVal, nil
}

func ImportFile(path string, cfg Config) (*Result, error) {
	if cfg.MaxFileSize > 0 {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("open gerber: %w", err)
		}
		if fi.Size() > cfg.MaxFileSize {
			return &Result{}, diag.NewError(diag.KindSizeLimit, 0, "%s is larger than %d bytes", path, cfg.MaxFileSize)
		}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open gerber: %w", err)
	}
	return Import(bytes.NewReader(content), cfg)
}

/*
############################ host side #####################
*/

// SceneBuilder receives the finished geometry of a layer
type SceneBuilder interface {
	Build(name string, g *gerberdatamodel.Geometry) error
}

// LayerName is the file name without the extension
func LayerName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ImportInto imports the file with the thickness of its layer kind and hands
// the geometry to sb. Nothing is built when the import fails.
func ImportInto(path string, cfg Config, sb SceneBuilder) (*Result, error) {
	layer := LayerOf(path)
	if layer.Kind == LayerDrill {
		return nil, fmt.Errorf("%s: %w", path, ErrDrillFile)
	}
	res, err := ImportFile(path, cfg.ForLayer(layer.Kind))
	if err != nil {
		return res, err
	}
	if err := sb.Build(layer.Name, res.Geometry); err != nil {
		return res, fmt.Errorf("build %s: %w", layer.Name, err)
	}
	return res, nil
}
