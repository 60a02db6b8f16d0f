package gerber2solid

import (
	"errors"
	"path/filepath"
	"strings"
)

var ErrDrillFile = errors.New("drill file, not a Gerber layer")

type LayerKind int

const (
	LayerGeneric LayerKind = iota
	LayerCopper
	LayerSoldermask
	LayerSilkscreen
	LayerDrill
)

func (k LayerKind) String() string {
	switch k {
	case LayerCopper:
		return "copper"
	case LayerSoldermask:
		return "soldermask"
	case LayerSilkscreen:
		return "silkscreen"
	case LayerDrill:
		return "drill"
	}
	return "generic"
}

// Layer is what the file name tells about the layer
type Layer struct {
	Name string
	Kind LayerKind
}

// Protel style extensions
var layerExtensions = map[string]Layer{
	"gtl": {"top_copper", LayerCopper},
	"gbl": {"bottom_copper", LayerCopper},
	"gts": {"top_soldermask", LayerSoldermask},
	"gbs": {"bottom_soldermask", LayerSoldermask},
	"gto": {"top_silkscreen", LayerSilkscreen},
	"gbo": {"bottom_silkscreen", LayerSilkscreen},
}

/*
	LayerOf identifies the layer by the file extension. Files with the drl
	extension or "drill" in the name are drill files. Any other file is a
	generic layer named after the file.
*/
func LayerOf(path string) Layer {
	base := filepath.Base(path)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	if ext == "drl" || strings.Contains(strings.ToLower(base), "drill") {
		return Layer{Name: LayerName(path), Kind: LayerDrill}
	}
	if l, ok := layerExtensions[ext]; ok {
		return l
	}
	return Layer{Name: LayerName(path), Kind: LayerGeneric}
}

// ForLayer returns the configuration with the thickness of the layer kind
func (cfg Config) ForLayer(kind LayerKind) Config {
	switch kind {
	case LayerSoldermask:
		cfg.Thickness = cfg.SoldermaskThickness
	case LayerSilkscreen:
		cfg.Thickness = cfg.SilkscreenThickness
	}
	return cfg
}
