// Apertures support
package apertures

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberlexer"
)

var (
	ErrBadAperture     = errors.New("bad aperture definition")
	ErrDuplicate       = errors.New("aperture is already defined")
	ErrUnknownTemplate = errors.New("aperture template is not defined")
	ErrBadApertureCode = errors.New("aperture number must be >= 10")
)

type Aperture struct {
	Code         int
	SourceString string
	Type         GerberApType
	Template     string // template or macro name
	XSize        float64
	YSize        float64
	Diameter     float64
	HoleDiameter float64 // not cut from the 2D outline
	Vertices     int
	RotAngle     float64 // degrees
}

func (apert *Aperture) IsSupported() bool {
	return apert != nil && apert.Type.IsSupported()
}

// the smallest extent of the aperture, used as the width of arcs
func (apert *Aperture) Width() float64 {
	switch apert.Type {
	case AptypeCircle, AptypePoly:
		return apert.Diameter
	case AptypeRectangle, AptypeObround:
		return min(apert.XSize, apert.YSize)
	}
	return 0
}

func (apert *Aperture) String() string {
	return "D" + strconv.Itoa(apert.Code) + ": " + apert.Type.String() +
		" (" + apert.SourceString + ")"
}

func checkParams(kind string, params []float64, lo, hi int) error {
	if len(params) < lo || len(params) > hi {
		return fmt.Errorf("%w: bad number of parameters for %s aperture", ErrBadAperture, kind)
	}
	return nil
}

// Init loads the standard template parameters and scales them to mm
func (apert *Aperture) Init(ad *gerberlexer.ApertureDirective, scale float64) error {
	var err error
	apert.Code = ad.Code
	apert.Template = ad.Template
	params := ad.Params
	switch ad.Template {
	case "C":
		apert.Type = AptypeCircle
		if err = checkParams("circle", params, 1, 2); err != nil {
			return err
		}
		apert.Diameter = params[0]
		if len(params) > 1 {
			apert.HoleDiameter = params[1]
		}
	case "R", "O":
		apert.Type = AptypeRectangle
		kind := "rectangle"
		if ad.Template == "O" {
			apert.Type = AptypeObround
			kind = "obround"
		}
		if err = checkParams(kind, params, 2, 3); err != nil {
			return err
		}
		apert.XSize = params[0]
		apert.YSize = params[1]
		if len(params) > 2 {
			apert.HoleDiameter = params[2]
		}
	case "P":
		apert.Type = AptypePoly
		if err = checkParams("polygon", params, 2, 4); err != nil {
			return err
		}
		apert.Diameter = params[0] // OuterDiameter
		apert.Vertices = int(params[1])
		if apert.Vertices < 3 || apert.Vertices > 12 {
			return fmt.Errorf("%w: polygon must have 3..12 vertices", ErrBadAperture)
		}
		if len(params) > 2 {
			apert.RotAngle = params[2]
		}
		if len(params) > 3 {
			apert.HoleDiameter = params[3]
		}
	default:
		apert.Type = AptypeMacro
	}
	if apert.Diameter < 0 || apert.XSize < 0 || apert.YSize < 0 || apert.HoleDiameter < 0 {
		return fmt.Errorf("%w: negative size", ErrBadAperture)
	}

	apert.HoleDiameter *= scale
	apert.Diameter *= scale
	apert.YSize *= scale
	apert.XSize *= scale
	return nil
}

/*
	Table is the aperture dictionary of one file.
*/
type Table struct {
	items  map[int]*Aperture
	macros map[string]bool
}

func NewTable() *Table {
	return &Table{items: make(map[int]*Aperture), macros: make(map[string]bool)}
}

func (t *Table) DefineMacro(name string) {
	t.macros[name] = true
}

func (t *Table) HasMacro(name string) bool {
	return t.macros[name]
}

// Define adds the aperture described by %AD.
// A reference to an unknown template still defines a placeholder, the error is reported.
func (t *Table) Define(ad *gerberlexer.ApertureDirective, source string, scale float64) (*Aperture, error) {
	if ad.Code < 10 {
		return nil, fmt.Errorf("%w: D%d", ErrBadApertureCode, ad.Code)
	}
	if _, ok := t.items[ad.Code]; ok {
		return nil, fmt.Errorf("%w: D%d", ErrDuplicate, ad.Code)
	}
	apert := &Aperture{SourceString: source}
	if err := apert.Init(ad, scale); err != nil {
		return nil, fmt.Errorf("D%d: %w", ad.Code, err)
	}
	t.items[ad.Code] = apert
	if apert.Type == AptypeMacro && !t.HasMacro(ad.Template) {
		return apert, fmt.Errorf("%w: D%d uses %s", ErrUnknownTemplate, ad.Code, ad.Template)
	}
	return apert, nil
}

// DefineBlock registers the placeholder of an aperture block
func (t *Table) DefineBlock(code int, source string) (*Aperture, error) {
	if code < 10 {
		return nil, fmt.Errorf("%w: D%d", ErrBadApertureCode, code)
	}
	if _, ok := t.items[code]; ok {
		return nil, fmt.Errorf("%w: D%d", ErrDuplicate, code)
	}
	apert := &Aperture{Code: code, Type: AptypeBlock, SourceString: source}
	t.items[code] = apert
	return apert, nil
}

func (t *Table) Lookup(code int) (*Aperture, bool) {
	apert, ok := t.items[code]
	return apert, ok
}

func (t *Table) Len() int {
	return len(t.items)
}

// apertures ordered by code
func (t *Table) List() []*Aperture {
	retVal := make([]*Aperture, 0, len(t.items))
	for _, a := range t.items {
		retVal = append(retVal, a)
	}
	sort.Slice(retVal, func(i, j int) bool { return retVal[i].Code < retVal[j].Code })
	return retVal
}
