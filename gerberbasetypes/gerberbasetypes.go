// Base types for Gerber parsing and processing
package gerberbasetypes

const InchesToMM float64 = 25.4

// Apertures
type GerberApType int

const (
	AptypeCircle GerberApType = iota + 1
	AptypeRectangle
	AptypeObround
	AptypePoly
	AptypeMacro
	AptypeBlock
)

func (ga GerberApType) String() string {
	switch ga {
	case AptypeCircle:
		return "circle aperture"
	case AptypeRectangle:
		return "rectangle aperture"
	case AptypeObround:
		return "obround (box) aperture"
	case AptypePoly:
		return "polygon aperture"
	case AptypeMacro:
		return "macro aperture"
	case AptypeBlock:
		return "block aperture"
	default:
	}
	return "Unknown aperture type"
}

// true for the standard templates which have a geometric model
func (ga GerberApType) IsSupported() bool {
	return ga >= AptypeCircle && ga <= AptypePoly
}

type PolType int

const (
	PolTypeDark PolType = iota + 1
	PolTypeClear
)

func (p PolType) String() string {
	switch p {
	case PolTypeDark:
		return "Polarity: dark"
	case PolTypeClear:
		return "Polarity: clear"
	default:
	}
	return "Unknown polarity"
}

type ActType int

const (
	OpcodeD01_DRAW ActType = iota + 1
	OpcodeD02_MOVE
	OpcodeD03_FLASH
)

func (act ActType) String() string {
	switch act {
	case OpcodeD01_DRAW:
		return "Opcode D01 (DRAW)"
	case OpcodeD02_MOVE:
		return "Opcode D02 (MOVE)"
	case OpcodeD03_FLASH:
		return "Opcode D03 (FLASH)"
	default:
	}
	return "Unknown OpCode"
}

type QuadMode int

const (
	QuadModeSingle QuadMode = iota + 1
	QuadModeMulti
)

func (q QuadMode) String() string {
	switch q {
	case QuadModeSingle:
		return "QuadMode: Single"
	case QuadModeMulti:
		return "QuadMode: Multi"
	default:
	}
	return "Unknown QuadMode"
}

type IPmode int

const (
	IPModeLinear IPmode = iota + 1
	IPModeCwC
	IPModeCCwC
)

func (ipm IPmode) String() string {
	switch ipm {
	case IPModeLinear:
		return "Linear interpolation"
	case IPModeCwC:
		return "Clockwise interpolation"
	case IPModeCCwC:
		return "Counter-clockwise interpolation"
	default:
	}
	return "Unknown interpolation"
}

// zero omission convention of the coordinate data
type ZeroSuppression int

const (
	ZeroSuppLeading ZeroSuppression = iota + 1
	ZeroSuppTrailing
	ZeroSuppNone
)

func (zs ZeroSuppression) String() string {
	switch zs {
	case ZeroSuppLeading:
		return "Leading zeros omitted"
	case ZeroSuppTrailing:
		return "Trailing zeros omitted"
	case ZeroSuppNone:
		return "No zero omission"
	default:
	}
	return "Unknown zero suppression"
}

type Notation int

const (
	NotationAbsolute Notation = iota + 1
	NotationIncremental
)

func (n Notation) String() string {
	switch n {
	case NotationAbsolute:
		return "Absolute notation"
	case NotationIncremental:
		return "Incremental notation"
	default:
	}
	return "Unknown notation"
}

// linear units. Zero value means "not declared yet"
type Units int

const (
	UnitsMM Units = iota + 1
	UnitsInch
)

func (u Units) String() string {
	switch u {
	case UnitsMM:
		return "mm"
	case UnitsInch:
		return "inch"
	default:
	}
	return "unknown units"
}

// returns the multiplier which converts the value in units u to millimeters
func (u Units) ToMM() float64 {
	if u == UnitsInch {
		return InchesToMM
	}
	return 1.0
}

// parses "mm", "MM", "in", "inch"
func ParseUnits(s string) (Units, bool) {
	switch s {
	case "mm", "MM", "millimeter", "millimeters":
		return UnitsMM, true
	case "in", "IN", "inch", "INCH", "inches":
		return UnitsInch, true
	}
	return 0, false
}
