/*
################################## State machine ######################################
*/
package gerberstates

import (
	"strconv"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/apertures"
	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/regions"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/srblocks"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

/*
	The State object is the graphics state of one import.
	It is mutated by the Interpreter only.
*/
type State struct {
	Format        xy.FormatSpec
	Polarity      PolType // %LPD*% or %LPC*%
	QMode         QuadMode
	IpMode        IPmode              // interpolation mode
	CurrentApCode int                 // 0 if no aperture selected
	CurrentAp     *apertures.Aperture // nil if the selected aperture is not defined
	Pos           xy.XY               // current point
	Region        *regions.Region     // not nil inside G36/G37
	SRBlock       *srblocks.SRBlock   // not nil inside an open step and repeat block
}

// creates and initializes the state with default values
func NewState() *State {
	state := new(State)
	state.Polarity = PolTypeDark
	state.IpMode = IPModeLinear
	state.QMode = QuadModeMulti
	return state
}

func (state *State) InRegion() bool {
	if state.Region == nil {
		return false
	}
	opened, _ := state.Region.IsRegionOpened()
	return opened
}

// diagnostic print
func (state *State) String() string {
	ap := "<nil>"
	if state.CurrentApCode != 0 {
		ap = "D" + strconv.Itoa(state.CurrentApCode)
	}
	return "State:\n" +
		"\t" + state.Format.String() + "\n" +
		"\t" + state.Polarity.String() + "\n" +
		"\t" + state.QMode.String() + "\n" +
		"\t" + state.IpMode.String() + "\n" +
		"\tAperture " + ap + "\n" +
		"\tCurrent point " + state.Pos.String() + "\n" +
		"\t" + state.Region.String() + "\n" +
		"\t" + state.SRBlock.String()
}

type OpKind int

const (
	OpStroke OpKind = iota + 1
	OpArc
	OpFlash
	OpRegion
)

func (k OpKind) String() string {
	switch k {
	case OpStroke:
		return "Stroke"
	case OpArc:
		return "Arc"
	case OpFlash:
		return "Flash"
	case OpRegion:
		return "Region"
	default:
	}
	return "Unknown operation"
}

/*
	DrawOperation is one graphics object in the order of the file.
	Stroke: From, To, Aperture.
	Arc: From, To, Center, Direction, Sweep, Aperture.
	Flash: To, Aperture.
	Region: Region (closed contours).
*/
type DrawOperation struct {
	Kind      OpKind
	Line      int
	Polarity  PolType
	From      xy.XY
	To        xy.XY
	Center    xy.XY
	Direction IPmode
	Sweep     float64 // signed, radians, counter-clockwise positive
	Aperture  *apertures.Aperture
	Region    *regions.Region
}

// Offset returns a copy of the operation shifted by d
func (op *DrawOperation) Offset(d xy.XY) *DrawOperation {
	retVal := *op
	retVal.From = op.From.Add(d)
	retVal.To = op.To.Add(d)
	retVal.Center = op.Center.Add(d)
	if op.Region != nil {
		retVal.Region = op.Region.Translate(d)
	}
	return &retVal
}

func (op *DrawOperation) String() string {
	retVal := op.Kind.String() + " at line " + strconv.Itoa(op.Line) + ", " + op.Polarity.String()
	switch op.Kind {
	case OpStroke, OpArc:
		retVal += ", from " + op.From.String() + " to " + op.To.String()
	case OpFlash:
		retVal += ", at " + op.To.String()
	case OpRegion:
		retVal += ", " + strconv.Itoa(len(op.Region.Contours())) + " contours"
	}
	if op.Aperture != nil {
		retVal += ", D" + strconv.Itoa(op.Aperture.Code)
	}
	return retVal
}
