package xy

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
)

var (
	ErrBadFormat     = errors.New("bad coordinate format")
	ErrBadCoordinate = errors.New("malformed coordinate")
)

// Function checks against non-number characters in the string
func isNumString(ins string) bool {
	if len(ins) == 0 {
		return false
	}
	for _, c := range []byte(ins) {
		if (c < '0') || (c > '9') {
			return false
		}
	}
	return true
}

/*
############################ format specification #####################
*/

// Format specification object
type FormatSpec struct {
	Head     string // FS block as found in the file
	Zeros    ZeroSuppression
	Notation Notation
	XI       int // digits in the integer part
	XD       int // digits in the fractional part
	YI       int
	YD       int
	Units    Units
}

// loads the FS parameters
func (fs *FormatSpec) Init(head string, zeros ZeroSuppression, notation Notation, xi, xd, yi, yd int) error {
	for _, d := range []int{xi, xd, yi, yd} {
		if d < 1 || d > 7 {
			return fmt.Errorf("%w: %s: digit count %d out of range 1..7", ErrBadFormat, head, d)
		}
	}
	if zeros == 0 {
		zeros = ZeroSuppLeading
	}
	if notation == 0 {
		notation = NotationAbsolute
	}
	fs.Head = head
	fs.Zeros = zeros
	fs.Notation = notation
	fs.XI, fs.XD = xi, xd
	fs.YI, fs.YD = yi, yd
	return nil
}

func (fs *FormatSpec) SetUnits(u Units) {
	fs.Units = u
}

func (fs *FormatSpec) HasFormat() bool {
	return fs.XI > 0 && fs.YI > 0
}

func (fs *FormatSpec) HasUnits() bool {
	return fs.Units != 0
}

// both FS and MO are known
func (fs *FormatSpec) Ready() bool {
	return fs.HasFormat() && fs.HasUnits()
}

// returns the scale factor to millimeters
func (fs *FormatSpec) ReadMU() float64 {
	return fs.Units.ToMM()
}

func (fs *FormatSpec) DecodeX(ins string) (float64, error) {
	return Decode(ins, fs.XI, fs.XD, fs.Zeros, fs.ReadMU())
}

func (fs *FormatSpec) DecodeY(ins string) (float64, error) {
	return Decode(ins, fs.YI, fs.YD, fs.Zeros, fs.ReadMU())
}

func (fs *FormatSpec) String() string {
	return "FS " + fs.Zeros.String() + ", " + fs.Notation.String() +
		", X" + strconv.Itoa(fs.XI) + "." + strconv.Itoa(fs.XD) +
		", Y" + strconv.Itoa(fs.YI) + "." + strconv.Itoa(fs.YD) +
		", units " + fs.Units.String()
}

/*
######################### coordinates #########################################
*/

// Decode converts the raw coordinate field ins to a value in millimeters.
// n is the number of places for int part
// m is the number of places for frac part
// s is the scale factor 1.0 or 25.4 (mm/inches)
// A field longer than n+m digits keeps the decimal point at the position
// dictated by the zero suppression mode.
func Decode(ins string, n, m int, zs ZeroSuppression, s float64) (float64, error) {
	var neg bool
	ws := ins
	if strings.HasPrefix(ws, "-") {
		neg = true
		ws = ws[1:]
	} else if strings.HasPrefix(ws, "+") {
		ws = ws[1:]
	}

	var val float64
	var err error
	if strings.IndexByte(ws, '.') >= 0 {
		// the point is explicit
		if val, err = strconv.ParseFloat(ws, 64); err != nil || strings.ContainsAny(ws, "eE+-") {
			return 0, fmt.Errorf("%w: %q", ErrBadCoordinate, ins)
		}
	} else {
		if !isNumString(ws) {
			return 0, fmt.Errorf("%w: %q", ErrBadCoordinate, ins)
		}
		var ps string
		switch zs {
		case ZeroSuppTrailing:
			if len(ws) < n+m {
				ws = ws + strings.Repeat("0", n+m-len(ws))
			}
			ps = ws[:n] + "." + ws[n:]
		default:
			if len(ws) < n+m {
				ws = strings.Repeat("0", n+m-len(ws)) + ws
			}
			ps = ws[:len(ws)-m] + "." + ws[len(ws)-m:]
		}
		if val, err = strconv.ParseFloat(ps, 64); err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadCoordinate, ins)
		}
	}
	if neg {
		val = -val
	}
	return val * s, nil
}

// Encode is the inverse of Decode for scale 1.0
func Encode(v float64, n, m int, zs ZeroSuppression) string {
	scaled := math.Round(math.Abs(v) * math.Pow10(m))
	digits := strconv.FormatFloat(scaled, 'f', 0, 64)
	if len(digits) < n+m {
		digits = strings.Repeat("0", n+m-len(digits)) + digits
	}
	switch zs {
	case ZeroSuppLeading:
		digits = strings.TrimLeft(digits, "0")
	case ZeroSuppTrailing:
		digits = strings.TrimRight(digits, "0")
	}
	if digits == "" {
		digits = "0"
	}
	if v < 0 && scaled != 0 {
		digits = "-" + digits
	}
	return digits
}

// point on the plane, millimeters
type XY struct {
	X float64
	Y float64
}

func NewXY(x, y float64) XY {
	return XY{X: x, Y: y}
}

func FromVec2(v mgl64.Vec2) XY {
	return XY{v[0], v[1]}
}

func (xy XY) Vec2() mgl64.Vec2 {
	return mgl64.Vec2{xy.X, xy.Y}
}

func (xy XY) Add(another XY) XY {
	return XY{xy.X + another.X, xy.Y + another.Y}
}

func (xy XY) Sub(another XY) XY {
	return XY{xy.X - another.X, xy.Y - another.Y}
}

func (xy XY) Hypot() float64 {
	return math.Hypot(xy.X, xy.Y)
}

func (xy XY) Distance(another XY) float64 {
	return math.Hypot(xy.X-another.X, xy.Y-another.Y)
}

// tolerance is the radius of the circle around first point
// inisde of which another point will be treated as equal to the first one
func (xy XY) Equals(another XY, tolerance float64) bool {
	return xy.Distance(another) < tolerance
}

func (xy XY) String() string {
	return "x,y=(" +
		strconv.FormatFloat(xy.X, 'f', 5, 64) +
		"," +
		strconv.FormatFloat(xy.Y, 'f', 5, 64) +
		")"
}

/*
######################### arcs #########################################
*/

const angleEps = 1e-9

// ArcSweep returns the start angle and the signed sweep (radians, positive is
// counter-clockwise) of the arc from -> to around center.
// full selects a 360 degree sweep when the end points coincide.
func ArcSweep(from, to, center XY, clockwise, full bool) (start, sweep float64) {
	start = math.Atan2(from.Y-center.Y, from.X-center.X)
	end := math.Atan2(to.Y-center.Y, to.X-center.X)
	sweep = end - start
	if clockwise {
		if sweep > 0 {
			sweep -= 2 * math.Pi
		}
	} else {
		if sweep < 0 {
			sweep += 2 * math.Pi
		}
	}
	if math.Abs(sweep) < angleEps || 2*math.Pi-math.Abs(sweep) < angleEps {
		switch {
		case !full:
			sweep = 0
		case clockwise:
			sweep = -2 * math.Pi
		default:
			sweep = 2 * math.Pi
		}
	}
	return start, sweep
}

// point on the circle
func ArcPoint(center XY, radius, angle float64) XY {
	v := mgl64.Vec2{math.Cos(angle), math.Sin(angle)}.Mul(radius)
	return FromVec2(center.Vec2().Add(v))
}
