package gerberlexer

import (
	"strconv"
	"strings"

	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
)

/*
FS Format specification. Sets the coordinate format, e.g. the number of decimals. 4.1
MO Mode. Sets the unit to inch or mm. 4.2
AD Aperture define. Defines a template based aperture and assigns a D code to it. 4.3
AM Aperture macro. Defines a macro aperture template. 4.5
AB Aperture block. Defines a block aperture and assigns a D-code to it. 4.6
Dnn (nn≥10) Sets the current aperture to D code nn. 4.7
D01 Interpolate operation. Outside a region statement D01 creates a draw or arc
object using the current aperture. Inside it creates a linear or circular contour
segment. After the D01 command the current point is moved to draw/arc end
point.
D02 Move operation. D02 does not create a graphics object but moves the current
point to the coordinate in the D02 command.
D03 Flash operation. Creates a flash object with the current aperture. After the D03
command the current point is moved to the flash point.
G01 Sets the interpolation mode to linear. 4.9
G02 Sets the interpolation mode to clockwise circular. 4.10
G03 Sets the interpolation mode to counterclockwise circular. 4.10
G74 Sets quadrant mode to single quadrant. 4.10
G75 Sets quadrant mode to multi quadrant. 4.10
LP Load polarity. 4.11.2
LM, LR, LS Load mirror, rotation, scale. 4.11.3 - 4.11.5
G36 Starts a region statement. 4.12
G37 Ends the region statement. 4.12
SR Step and repeat. Open or closes a step and repeat statement. 4.13
G04 Comment. 4.14
TF, TA, TO, TD Attributes. 5.2 - 5.5
M02 End of file. 4.1

Historic codes: G54, G55 (no effect), G70/G71 (units), G90/G91 (notation),
M00 (same as M02), M01 (no effect), IP, AS, IR, MI, OF, SF, IN, LN.
*/

type GerberCommandId byte

const (
	AB GerberCommandId = iota
	AD
	AM
	AS
	D
	D01
	D02
	D03
	FS
	G01
	G02
	G03
	G04
	G36
	G37
	G54
	G55
	G70
	G71
	G74
	G75
	G90
	G91
	IN
	IP
	IR
	LM
	LN
	LP
	LR
	LS
	M00
	M01
	M02
	MI
	MO
	OF
	SF
	SR
	TA
	TD
	TF
	TO
	// coordinate data without an operation code
	COORD
	// must be last
	NOP
)

var gerberCommandIdNames = [...]string{
	"AB", "AD", "AM", "AS", "D", "D01", "D02", "D03", "FS",
	"G01", "G02", "G03", "G04", "G36", "G37", "G54", "G55", "G70", "G71", "G74", "G75", "G90", "G91",
	"IN", "IP", "IR", "LM", "LN", "LP", "LR", "LS",
	"M00", "M01", "M02", "MI", "MO", "OF", "SF", "SR", "TA", "TD", "TF", "TO",
	"COORD", "NOP",
}

func (id GerberCommandId) String() string {
	if int(id) < len(gerberCommandIdNames) {
		return gerberCommandIdNames[id]
	}
	return "GerberCommandId(" + strconv.Itoa(int(id)) + ")"
}

var gCodes = map[int]GerberCommandId{
	1:  G01,
	2:  G02,
	3:  G03,
	4:  G04,
	36: G36,
	37: G37,
	54: G54,
	55: G55,
	70: G70,
	71: G71,
	74: G74,
	75: G75,
	90: G90,
	91: G91,
}

var mCodes = map[int]GerberCommandId{
	0: M00,
	1: M01,
	2: M02,
}

var extCodes = map[string]GerberCommandId{
	"AB": AB, "AD": AD, "AM": AM, "AS": AS, "FS": FS, "IN": IN, "IP": IP, "IR": IR,
	"LM": LM, "LN": LN, "LP": LP, "LR": LR, "LS": LS, "MI": MI, "MO": MO, "OF": OF,
	"SF": SF, "SR": SR, "TA": TA, "TD": TD, "TF": TF, "TO": TO,
}

type Delim byte

const (
	DataBlockTrailer Delim = '*'
	ExtCmdDelimiter  Delim = '%'
)

// CoordFlag marks the coordinate fields present in a block
type CoordFlag byte

const (
	HasX CoordFlag = 1 << iota
	HasY
	HasI
	HasJ
)

// raw coordinate fields, the format is applied by the interpreter
type Coords struct {
	X, Y, I, J string
	Flags      CoordFlag
}

func (c *Coords) Has(f CoordFlag) bool {
	return c.Flags&f != 0
}

func (c *Coords) set(axis byte, val string) bool {
	var f CoordFlag
	switch axis {
	case 'X':
		f, c.X = HasX, val
	case 'Y':
		f, c.Y = HasY, val
	case 'I':
		f, c.I = HasI, val
	case 'J':
		f, c.J = HasJ, val
	}
	if c.Flags&f != 0 {
		return false
	}
	c.Flags |= f
	return true
}

type FormatDirective struct {
	Zeros    ZeroSuppression
	Notation Notation
	XI, XD   int
	YI, YD   int
}

type ApertureDirective struct {
	Code     int
	Template string
	Params   []float64
}

// X == 0 closes the block
type StepRepeatDirective struct {
	X, Y int
	I, J float64
}

type GerberCommand struct {
	Id       GerberCommandId
	Line     int    // line where the block starts
	Body     string // block text without delimiters
	Code     int    // G, M or D number
	Name     string // macro name, comment or attribute text
	Coords   Coords
	Format   *FormatDirective
	Units    Units
	Aperture *ApertureDirective
	Polarity PolType
	Step     *StepRepeatDirective
	Err      error // malformed body of a known command
}

func (gc *GerberCommand) String() string {
	return "{command:\"" + gc.Id.String() + "\",val:\"" + gc.Body + "\"}"
}

/*
	Reader splits the source into commands on demand.
	It stops at the end of the input or after M02 (M00).
*/
type Reader struct {
	src     []byte
	pos     int
	line    int
	pending []GerberCommand
	stopped bool
}

func NewReader(src []byte) *Reader {
	r := &Reader{src: src}
	r.Reset()
	return r
}

// rewinds the reader to the beginning of the source
func (r *Reader) Reset() {
	r.pos = 0
	r.line = 1
	r.pending = nil
	r.stopped = false
}

func (r *Reader) Next() (GerberCommand, bool) {
	for len(r.pending) == 0 {
		if r.stopped || !r.readBlock() {
			return GerberCommand{}, false
		}
	}
	cmd := r.pending[0]
	r.pending = r.pending[1:]
	if cmd.Id == M02 || cmd.Id == M00 {
		r.stopped = true
		r.pending = nil
	}
	return cmd, true
}

func isSeparator(c byte) bool {
	return c == '\n' || c == '\r' || c == ' ' || c == '\t'
}

// reads one data block or one extended block
func (r *Reader) readBlock() bool {
	for r.pos < len(r.src) && isSeparator(r.src[r.pos]) {
		if r.src[r.pos] == '\n' {
			r.line++
		}
		r.pos++
	}
	if r.pos >= len(r.src) {
		return false
	}
	line := r.line
	if r.src[r.pos] == byte(ExtCmdDelimiter) {
		r.pos++
		body, closed := r.scanUntil(byte(ExtCmdDelimiter))
		r.splitExtended(body, line, closed)
		return true
	}
	body, _ := r.scanUntil(byte(DataBlockTrailer))
	r.splitData(body, line)
	return true
}

// purges CR LF, consumes the delimiter
func (r *Reader) scanUntil(delim byte) (string, bool) {
	var sb strings.Builder
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		r.pos++
		switch c {
		case delim:
			return sb.String(), true
		case '\n':
			r.line++
		case '\r':
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), false
}

// removes blanks
func squeezeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
}

func leadingNumber(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

func (r *Reader) emit(cmd GerberCommand) {
	r.pending = append(r.pending, cmd)
}

func (r *Reader) splitData(body string, line int) {
	text := strings.TrimSpace(body)
	for len(text) > 0 {
		switch text[0] {
		case 'G', 'g':
			num, rest := leadingNumber(text[1:])
			if num == "" {
				r.emit(GerberCommand{Id: NOP, Line: line, Body: text})
				return
			}
			code, _ := strconv.Atoi(num)
			id, ok := gCodes[code]
			if !ok {
				r.emit(GerberCommand{Id: NOP, Line: line, Body: FormatGCode("G", num), Code: code})
				text = strings.TrimSpace(rest)
				continue
			}
			if id == G04 {
				r.emit(GerberCommand{Id: G04, Line: line, Code: code, Body: strings.TrimSpace(rest), Name: strings.TrimSpace(rest)})
				return
			}
			r.emit(GerberCommand{Id: id, Line: line, Code: code, Body: FormatGCode("G", num)})
			text = strings.TrimSpace(rest)
		case 'M', 'm':
			num, rest := leadingNumber(text[1:])
			code, err := strconv.Atoi(num)
			id, ok := mCodes[code]
			if err != nil || !ok || strings.TrimSpace(rest) != "" {
				r.emit(GerberCommand{Id: NOP, Line: line, Body: text})
				return
			}
			r.emit(GerberCommand{Id: id, Line: line, Code: code, Body: FormatGCode("M", num)})
			return
		default:
			r.emit(parseOperation(strings.ToUpper(squeezeString(text)), line))
			return
		}
	}
}

// X..Y..I..J..Dnn
func parseOperation(text string, line int) GerberCommand {
	cmd := GerberCommand{Line: line, Body: text}
	bad := GerberCommand{Id: NOP, Line: line, Body: text}
	i := 0
	for i < len(text) {
		c := text[i]
		switch c {
		case 'X', 'Y', 'I', 'J':
			j := i + 1
			for j < len(text) && strings.IndexByte("0123456789+-.", text[j]) >= 0 {
				j++
			}
			if j == i+1 || !cmd.Coords.set(c, text[i+1:j]) {
				return bad
			}
			i = j
		case 'D':
			num, rest := leadingNumber(text[i+1:])
			if num == "" || rest != "" {
				return bad
			}
			cmd.Code, _ = strconv.Atoi(num)
			switch cmd.Code {
			case 1:
				cmd.Id = D01
			case 2:
				cmd.Id = D02
			case 3:
				cmd.Id = D03
			default:
				cmd.Id = D
			}
			return cmd
		default:
			return bad
		}
	}
	if cmd.Coords.Flags == 0 {
		return bad
	}
	cmd.Id = COORD
	return cmd
}

func (r *Reader) splitExtended(body string, line int, closed bool) {
	body = strings.TrimSpace(body)
	if !closed {
		r.emit(GerberCommand{Id: NOP, Line: line, Body: body, Err: errUnterminated})
		return
	}
	if strings.HasPrefix(body, "AM") {
		// the macro body is opaque
		name := body[2:]
		if p := strings.IndexByte(name, byte(DataBlockTrailer)); p >= 0 {
			name = name[:p]
		}
		r.emit(GerberCommand{Id: AM, Line: line, Body: body, Name: strings.TrimSpace(name)})
		return
	}
	for _, blk := range strings.Split(body, string(DataBlockTrailer)) {
		blk = strings.TrimSpace(blk)
		if blk == "" {
			continue
		}
		r.emit(extendedCommand(blk, line))
	}
}

func extendedCommand(blk string, line int) GerberCommand {
	if len(blk) < 2 {
		return GerberCommand{Id: NOP, Line: line, Body: blk}
	}
	id, ok := extCodes[strings.ToUpper(blk[:2])]
	if !ok {
		return GerberCommand{Id: NOP, Line: line, Body: blk}
	}
	cmd := GerberCommand{Id: id, Line: line, Body: blk, Name: strings.TrimSpace(blk[2:])}
	switch id {
	case FS, MO, AD, LP, SR:
		cmd.Err = parseExtended(&cmd)
	case AB:
		rest := squeezeString(blk[2:])
		if rest == "" {
			break
		}
		num, tail := leadingNumber(strings.TrimPrefix(rest, "D"))
		if !strings.HasPrefix(rest, "D") || num == "" || tail != "" {
			cmd.Err = errBadBlock
			break
		}
		cmd.Code, _ = strconv.Atoi(num)
	}
	return cmd
}

// deletes leading '0'
func FormatGCode(sym string, num string) string {

	if num == "" {
		return sym
	}

	num = strings.TrimLeft(num, "0")

	if len(num) == 1 {
		return sym + "0" + num
	}
	if len(num) == 0 {
		return sym + "00"
	}

	return sym + num
}
