package gerberstates

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/apertures"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/diag"
	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberlexer"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/regions"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/srblocks"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

type Config struct {
	StrictApertures    bool    // unsupported apertures abort the import
	ArcRadiusTolerance float64 // mm
	MaxCommands        int     // 0 is unlimited
}

func DefaultConfig() Config {
	return Config{ArcRadiusTolerance: 0.01}
}

/*
	Interpreter pulls commands from the reader and turns them into draw operations.
*/
type Interpreter struct {
	reader    *gerberlexer.Reader
	cfg       Config
	log       *diag.Log
	state     *State
	apertures *apertures.Table
	commands  int
	// D code used by coordinate data without an operation code
	lastAction ActType
	// operations ready to be returned
	queue []*DrawOperation
	// operations of the open step and repeat block
	srBuffer []*DrawOperation
	// nesting level of aperture blocks
	abDepth int
	done    bool
	err     error
}

func NewInterpreter(r *gerberlexer.Reader, cfg Config, log *diag.Log) *Interpreter {
	if log == nil {
		log = diag.NewLog()
	}
	return &Interpreter{
		reader:    r,
		cfg:       cfg,
		log:       log,
		state:     NewState(),
		apertures: apertures.NewTable(),
	}
}

func (it *Interpreter) State() *State {
	return it.state
}

func (it *Interpreter) Apertures() *apertures.Table {
	return it.apertures
}

// number of commands read so far
func (it *Interpreter) Commands() int {
	return it.commands
}

// Next returns the next draw operation, io.EOF at the end of the file,
// or the fatal error which stopped the import.
func (it *Interpreter) Next() (*DrawOperation, error) {
	for len(it.queue) == 0 {
		if it.err != nil {
			return nil, it.err
		}
		if it.done {
			return nil, io.EOF
		}
		cmd, ok := it.reader.Next()
		if !ok {
			it.finish()
			continue
		}
		it.commands++
		if it.cfg.MaxCommands > 0 && it.commands > it.cfg.MaxCommands {
			it.err = diag.NewError(diag.KindSizeLimit, cmd.Line, "more than %d commands", it.cfg.MaxCommands)
			continue
		}
		if err := it.execute(&cmd); err != nil {
			it.err = err
		}
	}
	op := it.queue[0]
	it.queue = it.queue[1:]
	return op, nil
}

// end of file: open constructs are closed or discarded
func (it *Interpreter) finish() {
	it.done = true
	if it.state.InRegion() {
		it.log.Add(diag.KindGeometryDegenerate, it.state.Region.G36StringNumber,
			"region is not terminated by G37, discarded")
		it.state.Region = nil
	}
	if it.state.SRBlock != nil {
		glog.Warningln("step and repeat block is not closed at the end of file")
		it.closeSR()
	}
	if it.abDepth > 0 {
		it.log.Add(diag.KindSyntax, 0, "aperture block is not closed at the end of file")
	}
}

func (it *Interpreter) emit(op *DrawOperation) {
	switch {
	case it.abDepth > 0:
		if glog.V(2) {
			glog.Infoln("aperture block content skipped:", op.String())
		}
	case it.state.SRBlock != nil:
		it.srBuffer = append(it.srBuffer, op)
		it.state.SRBlock.IncNSteps()
	default:
		it.queue = append(it.queue, op)
	}
}

func (it *Interpreter) syntax(cmd *gerberlexer.GerberCommand, format string, args ...interface{}) {
	it.log.Add(diag.KindSyntax, cmd.Line, format, args...)
}

func (it *Interpreter) execute(cmd *gerberlexer.GerberCommand) error {
	if cmd.Err != nil {
		if cmd.Id == gerberlexer.FS || cmd.Id == gerberlexer.MO {
			return diag.NewError(diag.KindFormat, cmd.Line, "malformed %s: %v", cmd.Id, cmd.Err)
		}
		it.syntax(cmd, "malformed %s command %q: %v", cmd.Id, cmd.Body, cmd.Err)
		return nil
	}
	state := it.state
	switch cmd.Id {
	case gerberlexer.FS:
		f := cmd.Format
		err := state.Format.Init(cmd.Body, f.Zeros, f.Notation, f.XI, f.XD, f.YI, f.YD)
		if err != nil {
			return diag.NewError(diag.KindFormat, cmd.Line, "%v", err)
		}
		if f.Zeros == ZeroSuppTrailing {
			glog.Infoln("trailing zero omission is deprecated, line", cmd.Line)
		}
	case gerberlexer.MO:
		state.Format.SetUnits(cmd.Units)
	case gerberlexer.G70:
		glog.Infoln("deprecated G70 at line", cmd.Line)
		state.Format.SetUnits(UnitsInch)
	case gerberlexer.G71:
		glog.Infoln("deprecated G71 at line", cmd.Line)
		state.Format.SetUnits(UnitsMM)
	case gerberlexer.G90:
		state.Format.Notation = NotationAbsolute
	case gerberlexer.G91:
		glog.Infoln("deprecated G91 at line", cmd.Line)
		state.Format.Notation = NotationIncremental
	case gerberlexer.AD:
		return it.defineAperture(cmd)
	case gerberlexer.AM:
		glog.Infoln("aperture macro", cmd.Name, "is not evaluated, line", cmd.Line)
		it.apertures.DefineMacro(cmd.Name)
	case gerberlexer.AB:
		it.apertureBlock(cmd)
	case gerberlexer.D:
		it.selectAperture(cmd)
	case gerberlexer.G01:
		state.IpMode = IPModeLinear
	case gerberlexer.G02:
		state.IpMode = IPModeCwC
	case gerberlexer.G03:
		state.IpMode = IPModeCCwC
	case gerberlexer.G74:
		state.QMode = QuadModeSingle
	case gerberlexer.G75:
		state.QMode = QuadModeMulti
	case gerberlexer.G36:
		if state.InRegion() {
			it.syntax(cmd, "G36 inside a region")
			break
		}
		state.Region = regions.NewRegion(cmd.Line)
	case gerberlexer.G37:
		it.closeRegion(cmd)
	case gerberlexer.LP:
		state.Polarity = cmd.Polarity
	case gerberlexer.SR:
		return it.stepAndRepeat(cmd)
	case gerberlexer.D01, gerberlexer.D02, gerberlexer.D03, gerberlexer.COORD:
		return it.operate(cmd)
	case gerberlexer.G04, gerberlexer.G54, gerberlexer.G55, gerberlexer.M00, gerberlexer.M01, gerberlexer.M02, gerberlexer.TF, gerberlexer.TA, gerberlexer.TO, gerberlexer.TD, gerberlexer.IN, gerberlexer.LN:
		if glog.V(3) {
			glog.Infoln("ignored", cmd.String(), "at line", cmd.Line)
		}
	case gerberlexer.IP, gerberlexer.MI, gerberlexer.OF, gerberlexer.SF, gerberlexer.IR, gerberlexer.AS, gerberlexer.LM, gerberlexer.LR, gerberlexer.LS:
		if !isDefaultImageParameter(cmd) {
			it.syntax(cmd, "image parameter %q is not supported and ignored", cmd.Body)
		}
	default:
		it.syntax(cmd, "unknown command %q", cmd.Body)
	}
	return nil
}

func (it *Interpreter) defineAperture(cmd *gerberlexer.GerberCommand) error {
	if !it.state.Format.HasUnits() {
		return diag.NewError(diag.KindFormat, cmd.Line, "aperture D%d is defined before %%MO", cmd.Aperture.Code)
	}
	apert, err := it.apertures.Define(cmd.Aperture, cmd.Body, it.state.Format.ReadMU())
	if err != nil {
		// an unknown template still defines a placeholder
		it.syntax(cmd, "%v", err)
	}
	if apert != nil && glog.V(1) {
		glog.Infoln(apert.String())
	}
	return nil
}

// %ABD..% opens a block, %AB% closes it. The block content is not rendered.
func (it *Interpreter) apertureBlock(cmd *gerberlexer.GerberCommand) {
	if cmd.Code == 0 {
		if it.abDepth == 0 {
			it.syntax(cmd, "%%AB%% without an open aperture block")
			return
		}
		it.abDepth--
		return
	}
	if _, err := it.apertures.DefineBlock(cmd.Code, cmd.Body); err != nil {
		it.syntax(cmd, "%v", err)
	}
	glog.Infoln("aperture block D"+strconv.Itoa(cmd.Code), "is not supported, line", cmd.Line)
	it.abDepth++
}

func (it *Interpreter) selectAperture(cmd *gerberlexer.GerberCommand) {
	if cmd.Code < 10 {
		it.syntax(cmd, "D%02d is not an aperture number", cmd.Code)
		return
	}
	if cmd.Coords.Flags != 0 {
		it.syntax(cmd, "coordinates of aperture selection %q ignored", cmd.Body)
	}
	it.state.CurrentApCode = cmd.Code
	it.state.CurrentAp, _ = it.apertures.Lookup(cmd.Code)
}

func (it *Interpreter) closeRegion(cmd *gerberlexer.GerberCommand) {
	state := it.state
	if !state.InRegion() {
		it.syntax(cmd, "G37 without G36")
		return
	}
	region := state.Region
	state.Region = nil
	_ = region.Close(cmd.Line)
	region.Polarity = state.Polarity
	if len(region.Contours()) == 0 {
		it.log.Add(diag.KindGeometryDegenerate, cmd.Line, "empty region (G36 at line %d)", region.G36StringNumber)
		return
	}
	it.emit(&DrawOperation{Kind: OpRegion, Line: region.G36StringNumber, Polarity: region.Polarity, Region: region})
}

func (it *Interpreter) stepAndRepeat(cmd *gerberlexer.GerberCommand) error {
	if it.state.SRBlock != nil {
		// a new %SR implicitly closes the open block
		it.closeSR()
	}
	if cmd.Step.X == 0 {
		return nil
	}
	if !it.state.Format.HasUnits() {
		return diag.NewError(diag.KindFormat, cmd.Line, "step and repeat block before %%MO")
	}
	srb := new(srblocks.SRBlock)
	if err := srb.Init(cmd.Step, it.state.Format.ReadMU(), cmd.Body); err != nil {
		it.syntax(cmd, "%v", err)
		return nil
	}
	glog.Infoln("Step and repeat block found at line", cmd.Line)
	it.state.SRBlock = srb
	return nil
}

// replicates the buffered operations
func (it *Interpreter) closeSR() {
	srb := it.state.SRBlock
	it.state.SRBlock = nil
	if glog.V(1) {
		glog.Infoln(srb.String())
	}
	if srb.NSteps() == 0 {
		glog.Warningln("step and repeat block without operations:", srb.String())
	}
	for _, off := range srb.Offsets() {
		for _, op := range it.srBuffer {
			if srb.IsIdentity() {
				it.emit(op)
				continue
			}
			it.emit(op.Offset(off))
		}
	}
	it.srBuffer = nil
}

// decodes the target point and the arc center offset
func (it *Interpreter) coordinates(c *gerberlexer.Coords) (target xy.XY, offset xy.XY, err error) {
	fs := &it.state.Format
	target = it.state.Pos
	var v float64
	incremental := fs.Notation == NotationIncremental
	if c.Has(gerberlexer.HasX) {
		if v, err = fs.DecodeX(c.X); err != nil {
			return
		}
		if incremental {
			target.X += v
		} else {
			target.X = v
		}
	}
	if c.Has(gerberlexer.HasY) {
		if v, err = fs.DecodeY(c.Y); err != nil {
			return
		}
		if incremental {
			target.Y += v
		} else {
			target.Y = v
		}
	}
	if c.Has(gerberlexer.HasI) {
		if offset.X, err = fs.DecodeX(c.I); err != nil {
			return
		}
	}
	if c.Has(gerberlexer.HasJ) {
		if offset.Y, err = fs.DecodeY(c.J); err != nil {
			return
		}
	}
	return
}

func (it *Interpreter) operate(cmd *gerberlexer.GerberCommand) error {
	state := it.state
	if !state.Format.HasFormat() {
		return diag.NewError(diag.KindFormat, cmd.Line, "coordinate data before %%FS")
	}
	if !state.Format.HasUnits() {
		return diag.NewError(diag.KindFormat, cmd.Line, "coordinate data before %%MO")
	}
	target, offset, err := it.coordinates(&cmd.Coords)
	if err != nil {
		it.syntax(cmd, "%v in %q", err, cmd.Body)
		return nil
	}

	var action ActType
	switch cmd.Id {
	case gerberlexer.D01:
		action = OpcodeD01_DRAW
	case gerberlexer.D02:
		action = OpcodeD02_MOVE
	case gerberlexer.D03:
		action = OpcodeD03_FLASH
	default:
		action = it.lastAction
		if action == 0 {
			action = OpcodeD01_DRAW
		}
		glog.Warningln("implicit", action.String(), "at line", cmd.Line)
	}
	it.lastAction = action

	from := state.Pos
	state.Pos = target

	if state.InRegion() {
		switch action {
		case OpcodeD02_MOVE:
			state.Region.MoveTo(target)
		case OpcodeD01_DRAW:
			if state.IpMode == IPModeLinear {
				state.Region.LineTo(from, target)
				break
			}
			center, sweep, ok := it.resolveArc(cmd, from, target, offset)
			if !ok {
				state.Region.LineTo(from, target)
				break
			}
			state.Region.ArcTo(from, target, center, state.IpMode, sweep)
		case OpcodeD03_FLASH:
			it.syntax(cmd, "flash inside a region ignored")
		}
		return nil
	}

	switch action {
	case OpcodeD02_MOVE:
		return nil
	case OpcodeD01_DRAW:
		apert, err := it.aperture(cmd)
		if apert == nil {
			return err
		}
		op := &DrawOperation{Kind: OpStroke, Line: cmd.Line, Polarity: state.Polarity, From: from, To: target, Aperture: apert}
		if state.IpMode != IPModeLinear {
			if center, sweep, ok := it.resolveArc(cmd, from, target, offset); ok {
				op.Kind = OpArc
				op.Center = center
				op.Sweep = sweep
				op.Direction = state.IpMode
			}
		}
		it.emit(op)
	case OpcodeD03_FLASH:
		apert, err := it.aperture(cmd)
		if apert == nil {
			return err
		}
		it.emit(&DrawOperation{Kind: OpFlash, Line: cmd.Line, Polarity: state.Polarity, From: target, To: target, Aperture: apert})
	}
	return nil
}

// aperture returns the current aperture if it can be drawn.
// A nil aperture with a nil error means the operation is skipped.
func (it *Interpreter) aperture(cmd *gerberlexer.GerberCommand) (*apertures.Aperture, error) {
	code := it.state.CurrentApCode
	if code == 0 {
		it.log.Add(diag.KindUndefinedAperture, cmd.Line, "no aperture selected")
		return nil, nil
	}
	apert, ok := it.apertures.Lookup(code)
	if !ok {
		it.log.Add(diag.KindUndefinedAperture, cmd.Line, "aperture D%d is not defined", code)
		return nil, nil
	}
	it.state.CurrentAp = apert
	if !apert.IsSupported() {
		if it.cfg.StrictApertures {
			return nil, diag.NewError(diag.KindUnsupportedAperture, cmd.Line, "aperture D%d (%s) is not supported", code, apert.Type)
		}
		it.log.Add(diag.KindUnsupportedAperture, cmd.Line, "aperture D%d (%s) is not supported, skipped", code, apert.Type)
		return nil, nil
	}
	return apert, nil
}

/*
	resolveArc finds the center and the signed sweep of the arc from -> to.
	Multi quadrant: the offset is signed, equal end points give a full circle.
	Single quadrant: the offset is unsigned, the center is the one giving an arc
	not larger than 90 degrees with the smallest radius difference.
	An arc whose radii differ more than the tolerance is reported, ok is false.
*/
func (it *Interpreter) resolveArc(cmd *gerberlexer.GerberCommand, from, to, offset xy.XY) (center xy.XY, sweep float64, ok bool) {
	cw := it.state.IpMode == IPModeCwC
	tol := it.cfg.ArcRadiusTolerance
	mismatch := math.Inf(1)

	if it.state.QMode == QuadModeSingle {
		for _, sx := range []float64{1, -1} {
			for _, sy := range []float64{1, -1} {
				c := from.Add(xy.NewXY(sx*math.Abs(offset.X), sy*math.Abs(offset.Y)))
				r := from.Distance(c)
				if r == 0 {
					continue
				}
				_, s := xy.ArcSweep(from, to, c, cw, false)
				if math.Abs(s) > math.Pi/2+1e-9 {
					continue
				}
				if m := math.Abs(r - to.Distance(c)); m < mismatch {
					mismatch, center, sweep = m, c, s
				}
			}
		}
	} else {
		center = from.Add(offset)
		if r := from.Distance(center); r > 0 {
			mismatch = math.Abs(r - to.Distance(center))
			_, sweep = xy.ArcSweep(from, to, center, cw, true)
		}
	}
	if math.IsInf(mismatch, 1) {
		it.log.Add(diag.KindArcConsistency, cmd.Line, "no valid center for the arc, drawn as a line")
		return center, 0, false
	}
	if mismatch > tol {
		it.log.Add(diag.KindArcConsistency, cmd.Line, "arc radius mismatch %.4f mm, drawn as a line", mismatch)
		return center, 0, false
	}
	return center, sweep, true
}

var imageDefaults = map[gerberlexer.GerberCommandId]string{
	gerberlexer.IP: "POS",
	gerberlexer.MI: "A0B0",
	gerberlexer.OF: "A0B0",
	gerberlexer.SF: "A1B1",
	gerberlexer.IR: "0",
	gerberlexer.AS: "AXBY",
	gerberlexer.LM: "N",
	gerberlexer.LR: "0",
	gerberlexer.LS: "1",
}

// true if the legacy image parameter does not change the image
func isDefaultImageParameter(cmd *gerberlexer.GerberCommand) bool {
	val := strings.ToUpper(strings.ReplaceAll(cmd.Name, " ", ""))
	def := imageDefaults[cmd.Id]
	if val == def {
		return true
	}
	switch cmd.Id {
	case gerberlexer.IR, gerberlexer.LR, gerberlexer.LS:
		v, err := strconv.ParseFloat(val, 64)
		d, _ := strconv.ParseFloat(def, 64)
		return err == nil && v == d
	case gerberlexer.MI, gerberlexer.OF, gerberlexer.SF:
		return letterValuesEqual(val, def)
	}
	return false
}

// compares "A0.0B0" with "A0B0"
func letterValuesEqual(val, def string) bool {
	a, ok1 := letterValues(val)
	b, ok2 := letterValues(def)
	if !ok1 || !ok2 || len(a) != len(b) {
		return false
	}
	for k, v := range b {
		if a[k] != v {
			return false
		}
	}
	return true
}

func letterValues(s string) (map[byte]float64, bool) {
	retVal := make(map[byte]float64)
	for len(s) > 0 {
		letter := s[0]
		if letter < 'A' || letter > 'Z' {
			return nil, false
		}
		j := 1
		for j < len(s) && strings.IndexByte("0123456789+-.", s[j]) >= 0 {
			j++
		}
		v, err := strconv.ParseFloat(s[1:j], 64)
		if err != nil {
			return nil, false
		}
		retVal[letter] = v
		s = s[j:]
	}
	return retVal, true
}
