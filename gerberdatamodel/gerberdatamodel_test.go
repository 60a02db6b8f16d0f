package gerberdatamodel

import (
	"errors"
	"flag"
	"math"
	"os"
	"testing"
	"time"

	"github.com/akavel/polyclip-go"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/apertures"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/diag"
	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberstates"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/regions"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

func TestMain(m *testing.M) {
	flag.Set("stderrthreshold", "ERROR")
	flag.Set("logtostderr", "true")
	flag.Parse()
	os.Exit(m.Run())
}

func circleAp(d float64) *apertures.Aperture {
	return &apertures.Aperture{Code: 10, Type: AptypeCircle, Diameter: d}
}

func flashOp(ap *apertures.Aperture, at xy.XY, pol PolType) *gerberstates.DrawOperation {
	return &gerberstates.DrawOperation{Kind: gerberstates.OpFlash, Polarity: pol, From: at, To: at, Aperture: ap}
}

func squareRegion(x0, y0, size float64, pol PolType) *gerberstates.DrawOperation {
	r := regions.NewRegion(1)
	r.MoveTo(xy.NewXY(x0, y0))
	r.LineTo(xy.NewXY(x0, y0), xy.NewXY(x0+size, y0))
	r.LineTo(xy.NewXY(x0+size, y0), xy.NewXY(x0+size, y0+size))
	r.LineTo(xy.NewXY(x0+size, y0+size), xy.NewXY(x0, y0+size))
	r.LineTo(xy.NewXY(x0, y0+size), xy.NewXY(x0, y0))
	r.Close(2)
	r.Polarity = pol
	return &gerberstates.DrawOperation{Kind: gerberstates.OpRegion, Polarity: pol, Region: r}
}

func build(ops ...*gerberstates.DrawOperation) (*Geometry, *diag.Log) {
	log := diag.NewLog()
	b := NewBuilder(DefaultConfig(), log)
	for _, op := range ops {
		b.Add(op)
	}
	return b.Geometry(1.0, UnitsMM), log
}

func TestArcTessellationBound(t *testing.T) {
	for _, tol := range []float64{0.001, 0.01, 0.05, 0.2} {
		cfg := Config{ArcTolerance: tol, MinCircleSegments: 8}
		if cfg.CircleSegments() < 8 {
			t.Fatal("less than the minimal number of segments")
		}
		for _, sweep := range []float64{0.05, math.Pi / 2, math.Pi, -3, 2 * math.Pi} {
			for _, r := range []float64{0.1, 1, 50} {
				n := cfg.ArcSegments(sweep)
				if dev := ChordDeviation(r, sweep, n); dev > tol*r+1e-12 {
					t.Errorf("tol %v sweep %v r %v: deviation %v with %d segments", tol, sweep, r, dev, n)
				}
				// measured on the generated points
				pts := ArcPoints(xy.XY{}, r, 0.3, sweep, n)
				for i := 1; i < len(pts); i++ {
					mid := xy.NewXY((pts[i-1].X+pts[i].X)/2, (pts[i-1].Y+pts[i].Y)/2)
					if r-mid.Hypot() > tol*r+1e-12 {
						t.Errorf("chord %d of sweep %v deviates %v", i, sweep, r-mid.Hypot())
					}
				}
			}
		}
	}
}

func TestSanitize(t *testing.T) {
	var td = []struct {
		input  []xy.XY
		answer int // vertices left, 0 if discarded
	}{
		{[]xy.XY{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}, 4},
		{[]xy.XY{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}}, 4},
		{[]xy.XY{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 0}}, 0},
		{[]xy.XY{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 1}, {X: 0, Y: 1}}, 4},
		{[]xy.XY{{X: 0, Y: 0}, {X: 1, Y: 1}}, 0},
		{[]xy.XY{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: math.NaN(), Y: 1}}, 0},
	}
	for i, d := range td {
		res, ok := Sanitize(d.input)
		if len(res) != d.answer || ok != (d.answer > 0) {
			t.Error(i, ": got", res, ok)
			continue
		}
		if !ok {
			continue
		}
		again, ok := Sanitize(res)
		if !ok || len(again) != len(res) {
			t.Error(i, ": sanitize is not idempotent", res, again)
			continue
		}
		for k := range res {
			if !again[k].Equals(res[k], 0) {
				t.Error(i, ": sanitize is not idempotent", res, again)
				break
			}
		}
	}
}

func TestSanitizeUnionFixedPoint(t *testing.T) {
	g, _ := build(squareRegion(0, 0, 10, PolTypeDark), squareRegion(5, 5, 10, PolTypeDark))
	loops := make([][]xy.XY, 0)
	for _, s := range g.Shapes {
		loops = append(loops, s.Outer)
	}
	// feeding the result back gives the same outline
	b := NewBuilder(DefaultConfig(), nil)
	for _, l := range loops {
		r := regions.NewRegion(1)
		r.MoveTo(l[0])
		for i := 1; i <= len(l); i++ {
			r.LineTo(l[i-1], l[i%len(l)])
		}
		b.Add(&gerberstates.DrawOperation{Kind: gerberstates.OpRegion, Polarity: PolTypeDark, Region: r})
	}
	g2 := b.Geometry(1.0, UnitsMM)
	if math.Abs(g.Area()-g2.Area()) > 1e-9 || len(g.Shapes) != len(g2.Shapes) {
		t.Fatal("union of a sanitized outline is not a fixed point", g.Area(), g2.Area())
	}
}

func TestPolarityOrder(t *testing.T) {
	p := xy.NewXY(3, 4)
	darkThenClear, _ := build(flashOp(circleAp(1), p, PolTypeDark), flashOp(circleAp(2), p, PolTypeClear))
	clearThenDark, _ := build(flashOp(circleAp(2), p, PolTypeClear), flashOp(circleAp(1), p, PolTypeDark))
	if darkThenClear.ContainsPoint(p) {
		t.Error("dark then clear must leave no copper")
	}
	if !clearThenDark.ContainsPoint(p) {
		t.Error("clear then dark must leave copper")
	}
	if darkThenClear.Area() == clearThenDark.Area() {
		t.Error("the order of polarities must matter")
	}
}

func TestRegionArea(t *testing.T) {
	g, log := build(squareRegion(0, 0, 10, PolTypeDark), squareRegion(5, 5, 10, PolTypeClear))
	if log.Len() != 0 {
		t.Fatal("unexpected warnings", log.Warnings())
	}
	if math.Abs(g.Area()-75) > 1e-6 {
		t.Fatal("area must be 100 - 25, got", g.Area())
	}
	g, _ = build(squareRegion(0, 0, 10, PolTypeDark), squareRegion(5, 5, 10, PolTypeDark))
	if math.Abs(g.Area()-175) > 1e-6 || len(g.Shapes) != 1 {
		t.Fatal("union area must be 175, got", g.Area())
	}
	g, _ = build(squareRegion(0, 0, 10, PolTypeDark), squareRegion(20, 0, 10, PolTypeDark))
	if math.Abs(g.Area()-200) > 1e-6 || len(g.Shapes) != 2 {
		t.Fatal("two disjoint squares expected, got", len(g.Shapes), g.Area())
	}
}

func TestHoles(t *testing.T) {
	g, _ := build(squareRegion(0, 0, 10, PolTypeDark), squareRegion(4, 4, 2, PolTypeClear))
	if len(g.Shapes) != 1 || len(g.Shapes[0].Holes) != 1 {
		t.Fatal("expected one shape with one hole", g.Shapes)
	}
	s := g.Shapes[0]
	if SignedArea(s.Outer) <= 0 || SignedArea(s.Holes[0]) >= 0 {
		t.Fatal("outer loops must be counter-clockwise and holes clockwise")
	}
	if g.ContainsPoint(xy.NewXY(5, 5)) || !g.ContainsPoint(xy.NewXY(1, 1)) {
		t.Fatal("bad point classification")
	}
	if math.Abs(g.Area()-96) > 1e-6 {
		t.Fatal("area", g.Area())
	}
}

func TestShapes(t *testing.T) {
	var td = []struct {
		op     *gerberstates.DrawOperation
		answer float64
		tol    float64 // relative
	}{
		{flashOp(&apertures.Aperture{Type: AptypeRectangle, XSize: 2, YSize: 1}, xy.NewXY(1, 1), PolTypeDark), 2, 1e-9},
		{flashOp(&apertures.Aperture{Type: AptypeObround, XSize: 2, YSize: 1}, xy.NewXY(1, 1), PolTypeDark), 1 + math.Pi/4, 0.01},
		{flashOp(&apertures.Aperture{Type: AptypeObround, XSize: 1, YSize: 3}, xy.NewXY(1, 1), PolTypeDark), 2 + math.Pi/4, 0.01},
		{flashOp(&apertures.Aperture{Type: AptypePoly, Diameter: 2, Vertices: 6, RotAngle: 15}, xy.NewXY(0, 0), PolTypeDark), 3 * math.Sqrt(3) / 2, 1e-9},
		{flashOp(circleAp(2), xy.NewXY(0, 0), PolTypeDark), math.Pi, 0.02},
		{&gerberstates.DrawOperation{Kind: gerberstates.OpStroke, Polarity: PolTypeDark, From: xy.NewXY(0, 0), To: xy.NewXY(10, 0),
			Aperture: &apertures.Aperture{Type: AptypeRectangle, XSize: 1, YSize: 1}}, 11, 1e-9},
		{&gerberstates.DrawOperation{Kind: gerberstates.OpStroke, Polarity: PolTypeDark, From: xy.NewXY(0, 0), To: xy.NewXY(0, 10),
			Aperture: circleAp(1)}, 10 + math.Pi/4, 0.01},
		{&gerberstates.DrawOperation{Kind: gerberstates.OpArc, Polarity: PolTypeDark, From: xy.NewXY(5, 0), To: xy.NewXY(0, 5),
			Center: xy.NewXY(0, 0), Sweep: math.Pi / 2, Direction: IPModeCCwC, Aperture: circleAp(1)}, math.Pi/2*5 + math.Pi/4, 0.02},
		{&gerberstates.DrawOperation{Kind: gerberstates.OpArc, Polarity: PolTypeDark, From: xy.NewXY(0, 5), To: xy.NewXY(5, 0),
			Center: xy.NewXY(0, 0), Sweep: -math.Pi / 2, Direction: IPModeCwC, Aperture: circleAp(1)}, math.Pi/2*5 + math.Pi/4, 0.02},
		{&gerberstates.DrawOperation{Kind: gerberstates.OpArc, Polarity: PolTypeDark, From: xy.NewXY(5, 0), To: xy.NewXY(5, 0),
			Center: xy.NewXY(0, 0), Sweep: 2 * math.Pi, Direction: IPModeCCwC, Aperture: circleAp(1)}, 2 * math.Pi * 5, 0.03},
		{&gerberstates.DrawOperation{Kind: gerberstates.OpArc, Polarity: PolTypeDark, From: xy.NewXY(5, 0), To: xy.NewXY(0, -5),
			Center: xy.NewXY(0, 0), Sweep: 1.5 * math.Pi, Direction: IPModeCCwC, Aperture: circleAp(1)}, 1.5*math.Pi*5 + math.Pi/4, 0.02},
	}
	for i, d := range td {
		g, log := buildWithin(t, 10*time.Second, d.op)
		if log.Len() != 0 {
			t.Error(i, ": unexpected warnings", log.Warnings())
		}
		if a := g.Area(); math.Abs(a-d.answer) > d.tol*d.answer {
			t.Error(i, ":", d.op.Kind, "area", a, "expected", d.answer)
		}
	}
}

func TestDegenerate(t *testing.T) {
	g, log := build(flashOp(circleAp(0), xy.NewXY(0, 0), PolTypeDark),
		flashOp(nil, xy.NewXY(0, 0), PolTypeDark),
		flashOp(circleAp(1), xy.NewXY(0, 0), PolTypeDark))
	if log.Count(diag.KindGeometryDegenerate) != 2 {
		t.Fatal("expected two excluded operations", log.Warnings())
	}
	if len(g.Shapes) != 1 {
		t.Fatal("the valid flash must be kept")
	}

	r := regions.NewRegion(1)
	r.MoveTo(xy.NewXY(0, 0))
	r.LineTo(xy.NewXY(0, 0), xy.NewXY(4, 2))
	r.LineTo(xy.NewXY(4, 2), xy.NewXY(4, 0))
	r.LineTo(xy.NewXY(4, 0), xy.NewXY(0, 3))
	r.LineTo(xy.NewXY(0, 3), xy.NewXY(0, 0))
	_, log = build(&gerberstates.DrawOperation{Kind: gerberstates.OpRegion, Polarity: PolTypeDark, Region: r})
	if log.Count(diag.KindGeometryDegenerate) != 1 {
		t.Fatal("self-intersection must be reported", log.Warnings())
	}
}

func TestExtrude(t *testing.T) {
	g, _ := build(squareRegion(0, 0, 10, PolTypeDark), squareRegion(4, 4, 2, PolTypeClear))
	g.Thickness = 0.5
	m, err := Extrude(g)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.Volume()-96*0.5) > 1e-6 {
		t.Fatal("volume", m.Volume())
	}
	if len(m.Vertices) != 16 || len(m.Triangles) != 32 {
		t.Fatal("vertices", len(m.Vertices), "triangles", len(m.Triangles))
	}
	up, down := 0, 0
	for i := range m.Triangles {
		n := m.Normal(i)
		switch {
		case n.Z() > 0.99:
			up++
		case n.Z() < -0.99:
			down++
		}
	}
	if up != 8 || down != 8 {
		t.Fatal("caps", up, down)
	}

	g.Thickness = 0
	if _, err := Extrude(g); err == nil {
		t.Fatal("zero thickness must fail")
	}
}

func TestGeometryUnits(t *testing.T) {
	b := NewBuilder(DefaultConfig(), nil)
	b.Add(squareRegion(0, 0, 25.4, PolTypeDark))
	g := b.Geometry(0.035, UnitsInch)
	lo, hi := g.Bounds()
	if g.Units != UnitsInch || !lo.Equals(xy.NewXY(0, 0), 1e-9) || !hi.Equals(xy.NewXY(1, 1), 1e-9) {
		t.Fatal("bad inch geometry", lo, hi)
	}
	if math.Abs(g.Thickness-0.035/25.4) > 1e-12 {
		t.Fatal("thickness", g.Thickness)
	}
}

func arcOp(from, to, center xy.XY, sweep float64, d float64) *gerberstates.DrawOperation {
	dir := IPModeCCwC
	if sweep < 0 {
		dir = IPModeCwC
	}
	return &gerberstates.DrawOperation{Kind: gerberstates.OpArc, Polarity: PolTypeDark, From: from, To: to,
		Center: center, Sweep: sweep, Direction: dir, Aperture: circleAp(d)}
}

// the builder must return within the deadline
func buildWithin(t *testing.T, d time.Duration, ops ...*gerberstates.DrawOperation) (*Geometry, *diag.Log) {
	t.Helper()
	type built struct {
		g   *Geometry
		log *diag.Log
	}
	done := make(chan built, 1)
	go func() {
		g, log := build(ops...)
		done <- built{g, log}
	}()
	select {
	case b := <-done:
		return b.g, b.log
	case <-time.After(d):
		t.Fatal("builder did not return in", d)
	}
	return nil, nil
}

func TestArcs_LongSweeps(t *testing.T) {
	c := xy.NewXY(0, 0)
	var td = []struct {
		name   string
		op     *gerberstates.DrawOperation
		answer float64
	}{
		{"full circle ccw", arcOp(xy.NewXY(5, 0), xy.NewXY(5, 0), c, 2*math.Pi, 1), 10 * math.Pi},
		{"full circle cw", arcOp(xy.NewXY(0, 5), xy.NewXY(0, 5), c, -2*math.Pi, 1), 10 * math.Pi},
		{"270 degrees", arcOp(xy.NewXY(5, 0), xy.NewXY(0, -5), c, 1.5*math.Pi, 1), 1.5*math.Pi*5 + math.Pi/4},
		{"270 degrees cw", arcOp(xy.NewXY(0, -5), xy.NewXY(5, 0), c, -1.5*math.Pi, 1), 1.5*math.Pi*5 + math.Pi/4},
		{"200 degrees", arcOp(xy.NewXY(5, 0), xy.ArcPoint(c, 5, math.Pi*10/9), c, math.Pi*10/9, 0.5), math.Pi*10/9*5*0.5 + math.Pi/16},
	}
	for _, d := range td {
		g, log := buildWithin(t, 10*time.Second, d.op)
		if log.Len() != 0 {
			t.Error(d.name, ": unexpected warnings", log.Warnings())
		}
		if a := g.Area(); math.Abs(a-d.answer) > 0.02*d.answer {
			t.Error(d.name, ": area", a, "expected", d.answer)
		}
	}

	g, _ := buildWithin(t, 10*time.Second, arcOp(xy.NewXY(5, 0), xy.NewXY(5, 0), c, 2*math.Pi, 1))
	if len(g.Shapes) != 1 || len(g.Shapes[0].Holes) != 1 || g.ContainsPoint(c) || !g.ContainsPoint(xy.NewXY(0, 5)) {
		t.Fatal("full circle must be a ring", g.Shapes)
	}
}

// caps of an almost closed arc overlap across the gap
func TestArcs_OverlappingCaps(t *testing.T) {
	c := xy.NewXY(0, 0)
	sweep := 350 * math.Pi / 180
	from := xy.NewXY(1, 0)
	g, log := buildWithin(t, 10*time.Second, arcOp(from, xy.ArcPoint(c, 1, sweep), c, sweep, 1))
	if log.Len() != 0 {
		t.Fatal("unexpected warnings", log.Warnings())
	}
	if len(g.Shapes) != 1 || len(g.Shapes[0].Holes) != 1 {
		t.Fatal("expected one shape with one hole", len(g.Shapes))
	}
	if g.ContainsPoint(c) {
		t.Error("the center is not reached by the tool")
	}
	if !g.ContainsPoint(xy.ArcPoint(c, 1, sweep+5*math.Pi/180)) {
		t.Error("the gap must be covered by the caps")
	}
	ring := math.Pi * (1.5*1.5 - 0.5*0.5)
	if a := g.Area(); a < 0.95*ring*sweep/(2*math.Pi) || a > ring {
		t.Error("area", a, "out of range")
	}
}

// consecutive arcs share the cap points, copper may not vanish silently
func TestArcs_Chained(t *testing.T) {
	c := xy.NewXY(0, 0)
	ops := make([]*gerberstates.DrawOperation, 0, 4)
	for i := 0; i < 4; i++ {
		a := float64(i) * math.Pi / 2
		ops = append(ops, arcOp(xy.ArcPoint(c, 5, a), xy.ArcPoint(c, 5, a+math.Pi/2), c, math.Pi/2, 1))
	}
	g, log := buildWithin(t, 10*time.Second, ops...)
	answer := 10 * math.Pi
	a := g.Area()
	if log.Count(diag.KindGeometryDegenerate) == 0 && math.Abs(a-answer) > 0.03*answer {
		t.Fatal("area", a, "expected", answer, "and no warning was recorded")
	}
	if log.Len() != 0 {
		t.Log("degraded:", log.Warnings())
	}
	for i := 0; i < 8; i++ {
		p := xy.ArcPoint(c, 5, float64(i)*math.Pi/4+0.1)
		if log.Len() == 0 && !g.ContainsPoint(p) {
			t.Error("point", p, "of the ring is not covered")
		}
	}
}

func TestPlausible(t *testing.T) {
	square := func(x0, y0, size float64) polyclip.Polygon {
		return polyclip.Polygon{toContour([]xy.XY{{X: x0, Y: y0}, {X: x0 + size, Y: y0}, {X: x0 + size, Y: y0 + size}, {X: x0, Y: y0 + size}})}
	}
	a, b := square(0, 0, 10), square(5, 5, 10)
	union := a.Construct(polyclip.UNION, b)
	if !plausible(a, polyclip.UNION, b, union) {
		t.Fatal("a correct union rejected")
	}
	if plausible(a, polyclip.UNION, b, a) {
		t.Fatal("a union without the clip accepted")
	}
	diff := a.Construct(polyclip.DIFFERENCE, b)
	if !plausible(a, polyclip.DIFFERENCE, b, diff) {
		t.Fatal("a correct difference rejected")
	}
	if plausible(a, polyclip.DIFFERENCE, b, a) {
		t.Fatal("a difference keeping the clip accepted")
	}
	// a union of touched contours keeps the untouched ones
	bld := NewBuilder(DefaultConfig(), nil)
	bld.Add(squareRegion(0, 0, 10, PolTypeDark))
	bld.Add(squareRegion(100, 0, 10, PolTypeDark))
	bld.Add(squareRegion(5, 5, 10, PolTypeDark))
	if g := bld.Geometry(1, UnitsMM); len(g.Shapes) != 2 || math.Abs(g.Area()-275) > 1e-6 {
		t.Fatal("unexpected composite", len(g.Shapes), g.Area())
	}
}

func TestConfig_Validate(t *testing.T) {
	var td = []struct {
		cfg Config
		bad bool
	}{
		{DefaultConfig(), false},
		{Config{ArcTolerance: 0, MinCircleSegments: 8}, true},
		{Config{ArcTolerance: 1, MinCircleSegments: 8}, true},
		{Config{ArcTolerance: 1e-9, MinCircleSegments: 8}, true},
		{Config{ArcTolerance: 0.5, MinCircleSegments: 0}, false},
	}
	for i, d := range td {
		err := d.cfg.Validate()
		if (err != nil) != d.bad {
			t.Error(i, ": unexpected result", err)
		}
		if err != nil && !errors.Is(err, ErrBadConfig) {
			t.Error(i, ": not ErrBadConfig", err)
		}
	}
	if n := (Config{ArcTolerance: 1e-9}).CircleSegments(); n != maxCircleSegments {
		t.Error("segments must be capped, got", n)
	}
}
