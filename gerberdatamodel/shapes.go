package gerberdatamodel

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/apertures"
	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberstates"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

var (
	ErrNoAperture    = errors.New("operation has no aperture")
	ErrZeroSize      = errors.New("aperture has zero size")
	ErrEmptyRegion   = errors.New("region has no contours")
	ErrUnknownOpKind = errors.New("unknown operation")
	ErrBadConfig     = errors.New("bad geometry configuration")
)

const maxCircleSegments = 4096

// sweeps this close to a full turn are full circles
const angleEps = 1e-9

type Config struct {
	ArcTolerance      float64 // max chord deviation relative to the radius
	MinCircleSegments int
}

func DefaultConfig() Config {
	return Config{ArcTolerance: 0.01, MinCircleSegments: 8}
}

// chords of a full circle the tolerance asks for, before the cap
func (cfg Config) wantedSegments() int {
	n := max(cfg.MinCircleSegments, 3)
	if cfg.ArcTolerance > 0 && cfg.ArcTolerance < 1 {
		n = max(n, int(math.Ceil(math.Pi/math.Acos(1-cfg.ArcTolerance))))
	}
	return n
}

// CircleSegments is the number of chords approximating a full circle.
// Beyond maxCircleSegments the chord deviation bound does not hold, Validate reports that.
func (cfg Config) CircleSegments() int {
	return min(cfg.wantedSegments(), maxCircleSegments)
}

// Validate reports a tolerance outside (0, 1) and a tolerance too fine for the segment cap
func (cfg Config) Validate() error {
	if cfg.ArcTolerance <= 0 || cfg.ArcTolerance >= 1 {
		return fmt.Errorf("%w: arc tolerance %v is not in (0, 1)", ErrBadConfig, cfg.ArcTolerance)
	}
	if n := cfg.wantedSegments(); n > maxCircleSegments {
		return fmt.Errorf("%w: arc tolerance %v needs %d chords per circle, at most %d are made",
			ErrBadConfig, cfg.ArcTolerance, n, maxCircleSegments)
	}
	return nil
}

// ArcSegments is the number of chords of an arc, at least one
func (cfg Config) ArcSegments(sweep float64) int {
	n := int(math.Ceil(math.Abs(sweep)*float64(cfg.CircleSegments())/(2*math.Pi) - 1e-9))
	if n < 1 {
		n = 1
	}
	return n
}

// ArcPoints returns n+1 points of the arc, both ends included
func ArcPoints(center xy.XY, radius, start, sweep float64, n int) []xy.XY {
	retVal := make([]xy.XY, 0, n+1)
	for i := 0; i <= n; i++ {
		retVal = append(retVal, xy.ArcPoint(center, radius, start+sweep*float64(i)/float64(n)))
	}
	return retVal
}

// ChordDeviation is the largest distance between the arc and its n chords
func ChordDeviation(radius, sweep float64, n int) float64 {
	return radius * (1 - math.Cos(math.Abs(sweep)/float64(2*n)))
}

// counter-clockwise circle without the closing point
func (cfg Config) circle(center xy.XY, radius float64) []xy.XY {
	n := cfg.CircleSegments()
	pts := ArcPoints(center, radius, 0, 2*math.Pi, n)
	return pts[:n]
}

// outline of the aperture centered at the origin, counter-clockwise
func (cfg Config) footprint(ap *apertures.Aperture) ([]xy.XY, error) {
	if ap == nil {
		return nil, ErrNoAperture
	}
	origin := xy.XY{}
	switch ap.Type {
	case AptypeCircle:
		if ap.Diameter <= 0 {
			return nil, ErrZeroSize
		}
		return cfg.circle(origin, ap.Diameter/2), nil
	case AptypeRectangle:
		if ap.XSize <= 0 || ap.YSize <= 0 {
			return nil, ErrZeroSize
		}
		w, h := ap.XSize/2, ap.YSize/2
		return []xy.XY{xy.NewXY(-w, -h), xy.NewXY(w, -h), xy.NewXY(w, h), xy.NewXY(-w, h)}, nil
	case AptypeObround:
		if ap.XSize <= 0 || ap.YSize <= 0 {
			return nil, ErrZeroSize
		}
		return cfg.obround(ap.XSize, ap.YSize), nil
	case AptypePoly:
		if ap.Diameter <= 0 {
			return nil, ErrZeroSize
		}
		rot := mgl64.Rotate2D(mgl64.DegToRad(ap.RotAngle))
		retVal := make([]xy.XY, 0, ap.Vertices)
		for i := 0; i < ap.Vertices; i++ {
			v := mgl64.Rotate2D(2 * math.Pi * float64(i) / float64(ap.Vertices)).Mul2x1(mgl64.Vec2{ap.Diameter / 2, 0})
			retVal = append(retVal, xy.FromVec2(rot.Mul2x1(v)))
		}
		return retVal, nil
	}
	return nil, apertures.ErrBadAperture
}

// stadium with the round ends on the shorter side
func (cfg Config) obround(w, h float64) []xy.XY {
	if w == h {
		return cfg.circle(xy.XY{}, w/2)
	}
	r := min(w, h) / 2
	half := cfg.ArcSegments(math.Pi)
	var c0, c1 xy.XY
	var a0 float64
	if w > h {
		c0, c1 = xy.NewXY(w/2-r, 0), xy.NewXY(-(w/2 - r), 0)
		a0 = -math.Pi / 2
	} else {
		c0, c1 = xy.NewXY(0, h/2-r), xy.NewXY(0, -(h/2 - r))
		a0 = 0
	}
	retVal := ArcPoints(c0, r, a0, math.Pi, half)
	return append(retVal, ArcPoints(c1, r, a0+math.Pi, math.Pi, half)...)
}

func translate(pts []xy.XY, d xy.XY) []xy.XY {
	retVal := make([]xy.XY, len(pts))
	for i := range pts {
		retVal[i] = pts[i].Add(d)
	}
	return retVal
}

func cross(o, a, b xy.XY) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// ConvexHull returns the counter-clockwise hull of the points (monotone chain)
func ConvexHull(pts []xy.XY) []xy.XY {
	p := make([]xy.XY, len(pts))
	copy(p, pts)
	sort.Slice(p, func(i, j int) bool {
		if p[i].X != p[j].X {
			return p[i].X < p[j].X
		}
		return p[i].Y < p[j].Y
	})
	if len(p) < 3 {
		return p
	}
	hull := make([]xy.XY, 0, 2*len(p))
	for _, pt := range p {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], pt) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	lower := len(hull) + 1
	for i := len(p) - 2; i >= 0; i-- {
		pt := p[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], pt) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	return hull[:len(hull)-1]
}

// the area swept by the aperture moving along the segment
func (cfg Config) stroke(ap *apertures.Aperture, from, to xy.XY) ([]Shape, error) {
	fp, err := cfg.footprint(ap)
	if err != nil {
		return nil, err
	}
	pts := append(translate(fp, from), translate(fp, to)...)
	return []Shape{{Outer: ConvexHull(pts)}}, nil
}

// the area swept by a round tool of the aperture width along the arc
func (cfg Config) arc(ap *apertures.Aperture, from, center xy.XY, sweep float64) ([]Shape, error) {
	if ap == nil {
		return nil, ErrNoAperture
	}
	h := ap.Width() / 2
	if h <= 0 {
		return nil, ErrZeroSize
	}
	radius := from.Distance(center)
	start := math.Atan2(from.Y-center.Y, from.X-center.X)
	if sweep < 0 {
		start, sweep = start+sweep, -sweep
	}
	if sweep >= 2*math.Pi-angleEps {
		return []Shape{cfg.ring(center, radius, h)}, nil
	}
	if radius <= h {
		// the tool covers the center all the way
		p0 := xy.ArcPoint(center, radius, start)
		p1 := xy.ArcPoint(center, radius, start+sweep)
		pts := ArcPoints(center, radius+h, start, sweep, cfg.ArcSegments(sweep))
		pts = append(pts, cfg.circle(p0, h)...)
		pts = append(pts, cfg.circle(p1, h)...)
		return []Shape{{Outer: ConvexHull(pts)}}, nil
	}
	gap := 2*math.Pi - sweep
	if sweep > math.Pi && radius*math.Sin(gap/2) < h {
		return []Shape{cfg.closedBand(center, radius, h, start, sweep)}, nil
	}
	return []Shape{{Outer: cfg.band(center, radius, h, start, sweep)}}, nil
}

// full circle: the disk of radius+h without the disk of radius-h
func (cfg Config) ring(center xy.XY, radius, h float64) Shape {
	retVal := Shape{Outer: cfg.circle(center, radius+h)}
	if radius > h {
		retVal.Holes = [][]xy.XY{reversed(cfg.circle(center, radius-h))}
	}
	return retVal
}

/*
	band is the counter-clockwise outline of half width h around the arc:
	outer chords, end cap, inner chords backwards, start cap.
	The caps must not overlap each other.
*/
func (cfg Config) band(center xy.XY, radius, h, start, sweep float64) []xy.XY {
	end := start + sweep
	p0 := xy.ArcPoint(center, radius, start)
	p1 := xy.ArcPoint(center, radius, end)
	n := cfg.ArcSegments(sweep)
	capN := cfg.ArcSegments(math.Pi)
	retVal := ArcPoints(center, radius+h, start, sweep, n)
	retVal = append(retVal, ArcPoints(p1, h, end, math.Pi, capN)[1:]...)
	retVal = append(retVal, ArcPoints(center, radius-h, end, -sweep, n)[1:]...)
	cap0 := ArcPoints(p0, h, start+math.Pi, math.Pi, capN)
	return append(retVal, cap0[1:len(cap0)-1]...)
}

// angle a moved by whole turns into [from, from+2*pi)
func wrapAngle(a, from float64) float64 {
	a = math.Mod(a-from, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return from + a
}

/*
	closedBand is the outline of an arc longer than a half turn whose caps
	overlap across the gap. The two cap circles cross on the bisector of the
	gap: the outer crossing closes the outer loop, the inner one closes the hole.
*/
func (cfg Config) closedBand(center xy.XY, radius, h, start, sweep float64) Shape {
	end := start + sweep
	gap := 2*math.Pi - sweep
	p0 := xy.ArcPoint(center, radius, start)
	p1 := xy.ArcPoint(center, radius, end)
	half := radius * math.Sin(gap/2)
	rc := radius * math.Cos(gap/2)
	d := math.Sqrt(math.Max(h*h-half*half, 0))
	bisector := end + gap/2
	qOut := xy.ArcPoint(center, rc+d, bisector)
	qIn := xy.ArcPoint(center, rc-d, bisector)

	out1 := wrapAngle(math.Atan2(qOut.Y-p1.Y, qOut.X-p1.X), end)
	in1 := wrapAngle(math.Atan2(qIn.Y-p1.Y, qIn.X-p1.X), end)
	out0 := wrapAngle(math.Atan2(qOut.Y-p0.Y, qOut.X-p0.X), start+math.Pi)
	in0 := wrapAngle(math.Atan2(qIn.Y-p0.Y, qIn.X-p0.X), start+math.Pi)

	n := cfg.ArcSegments(sweep)
	capArc := func(c xy.XY, from, to float64) []xy.XY {
		return ArcPoints(c, h, from, to-from, cfg.ArcSegments(to-from))
	}

	outer := ArcPoints(center, radius+h, start, sweep, n)
	outer = append(outer, capArc(p1, end, out1)[1:]...)
	c0 := capArc(p0, out0, start+2*math.Pi)
	outer = append(outer, c0[1:len(c0)-1]...)

	hole := ArcPoints(center, radius-h, end, -sweep, n)
	hole = append(hole, capArc(p0, start+math.Pi, in0)[1:]...)
	c1 := capArc(p1, in1, end+math.Pi)
	hole = append(hole, c1[1:len(c1)-1]...)

	return Shape{Outer: outer, Holes: [][]xy.XY{hole}}
}

func (cfg Config) flash(ap *apertures.Aperture, at xy.XY) ([]Shape, error) {
	fp, err := cfg.footprint(ap)
	if err != nil {
		return nil, err
	}
	return []Shape{{Outer: translate(fp, at)}}, nil
}

// every contour of the region is a separate filled outline
func (cfg Config) region(op *gerberstates.DrawOperation) ([]Shape, error) {
	if op.Region == nil {
		return nil, ErrEmptyRegion
	}
	contours := op.Region.Contours()
	if len(contours) == 0 {
		return nil, ErrEmptyRegion
	}
	retVal := make([]Shape, 0, len(contours))
	for _, c := range contours {
		pts := []xy.XY{c.Start}
		from := c.Start
		for _, s := range c.Segments {
			if s.Mode == IPModeLinear || s.Sweep == 0 {
				pts = append(pts, s.To)
			} else {
				start := math.Atan2(from.Y-s.Center.Y, from.X-s.Center.X)
				r := from.Distance(s.Center)
				arc := ArcPoints(s.Center, r, start, s.Sweep, cfg.ArcSegments(s.Sweep))
				pts = append(pts, arc[1:len(arc)-1]...)
				pts = append(pts, s.To)
			}
			from = s.To
		}
		retVal = append(retVal, Shape{Outer: pts})
	}
	return retVal, nil
}

// Outlines converts one draw operation into the outlines it covers
func (cfg Config) Outlines(op *gerberstates.DrawOperation) ([]Shape, error) {
	switch op.Kind {
	case gerberstates.OpStroke:
		return cfg.stroke(op.Aperture, op.From, op.To)
	case gerberstates.OpArc:
		if math.Abs(op.Sweep) < 1e-12 {
			return cfg.stroke(op.Aperture, op.From, op.To)
		}
		return cfg.arc(op.Aperture, op.From, op.Center, op.Sweep)
	case gerberstates.OpFlash:
		return cfg.flash(op.Aperture, op.To)
	case gerberstates.OpRegion:
		return cfg.region(op)
	}
	return nil, ErrUnknownOpKind
}
