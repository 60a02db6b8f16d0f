// Package gerberdatamodel folds draw operations into the copper outline and extrudes it.
package gerberdatamodel

import (
	"errors"
	"fmt"
	"math"

	"github.com/akavel/polyclip-go"
	"github.com/golang/glog"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/diag"
	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberstates"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

func toContour(pts []xy.XY) polyclip.Contour {
	retVal := make(polyclip.Contour, len(pts))
	for i, p := range pts {
		retVal[i] = polyclip.Point{X: p.X, Y: p.Y}
	}
	return retVal
}

func fromContour(c polyclip.Contour) []xy.XY {
	retVal := make([]xy.XY, len(c))
	for i, p := range c {
		retVal[i] = xy.NewXY(p.X, p.Y)
	}
	return retVal
}

func overlaps(a, b polyclip.Rectangle) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X && a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y
}

/*
	Builder accumulates the operations in the order of the file:
	dark outlines are added to the composite, clear outlines are cut from it.
*/
type Builder struct {
	cfg       Config
	log       *diag.Log
	composite polyclip.Polygon
	ops       int
	excluded  int
}

func NewBuilder(cfg Config, log *diag.Log) *Builder {
	if log == nil {
		log = diag.NewLog()
	}
	if err := cfg.Validate(); err != nil {
		glog.Warningln(err)
	}
	return &Builder{cfg: cfg, log: log}
}

func (b *Builder) Add(op *gerberstates.DrawOperation) {
	b.ops++
	outlines, err := b.cfg.Outlines(op)
	if err != nil {
		b.exclude(op, "%v", err)
		return
	}
	for _, o := range outlines {
		pts, ok := Sanitize(o.Outer)
		if !ok {
			b.exclude(op, "zero area outline")
			continue
		}
		if op.Kind == gerberstates.OpRegion && SelfIntersects(pts) {
			b.log.Add(diag.KindGeometryDegenerate, op.Line, "self-intersecting region contour")
		}
		if SignedArea(pts) < 0 {
			pts = reversed(pts)
		}
		clip := polyclip.Polygon{toContour(pts)}
		for _, h := range o.Holes {
			if hole, ok := Sanitize(h); ok {
				if SignedArea(hole) > 0 {
					hole = reversed(hole)
				}
				clip = append(clip, toContour(hole))
			}
		}
		b.fold(op, clip)
	}
}

func (b *Builder) exclude(op *gerberstates.DrawOperation, format string, args ...interface{}) {
	b.excluded++
	b.log.Add(diag.KindGeometryDegenerate, op.Line, "%s excluded: %s", op.Kind, fmt.Sprintf(format, args...))
}

// split separates the composite contours whose bounding box overlaps box.
// A contour containing another one has the larger box, so every loop
// enclosing a touched loop is touched too.
func (b *Builder) split(box polyclip.Rectangle) (touched, rest polyclip.Polygon) {
	for _, c := range b.composite {
		if overlaps(c.BoundingBox(), box) {
			touched = append(touched, c)
		} else {
			rest = append(rest, c)
		}
	}
	return touched, rest
}

func (b *Builder) fold(op *gerberstates.DrawOperation, clip polyclip.Polygon) {
	touched, rest := b.split(clip.BoundingBox())
	if op.Polarity == PolTypeClear {
		if len(touched) == 0 {
			// nothing to cut
			if glog.V(3) {
				glog.Infoln("clear outline does not touch the copper, line", op.Line)
			}
			return
		}
		b.combine(op, polyclip.DIFFERENCE, touched, rest, clip)
		return
	}
	if len(touched) == 0 {
		b.composite = append(b.composite, clip...)
		return
	}
	b.combine(op, polyclip.UNION, touched, rest, clip)
}

// clip shifted off any vertex it may share with the composite
func nudged(clip polyclip.Polygon) polyclip.Polygon {
	retVal := clip.Clone()
	for _, c := range retVal {
		for i := range c {
			c[i].X += 7 * pointTolerance
			c[i].Y += 3 * pointTolerance
		}
	}
	return retVal
}

/*
	combine applies the operation to the touched contours and keeps the rest.
	Shared vertices can make the clipper drop or hang on parts of the input,
	so every result is checked; a failed attempt is repeated with the operands
	swapped (union only) and then with the clip nudged. The composite is left
	unchanged if nothing passes.
*/
func (b *Builder) combine(op *gerberstates.DrawOperation, operation polyclip.Op, touched, rest, clip polyclip.Polygon) {
	type attempt struct{ subject, clip polyclip.Polygon }
	moved := nudged(clip)
	attempts := []attempt{{touched, clip}}
	if operation == polyclip.UNION {
		attempts = append(attempts, attempt{clip, touched})
	}
	attempts = append(attempts, attempt{touched, moved})
	if operation == polyclip.UNION {
		attempts = append(attempts, attempt{moved, touched})
	}
	for i, a := range attempts {
		res, err := construct(a.subject, operation, a.clip)
		if err == nil {
			if i > 0 && glog.V(2) {
				glog.Infoln("boolean operation passed at attempt", i+1, "line", op.Line)
			}
			b.composite = append(rest, res...)
			return
		}
		if glog.V(2) {
			glog.Infoln("line", op.Line, "attempt", i+1, ":", err)
		}
	}
	b.exclude(op, "boolean operation failed")
}

var (
	errClipPanic   = errors.New("polygon clipper panicked")
	errClipInvalid = errors.New("boolean operation produced invalid coordinates")
	errClipLost    = errors.New("boolean operation lost a part of the operands")
)

func construct(subject polyclip.Polygon, operation polyclip.Op, clip polyclip.Polygon) (retVal polyclip.Polygon, err error) {
	defer func() {
		if r := recover(); r != nil {
			retVal, err = nil, fmt.Errorf("%w: %v", errClipPanic, r)
		}
	}()
	retVal = subject.Construct(operation, clip)
	for _, c := range retVal {
		if !finite(fromContour(c)) {
			return nil, errClipInvalid
		}
	}
	if !plausible(subject, operation, clip, retVal) {
		return nil, errClipLost
	}
	return retVal, nil
}

// relative to the sum of the operand areas
const areaTolerance = 1e-6

// at most this many sample points are taken from an operand
const maxSamples = 32

/*
	plausible checks a boolean result against its operands: the area must
	stay within the bounds of the operation, points inside the clip must be
	covered by a union and uncovered by a difference, points inside the
	subject must stay covered by a union.
*/
func plausible(subject polyclip.Polygon, operation polyclip.Op, clip, result polyclip.Polygon) bool {
	sl, cl, rl := loopsOf(subject), loopsOf(clip), loopsOf(result)
	aS, aC, aR := loopsArea(sl), loopsArea(cl), loopsArea(rl)
	tol := areaTolerance*(aS+aC) + pointTolerance*pointTolerance
	switch operation {
	case polyclip.UNION:
		if aR < math.Max(aS, aC)-tol || aR > aS+aC+tol {
			return false
		}
		return coversAll(rl, samples(cl), true) && coversAll(rl, samples(sl), true)
	case polyclip.DIFFERENCE:
		if aR > aS+tol || aR < aS-aC-tol {
			return false
		}
		return coversAll(rl, samples(cl), false)
	}
	return true
}

func loopsOf(p polyclip.Polygon) [][]xy.XY {
	retVal := make([][]xy.XY, 0, len(p))
	for _, c := range p {
		if pts, ok := Sanitize(fromContour(c)); ok {
			retVal = append(retVal, pts)
		}
	}
	return retVal
}

// area of the loops under the even-odd rule
func loopsArea(loops [][]xy.XY) float64 {
	var a float64
	shapes := Classify(loops)
	for i := range shapes {
		a += shapes[i].Area()
	}
	return a
}

// InsideEvenOdd reports if p is inside an odd number of the loops
func InsideEvenOdd(p xy.XY, loops [][]xy.XY) bool {
	in := false
	for _, l := range loops {
		if PointInLoop(p, l) {
			in = !in
		}
	}
	return in
}

func coversAll(loops [][]xy.XY, pts []xy.XY, want bool) bool {
	for _, p := range pts {
		if InsideEvenOdd(p, loops) != want {
			return false
		}
	}
	return true
}

/*
	samples returns points just inside the area of the loops, next to the
	midpoints of a few edges of every loop. The inner side of an edge is the
	one the even-odd rule puts inside, so holes need no special care.
*/
func samples(loops [][]xy.XY) []xy.XY {
	retVal := make([]xy.XY, 0, maxSamples)
	perLoop := 4
	for _, l := range loops {
		stride := max(len(l)/perLoop, 1)
		for i := 0; i < len(l); i += stride {
			if len(retVal) >= maxSamples {
				return retVal
			}
			a, b := l[i], l[(i+1)%len(l)]
			d := b.Sub(a)
			length := d.Hypot()
			if length < pointTolerance {
				continue
			}
			eps := math.Max(length*1e-4, pointTolerance*10)
			mid := xy.NewXY((a.X+b.X)/2, (a.Y+b.Y)/2)
			left := xy.NewXY(mid.X-d.Y/length*eps, mid.Y+d.X/length*eps)
			right := xy.NewXY(mid.X+d.Y/length*eps, mid.Y-d.X/length*eps)
			inLeft, inRight := InsideEvenOdd(left, loops), InsideEvenOdd(right, loops)
			switch {
			case inLeft && !inRight:
				retVal = append(retVal, left)
			case inRight && !inLeft:
				retVal = append(retVal, right)
			}
		}
	}
	return retVal
}

// Composite is the current outline set, not classified
func (b *Builder) Composite() polyclip.Polygon {
	return b.composite
}

// number of operations added and of outlines excluded
func (b *Builder) Stats() (ops, excluded int) {
	return b.ops, b.excluded
}

// Geometry classifies the composite into shapes.
// thickness is in mm, the result is expressed in units.
func (b *Builder) Geometry(thickness float64, units Units) *Geometry {
	loops := make([][]xy.XY, 0, len(b.composite))
	for _, c := range b.composite {
		if pts, ok := Sanitize(fromContour(c)); ok {
			loops = append(loops, pts)
		}
	}
	g := &Geometry{Shapes: Classify(loops), Thickness: thickness, Units: UnitsMM}
	if units == UnitsInch {
		g = g.Scaled(1/InchesToMM, UnitsInch)
	}
	return g
}

/*
############################ geometry #####################
*/

// Shape is one outer loop (counter-clockwise) with its holes (clockwise)
type Shape struct {
	Outer []xy.XY
	Holes [][]xy.XY
}

func (s *Shape) Area() float64 {
	a := math.Abs(SignedArea(s.Outer))
	for _, h := range s.Holes {
		a -= math.Abs(SignedArea(h))
	}
	return a
}

type Geometry struct {
	Shapes    []Shape
	Thickness float64
	Units     Units
}

func (g *Geometry) Area() float64 {
	var a float64
	for i := range g.Shapes {
		a += g.Shapes[i].Area()
	}
	return a
}

func (g *Geometry) IsEmpty() bool {
	return len(g.Shapes) == 0
}

// Bounds returns the lower left and the upper right corners
func (g *Geometry) Bounds() (xy.XY, xy.XY) {
	lo := xy.NewXY(math.Inf(1), math.Inf(1))
	hi := xy.NewXY(math.Inf(-1), math.Inf(-1))
	if g.IsEmpty() {
		return xy.XY{}, xy.XY{}
	}
	for _, s := range g.Shapes {
		for _, p := range s.Outer {
			lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
			hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
		}
	}
	return lo, hi
}

// ContainsPoint reports if p is covered by copper
func (g *Geometry) ContainsPoint(p xy.XY) bool {
	for _, s := range g.Shapes {
		if !PointInLoop(p, s.Outer) {
			continue
		}
		inHole := false
		for _, h := range s.Holes {
			if PointInLoop(p, h) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// Scaled returns a copy with all coordinates and the thickness multiplied by k
func (g *Geometry) Scaled(k float64, units Units) *Geometry {
	scale := func(pts []xy.XY) []xy.XY {
		retVal := make([]xy.XY, len(pts))
		for i, p := range pts {
			retVal[i] = xy.NewXY(p.X*k, p.Y*k)
		}
		return retVal
	}
	retVal := &Geometry{Thickness: g.Thickness * k, Units: units, Shapes: make([]Shape, len(g.Shapes))}
	for i, s := range g.Shapes {
		ns := Shape{Outer: scale(s.Outer)}
		for _, h := range s.Holes {
			ns.Holes = append(ns.Holes, scale(h))
		}
		retVal.Shapes[i] = ns
	}
	return retVal
}

// PointInLoop is the even-odd ray casting test
func PointInLoop(p xy.XY, loop []xy.XY) bool {
	in := false
	n := len(loop)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := loop[i], loop[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

// a point strictly inside the loop near its first edge
func interiorPoint(loop []xy.XY) xy.XY {
	a, b := loop[0], loop[1]
	mid := xy.NewXY((a.X+b.X)/2, (a.Y+b.Y)/2)
	d := b.Sub(a)
	l := d.Hypot()
	// left normal points inside a counter-clockwise loop
	nx, ny := -d.Y/l, d.X/l
	if SignedArea(loop) < 0 {
		nx, ny = -nx, -ny
	}
	eps := math.Max(l*1e-4, pointTolerance*10)
	return xy.NewXY(mid.X+nx*eps, mid.Y+ny*eps)
}

/*
	Classify assigns every loop a nesting depth: loops at an even depth are
	outer boundaries, loops at an odd depth are holes of the smallest loop
	containing them.
*/
func Classify(loops [][]xy.XY) []Shape {
	n := len(loops)
	depth := make([]int, n)
	parent := make([]int, n)
	areas := make([]float64, n)
	for i := range loops {
		areas[i] = math.Abs(SignedArea(loops[i]))
	}
	for i := range loops {
		parent[i] = -1
		p := interiorPoint(loops[i])
		for j := range loops {
			if i == j || areas[j] < areas[i] || !PointInLoop(p, loops[j]) {
				continue
			}
			depth[i]++
			if parent[i] < 0 || areas[j] < areas[parent[i]] {
				parent[i] = j
			}
		}
	}
	index := make(map[int]int)
	retVal := make([]Shape, 0)
	for i := range loops {
		if depth[i]%2 != 0 {
			continue
		}
		outer := loops[i]
		if SignedArea(outer) < 0 {
			outer = reversed(outer)
		}
		index[i] = len(retVal)
		retVal = append(retVal, Shape{Outer: outer})
	}
	for i := range loops {
		if depth[i]%2 == 0 {
			continue
		}
		k, ok := index[parent[i]]
		if !ok {
			continue
		}
		hole := loops[i]
		if SignedArea(hole) > 0 {
			hole = reversed(hole)
		}
		retVal[k].Holes = append(retVal[k].Holes, hole)
	}
	return retVal
}
