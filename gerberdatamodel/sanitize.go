package gerberdatamodel

import (
	"math"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

// coordinates closer than this are the same point (mm)
const pointTolerance = 1e-7

const float64EqualityThreshold = 1e-12

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= float64EqualityThreshold
}

// SignedArea is positive for counter-clockwise loops
func SignedArea(pts []xy.XY) float64 {
	var a float64
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a / 2
}

func reversed(pts []xy.XY) []xy.XY {
	retVal := make([]xy.XY, len(pts))
	for i := range pts {
		retVal[len(pts)-1-i] = pts[i]
	}
	return retVal
}

func finite(pts []xy.XY) bool {
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return false
		}
	}
	return true
}

/*
	Sanitize collapses repeated consecutive vertices and the closing vertex,
	removes spikes (A B A) and returns false for loops with less than three
	vertices or zero area. The orientation is kept.
	Sanitize(Sanitize(x)) == Sanitize(x).
*/
func Sanitize(pts []xy.XY) ([]xy.XY, bool) {
	if !finite(pts) {
		return nil, false
	}
	retVal := make([]xy.XY, 0, len(pts))
	for _, p := range pts {
		if n := len(retVal); n > 0 && retVal[n-1].Equals(p, pointTolerance) {
			continue
		}
		retVal = append(retVal, p)
	}
	for changed := true; changed && len(retVal) >= 3; {
		changed = false
		n := len(retVal)
		if retVal[n-1].Equals(retVal[0], pointTolerance) {
			retVal = retVal[:n-1]
			changed = true
			continue
		}
		for i := 0; i < n; i++ {
			prev, next := retVal[(i+n-1)%n], retVal[(i+1)%n]
			if prev.Equals(next, pointTolerance) {
				// spike: drop the tip and one of the doubled vertices
				retVal = removeIndices(retVal, i, (i+1)%n)
				changed = true
				break
			}
		}
	}
	if len(retVal) < 3 || math.Abs(SignedArea(retVal)) < pointTolerance*pointTolerance {
		return nil, false
	}
	return retVal, true
}

func removeIndices(pts []xy.XY, a, b int) []xy.XY {
	retVal := make([]xy.XY, 0, len(pts))
	for i := range pts {
		if i != a && i != b {
			retVal = append(retVal, pts[i])
		}
	}
	return retVal
}

type Edge struct {
	// the Edge is directional!
	point0 xy.XY
	point1 xy.XY
}

// Intersects reports if two edges have a common point
func Intersects(e0, e1 Edge) bool {
	d1 := cross(e1.point0, e1.point1, e0.point0)
	d2 := cross(e1.point0, e1.point1, e0.point1)
	d3 := cross(e0.point0, e0.point1, e1.point0)
	d4 := cross(e0.point0, e0.point1, e1.point1)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (almostEqual(d1, 0) && onSegment(e1, e0.point0)) ||
		(almostEqual(d2, 0) && onSegment(e1, e0.point1)) ||
		(almostEqual(d3, 0) && onSegment(e0, e1.point0)) ||
		(almostEqual(d4, 0) && onSegment(e0, e1.point1))
}

// p is collinear with e
func onSegment(e Edge, p xy.XY) bool {
	return p.X >= math.Min(e.point0.X, e.point1.X) && p.X <= math.Max(e.point0.X, e.point1.X) &&
		p.Y >= math.Min(e.point0.Y, e.point1.Y) && p.Y <= math.Max(e.point0.Y, e.point1.Y)
}

// SelfIntersects reports if two non adjacent edges of the loop touch
func SelfIntersects(pts []xy.XY) bool {
	n := len(pts)
	if n < 4 {
		return false
	}
	for i := 0; i < n; i++ {
		e0 := Edge{pts[i], pts[(i+1)%n]}
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if Intersects(e0, Edge{pts[j], pts[(j+1)%n]}) {
				return true
			}
		}
	}
	return false
}
