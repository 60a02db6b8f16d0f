package gerberdatamodel

import (
	"errors"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

var ErrTriangulation = errors.New("polygon can not be triangulated")

// Mesh is a closed triangle mesh. Triangles are counter-clockwise seen from outside.
type Mesh struct {
	Vertices  []mgl64.Vec3
	Triangles [][3]int
}

// Normal returns the unit normal of the triangle t
func (m *Mesh) Normal(t int) mgl64.Vec3 {
	tr := m.Triangles[t]
	a, b, c := m.Vertices[tr[0]], m.Vertices[tr[1]], m.Vertices[tr[2]]
	n := b.Sub(a).Cross(c.Sub(a))
	if l := n.Len(); l > 0 {
		return n.Mul(1 / l)
	}
	return n
}

// Volume by the divergence theorem, positive for an outward oriented closed mesh
func (m *Mesh) Volume() float64 {
	var v float64
	for _, tr := range m.Triangles {
		a, b, c := m.Vertices[tr[0]], m.Vertices[tr[1]], m.Vertices[tr[2]]
		v += a.Dot(b.Cross(c))
	}
	return v / 6
}

// polygon vertex referencing a mesh vertex
type ringVertex struct {
	p   xy.XY
	idx int // bottom vertex index, the top one is idx+1
}

/*
	Extrude lifts every shape of g to a solid between z=0 and z=g.Thickness.
	Holes are bridged into the outer loop and the caps are ear clipped.
*/
func Extrude(g *Geometry) (*Mesh, error) {
	m := new(Mesh)
	if g.Thickness <= 0 {
		return nil, errors.New("extrusion thickness must be positive")
	}
	for si := range g.Shapes {
		if err := m.addShape(&g.Shapes[si], g.Thickness); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Mesh) addLoop(loop []xy.XY, h float64) []ringVertex {
	ring := make([]ringVertex, len(loop))
	for i, p := range loop {
		ring[i] = ringVertex{p: p, idx: len(m.Vertices)}
		m.Vertices = append(m.Vertices, mgl64.Vec3{p.X, p.Y, 0}, mgl64.Vec3{p.X, p.Y, h})
	}
	// side walls, outer loops are counter-clockwise and holes clockwise
	for i := range ring {
		b0, b1 := ring[i].idx, ring[(i+1)%len(ring)].idx
		t0, t1 := b0+1, b1+1
		m.Triangles = append(m.Triangles, [3]int{b0, b1, t1}, [3]int{b0, t1, t0})
	}
	return ring
}

func (m *Mesh) addShape(s *Shape, h float64) error {
	outer := m.addLoop(s.Outer, h)
	holes := make([][]ringVertex, 0, len(s.Holes))
	for _, hl := range s.Holes {
		holes = append(holes, m.addLoop(hl, h))
	}
	poly := bridgeHoles(outer, holes)
	tris, err := earClip(poly)
	if err != nil {
		return err
	}
	for _, t := range tris {
		a, b, c := poly[t[0]].idx, poly[t[1]].idx, poly[t[2]].idx
		m.Triangles = append(m.Triangles, [3]int{a + 1, b + 1, c + 1}, [3]int{a, c, b})
	}
	return nil
}

// joins every hole to the outer loop with a pair of coincident edges
func bridgeHoles(outer []ringVertex, holes [][]ringVertex) []ringVertex {
	// rightmost holes first
	rightmost := func(ring []ringVertex) int {
		k := 0
		for i := range ring {
			if ring[i].p.X > ring[k].p.X {
				k = i
			}
		}
		return k
	}
	sort.Slice(holes, func(i, j int) bool {
		return holes[i][rightmost(holes[i])].p.X > holes[j][rightmost(holes[j])].p.X
	})
	poly := outer
	for _, hole := range holes {
		hm := rightmost(hole)
		pi := bridgeVertex(poly, hole[hm].p)
		merged := make([]ringVertex, 0, len(poly)+len(hole)+2)
		merged = append(merged, poly[:pi+1]...)
		for k := 0; k <= len(hole); k++ {
			merged = append(merged, hole[(hm+k)%len(hole)])
		}
		merged = append(merged, poly[pi])
		merged = append(merged, poly[pi+1:]...)
		poly = merged
	}
	return poly
}

// finds a vertex of poly visible from m (hole vertex) along the +X ray
func bridgeVertex(poly []ringVertex, m xy.XY) int {
	n := len(poly)
	best := -1
	bestX := math.Inf(1)
	var hit xy.XY
	for i := 0; i < n; i++ {
		a, b := poly[i].p, poly[(i+1)%n].p
		if (a.Y > m.Y) == (b.Y > m.Y) {
			continue
		}
		x := a.X + (m.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
		if x < m.X || x >= bestX {
			continue
		}
		bestX = x
		hit = xy.NewXY(x, m.Y)
		if a.X > b.X {
			best = i
		} else {
			best = (i + 1) % n
		}
	}
	if best < 0 {
		// fallback: the nearest vertex
		d := math.Inf(1)
		for i := range poly {
			if dd := poly[i].p.Distance(m); dd < d {
				d, best = dd, i
			}
		}
		return best
	}
	p := poly[best].p
	if p.Equals(hit, pointTolerance) {
		return best
	}
	// reflex vertices inside the triangle (m, hit, p) hide p, take the one with the smallest angle
	angle := math.Inf(1)
	candidate := best
	for i := 0; i < n; i++ {
		v := poly[i].p
		if i == best || !pointInTriangle(v, m, hit, p) && !pointInTriangle(v, m, p, hit) {
			continue
		}
		if !isReflex(poly, i) {
			continue
		}
		d := v.Sub(m)
		a := math.Abs(math.Atan2(d.Y, d.X))
		if a < angle || (a == angle && v.Distance(m) < poly[candidate].p.Distance(m)) {
			angle = a
			candidate = i
		}
	}
	return candidate
}

func isReflex(poly []ringVertex, i int) bool {
	n := len(poly)
	return cross(poly[(i+n-1)%n].p, poly[i].p, poly[(i+1)%n].p) < 0
}

// counter-clockwise triangle abc
func pointInTriangle(p, a, b, c xy.XY) bool {
	return cross(a, b, p) >= 0 && cross(b, c, p) >= 0 && cross(c, a, p) >= 0
}

// earClip triangulates a counter-clockwise polygon, bridge vertices may repeat
func earClip(poly []ringVertex) ([][3]int, error) {
	n := len(poly)
	if n < 3 {
		return nil, ErrTriangulation
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	retVal := make([][3]int, 0, n-2)
	for guard := 0; len(idx) > 3; {
		found := false
		k := len(idx)
		for i := 0; i < k; i++ {
			a, b, c := idx[(i+k-1)%k], idx[i], idx[(i+1)%k]
			if !isEar(poly, idx, a, b, c) {
				continue
			}
			retVal = append(retVal, [3]int{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			found = true
			break
		}
		if !found {
			// numerical dead end: cut the most convex vertex
			guard++
			if guard > n {
				return nil, ErrTriangulation
			}
			i := mostConvex(poly, idx)
			k := len(idx)
			retVal = append(retVal, [3]int{idx[(i+k-1)%k], idx[i], idx[(i+1)%k]})
			idx = append(idx[:i], idx[i+1:]...)
		}
	}
	if cross(poly[idx[0]].p, poly[idx[1]].p, poly[idx[2]].p) > 0 {
		retVal = append(retVal, [3]int{idx[0], idx[1], idx[2]})
	}
	return retVal, nil
}

func isEar(poly []ringVertex, idx []int, a, b, c int) bool {
	pa, pb, pc := poly[a].p, poly[b].p, poly[c].p
	if cross(pa, pb, pc) <= 0 {
		return false
	}
	for _, j := range idx {
		if j == a || j == b || j == c {
			continue
		}
		p := poly[j].p
		if p.Equals(pa, pointTolerance) || p.Equals(pb, pointTolerance) || p.Equals(pc, pointTolerance) {
			continue
		}
		if pointInTriangle(p, pa, pb, pc) {
			return false
		}
	}
	return true
}

func mostConvex(poly []ringVertex, idx []int) int {
	best, bestCross := 0, math.Inf(-1)
	k := len(idx)
	for i := range idx {
		c := cross(poly[idx[(i+k-1)%k]].p, poly[idx[i]].p, poly[idx[(i+1)%k]].p)
		if c > bestCross {
			best, bestCross = i, c
		}
	}
	return best
}
