package regions

import (
	"math"
	"testing"

	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

func TestRegion_IsRegionOpened(t *testing.T) {
	regPtr := NewRegion(100)
	a, err := regPtr.IsRegionOpened()
	if err != nil || !a {
		t.Fatal("new region must be opened")
	}
	regPtr.Close(120)
	a, err = regPtr.IsRegionOpened()
	if err != nil {
		t.Fatal("unexpected error")
	}
	if a == true {
		t.Fatal("region is not opened")
	}
	t.Log("all OK")

	regPtr = nil
	a, err = regPtr.IsRegionOpened()
	if err == nil {
		t.Fatal("must be an error")
	}
	if a == true {
		t.Fatal("region is not opened")
	}
	if regPtr.Close(1) == nil {
		t.Fatal("closing nil region must fail")
	}
	t.Log("all OK")
}

func TestRegion_Contours(t *testing.T) {
	r := NewRegion(1)
	r.MoveTo(xy.NewXY(5, 5)) // replaced by the next move
	r.MoveTo(xy.NewXY(0, 0))
	r.LineTo(xy.NewXY(0, 0), xy.NewXY(1, 0))
	r.LineTo(xy.NewXY(1, 0), xy.NewXY(1, 1))
	r.ArcTo(xy.NewXY(1, 1), xy.NewXY(0, 0), xy.NewXY(0.5, 0.5), IPModeCCwC, math.Pi)
	r.MoveTo(xy.NewXY(3, 3))
	r.LineTo(xy.NewXY(3, 3), xy.NewXY(4, 3))

	cs := r.Contours()
	if len(cs) != 2 {
		t.Fatal("expected 2 contours, got", len(cs))
	}
	if len(cs[0].Segments) != 3 || cs[0].Segments[2].Mode != IPModeCCwC {
		t.Fatal("bad first contour", cs[0])
	}
	if !cs[0].IsClosed(1e-9) || cs[1].IsClosed(1e-9) {
		t.Fatal("bad closure detection")
	}
	if r.GetNumXY() != 6 {
		t.Error("vertex count", r.GetNumXY())
	}

	moved := r.Translate(xy.NewXY(10, -1))
	mc := moved.Contours()
	if !mc[0].Start.Equals(xy.NewXY(10, -1), 1e-12) || !mc[0].Segments[2].Center.Equals(xy.NewXY(10.5, -0.5), 1e-12) {
		t.Fatal("bad translation", mc[0])
	}
	if !cs[0].Start.Equals(xy.NewXY(0, 0), 1e-12) {
		t.Fatal("translation must not modify the source")
	}
	t.Log(r.String())
}

func TestRegion_ImplicitStart(t *testing.T) {
	r := NewRegion(1)
	r.LineTo(xy.NewXY(2, 2), xy.NewXY(3, 2))
	cs := r.Contours()
	if len(cs) != 1 || !cs[0].Start.Equals(xy.NewXY(2, 2), 1e-12) {
		t.Fatal("contour must start at the pen position", cs)
	}
}
