package plotter

import (
	"bytes"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberdatamodel"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

func TestMain(m *testing.M) {
	flag.Set("stderrthreshold", "ERROR")
	flag.Set("logtostderr", "true")
	flag.Parse()
	os.Exit(m.Run())
}

func square(x0, y0, x1, y1 float64) []xy.XY {
	return []xy.XY{xy.NewXY(x0, y0), xy.NewXY(x1, y0), xy.NewXY(x1, y1), xy.NewXY(x0, y1)}
}

func reversed(pts []xy.XY) []xy.XY {
	retVal := make([]xy.XY, len(pts))
	for i := range pts {
		retVal[len(pts)-1-i] = pts[i]
	}
	return retVal
}

// 4x4 square with a 2x2 hole
func frame() *gerberdatamodel.Geometry {
	return &gerberdatamodel.Geometry{
		Shapes: []gerberdatamodel.Shape{{
			Outer: square(0, 0, 4, 4),
			Holes: [][]xy.XY{reversed(square(1, 1, 3, 3))},
		}},
		Thickness: 0.5,
		Units:     UnitsMM,
	}
}

func TestSTLWriter(t *testing.T) {
	var buf bytes.Buffer
	sw := NewSTLWriter(&buf)
	var p Plotter = sw
	if err := p.Build("top copper", frame()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "solid top_copper\n") || !strings.HasSuffix(out, "endsolid top_copper\n") {
		t.Error("solid header/footer:", out[:40])
	}
	facets := strings.Count(out, "facet normal")
	if facets != 32 || sw.Stats().Items != 32 {
		t.Error("facets", facets, sw.Stats())
	}
	if strings.Count(out, "vertex") != 3*facets || strings.Count(out, "endloop") != facets {
		t.Error("malformed facets")
	}
	// top cap normals point up
	if !strings.Contains(out, "facet normal 0.000000e+00 0.000000e+00 1.000000e+00") {
		t.Error("no upward normal")
	}
}

func TestSTLWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	g := &gerberdatamodel.Geometry{Thickness: 0.035, Units: UnitsMM}
	if err := NewSTLWriter(&buf).Build("", g); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "solid copper\nendsolid copper\n" {
		t.Error(buf.String())
	}
	g.Thickness = 0
	if err := NewSTLWriter(&buf).Build("x", g); err == nil {
		t.Error("zero thickness accepted")
	}
}

func TestPDFWriter(t *testing.T) {
	var buf bytes.Buffer
	pw := NewPDFWriter(&buf)
	if err := pw.Build("top", frame()); err != nil {
		t.Fatal(err)
	}
	inch := frame().Scaled(1/InchesToMM, UnitsInch)
	if err := pw.Build("top inch", inch); err != nil {
		t.Fatal(err)
	}
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("not a pdf")
	}
	st := pw.Stats()
	if st.Layers != 2 || st.Shapes != 2 || st.Items != 4 {
		t.Error(st)
	}
	if err := pw.Build("late", frame()); err != ErrPDFClosed {
		t.Error("build after close:", err)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.stl")
	err := WriteFile(path, func(w io.Writer) error {
		return NewSTLWriter(w).Build("f", frame())
	})
	if err != nil {
		t.Fatal(err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(content, []byte("solid f\n")) {
		t.Error(string(content[:20]))
	}
	if err := WriteFile(filepath.Join(t.TempDir(), "no", "such", "dir"), func(io.Writer) error { return nil }); err == nil {
		t.Error("missing directory accepted")
	}
}
