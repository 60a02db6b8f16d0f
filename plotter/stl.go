package plotter

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberdatamodel"
)

// STLWriter writes every layer as an ASCII STL solid
type STLWriter struct {
	w     *bufio.Writer
	stats Stats
}

func NewSTLWriter(w io.Writer) *STLWriter {
	return &STLWriter{w: bufio.NewWriter(w)}
}

func (sw *STLWriter) Stats() Stats {
	return sw.stats
}

// Build extrudes the layer and writes the mesh
func (sw *STLWriter) Build(name string, g *gerberdatamodel.Geometry) error {
	m, err := gerberdatamodel.Extrude(g)
	if err != nil {
		return err
	}
	sw.stats.Shapes += len(g.Shapes)
	return sw.WriteMesh(name, m)
}

func solidName(name string) string {
	retVal := strings.Join(strings.Fields(name), "_")
	if retVal == "" {
		retVal = "copper"
	}
	return retVal
}

func (sw *STLWriter) vector(prefix string, v mgl64.Vec3) {
	sw.w.WriteString(prefix)
	for i := 0; i < 3; i++ {
		if v[i] == 0 {
			v[i] = 0 // no negative zero
		}
		sw.w.WriteByte(' ')
		sw.w.WriteString(strconv.FormatFloat(v[i], 'e', 6, 64))
	}
	sw.w.WriteByte('\n')
}

func (sw *STLWriter) WriteMesh(name string, m *gerberdatamodel.Mesh) error {
	name = solidName(name)
	sw.w.WriteString("solid " + name + "\n")
	for t, tr := range m.Triangles {
		sw.vector("  facet normal", m.Normal(t))
		sw.w.WriteString("    outer loop\n")
		for _, vi := range tr {
			sw.vector("      vertex", m.Vertices[vi])
		}
		sw.w.WriteString("    endloop\n")
		sw.w.WriteString("  endfacet\n")
	}
	sw.w.WriteString("endsolid " + name + "\n")
	sw.stats.Layers++
	sw.stats.Items += len(m.Triangles)
	return sw.w.Flush()
}
