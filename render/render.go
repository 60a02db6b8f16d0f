// Package render rasterizes the copper outline into a PNG preview.
package render

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sort"

	"github.com/golang/glog"
	"github.com/spf13/viper"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/configurator"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberdatamodel"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/plotter"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

// canvas side limit, pixels
const maxCanvasSize = 16384

var ErrBadResolution = errors.New("render resolution must be positive")

/*
 ************************** Rendering context ****************************
 */
type Render struct {
	// mm per pixel
	Res float64

	// drawing area in mm, margin included
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64

	// magrin is a safety margin around the board, mm
	margin float64
	// mm per geometry unit
	scale float64

	Img          *image.NRGBA
	CopperColor  color.RGBA
	ContourColor color.RGBA
	FrameColor   color.RGBA
	BackColor    color.RGBA

	DrawContours bool

	//statistic
	FilledPixels int
	ContourLines int
}

// NewRender sizes the canvas for g, the settings come from the renderer.* keys
func NewRender(v *viper.Viper, g *gerberdatamodel.Geometry) (*Render, error) {
	rc := new(Render)
	rc.Res = v.GetFloat64(configurator.CfgRenderResolution)
	if rc.Res <= 0 {
		return nil, ErrBadResolution
	}
	rc.DrawContours = v.GetBool(configurator.CfgRenderDrawContours)
	rc.margin = 1.0
	rc.scale = g.Units.ToMM()

	lo, hi := g.Bounds()
	rc.MinX = lo.X*rc.scale - rc.margin
	rc.MinY = lo.Y*rc.scale - rc.margin
	rc.MaxX = hi.X*rc.scale + rc.margin
	rc.MaxY = hi.Y*rc.scale + rc.margin

	w := int(math.Ceil((rc.MaxX - rc.MinX) / rc.Res))
	h := int(math.Ceil((rc.MaxY - rc.MinY) / rc.Res))
	if w > maxCanvasSize || h > maxCanvasSize {
		glog.Warningln("the board is bigger than the canvas, the image will be truncated")
		w, h = min(w, maxCanvasSize), min(h, maxCanvasSize)
	}
	rc.Img = image.NewNRGBA(image.Rect(0, 0, w, h))

	rc.CopperColor = color.RGBA{184, 115, 51, 255}
	rc.ContourColor = color.RGBA{0, 127, 0, 255}
	rc.FrameColor = color.RGBA{127, 127, 127, 255}
	rc.BackColor = color.RGBA{255, 255, 255, 255}
	return rc, nil
}

// pixel column and row of a point in mm, rows grow downwards
func (rc *Render) toPixel(x, y float64) (float64, float64) {
	return (x - rc.MinX) / rc.Res, float64(rc.Img.Rect.Dy()) - (y-rc.MinY)/rc.Res
}

// Draw paints the background, the frame and the copper of g
func (rc *Render) Draw(g *gerberdatamodel.Geometry) {
	b := rc.Img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			rc.Img.SetNRGBA(x, y, color.NRGBA(rc.BackColor))
		}
	}
	rc.DrawFrame()
	for i := range g.Shapes {
		rc.fillShape(&g.Shapes[i])
	}
	if rc.DrawContours {
		for _, s := range g.Shapes {
			rc.drawLoop(s.Outer)
			for _, hl := range s.Holes {
				rc.drawLoop(hl)
			}
		}
	}
	if glog.V(2) {
		glog.Infoln("rendered", rc.FilledPixels, "pixels,", rc.ContourLines, "contour lines")
	}
}

// dashed border of the canvas
func (rc *Render) DrawFrame() {
	x2, y2 := rc.Img.Rect.Dx()-1, rc.Img.Rect.Dy()-1
	rc.dashed(0, 0, x2, 0, 10, 10)
	rc.dashed(x2, 0, x2, y2, 10, 10)
	rc.dashed(x2, y2, 0, y2, 10, 10)
	rc.dashed(0, y2, 0, 0, 10, 10)
}

/*
	fillShape fills the pixels whose centers are inside the outer loop
	and outside the holes (even-odd scanline over all loops)
*/
func (rc *Render) fillShape(s *gerberdatamodel.Shape) {
	loops := make([][][2]float64, 0, 1+len(s.Holes))
	minRow, maxRow := math.Inf(1), math.Inf(-1)
	add := func(loop []xy.XY) {
		px := make([][2]float64, len(loop))
		for i, p := range loop {
			c, r := rc.toPixel(p.X*rc.scale, p.Y*rc.scale)
			px[i] = [2]float64{c, r}
			minRow, maxRow = math.Min(minRow, r), math.Max(maxRow, r)
		}
		loops = append(loops, px)
	}
	add(s.Outer)
	for _, hl := range s.Holes {
		add(hl)
	}
	first := max(int(math.Floor(minRow)), 0)
	last := min(int(math.Ceil(maxRow)), rc.Img.Rect.Dy()-1)
	nodes := make([]float64, 0, 16)
	for row := first; row <= last; row++ {
		y := float64(row) + 0.5
		nodes = nodes[:0]
		for _, loop := range loops {
			j := len(loop) - 1
			for i := range loop {
				yi, yj := loop[i][1], loop[j][1]
				if (yi < y) != (yj < y) {
					nodes = append(nodes, loop[i][0]+(y-yi)/(yj-yi)*(loop[j][0]-loop[i][0]))
				}
				j = i
			}
		}
		sort.Float64s(nodes)
		for k := 0; k+1 < len(nodes); k += 2 {
			from := max(int(math.Ceil(nodes[k]-0.5)), 0)
			to := min(int(math.Floor(nodes[k+1]-0.5)), rc.Img.Rect.Dx()-1)
			for x := from; x <= to; x++ {
				rc.Img.SetNRGBA(x, row, color.NRGBA(rc.CopperColor))
				rc.FilledPixels++
			}
		}
	}
}

func (rc *Render) drawLoop(loop []xy.XY) {
	for i := range loop {
		p, q := loop[i], loop[(i+1)%len(loop)]
		x1, y1 := rc.toPixel(p.X*rc.scale, p.Y*rc.scale)
		x2, y2 := rc.toPixel(q.X*rc.scale, q.Y*rc.scale)
		rc.bresenham(int(x1), int(y1), int(x2), int(y2), func(x, y int) {
			rc.Img.Set(x, y, rc.ContourColor)
		})
		rc.ContourLines++
	}
}

func (rc *Render) dashed(x1, y1, x2, y2, dash, space int) {
	n := 0
	rc.bresenham(x1, y1, x2, y2, func(x, y int) {
		if n%(dash+space) < dash {
			rc.Img.Set(x, y, rc.FrameColor)
		}
		n++
	})
}

// integer line for all octants
func (rc *Render) bresenham(x1, y1, x2, y2 int, setPoint func(x, y int)) {
	dx, dy := abs(x2-x1), -abs(y2-y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	e := dx + dy
	for {
		setPoint(x1, y1)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x1 += sx
		}
		if e2 <= dx {
			e += dx
			y1 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// IsCopper reports if the pixel under the point (mm) is painted as copper
func (rc *Render) IsCopper(x, y float64) bool {
	c, r := rc.toPixel(x, y)
	return rc.Img.NRGBAAt(int(c), int(r)) == color.NRGBA(rc.CopperColor)
}

func (rc *Render) WritePNG(w io.Writer) error {
	return png.Encode(w, rc.Img)
}

func (rc *Render) SaveFile(path string) error {
	return plotter.WriteFile(path, rc.WritePNG)
}
