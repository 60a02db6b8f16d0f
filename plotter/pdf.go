package plotter

import (
	"errors"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberdatamodel"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

const (
	pdfMargin      = 5.0  // mm
	pdfMinPageSize = 20.0 // mm
)

var ErrPDFClosed = errors.New("pdf document is closed")

/*
	PDFWriter plots the outline of every layer 1:1 on its own page.
	Copper is filled, holes are left white.
*/
type PDFWriter struct {
	pdf    *gofpdf.Fpdf
	w      io.Writer
	stats  Stats
	closed bool
}

func NewPDFWriter(w io.Writer) *PDFWriter {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("copper layers", false)
	pdf.SetCreator("gerber2solid", false)
	return &PDFWriter{pdf: pdf, w: w}
}

func (pw *PDFWriter) Stats() Stats {
	return pw.stats
}

func (pw *PDFWriter) Build(name string, g *gerberdatamodel.Geometry) error {
	if pw.closed {
		return ErrPDFClosed
	}
	k := g.Units.ToMM()
	lo, hi := g.Bounds()
	width := math.Max((hi.X-lo.X)*k+2*pdfMargin, pdfMinPageSize)
	height := math.Max((hi.Y-lo.Y)*k+2*pdfMargin, pdfMinPageSize)
	pw.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: width, Ht: height})

	// pdf y axis points down
	toPage := func(loop []xy.XY) []gofpdf.PointType {
		retVal := make([]gofpdf.PointType, len(loop))
		for i, p := range loop {
			retVal[i] = gofpdf.PointType{
				X: pdfMargin + (p.X-lo.X)*k,
				Y: height - pdfMargin - (p.Y-lo.Y)*k,
			}
		}
		return retVal
	}
	for _, s := range g.Shapes {
		pw.pdf.SetFillColor(184, 115, 51)
		pw.pdf.Polygon(toPage(s.Outer), "F")
		pw.stats.Items++
		pw.pdf.SetFillColor(255, 255, 255)
		for _, h := range s.Holes {
			pw.pdf.Polygon(toPage(h), "F")
			pw.stats.Items++
		}
	}
	pw.pdf.SetFont("Helvetica", "", 6)
	pw.pdf.SetTextColor(0, 0, 0)
	pw.pdf.Text(pdfMargin, pdfMargin*0.6, name)

	pw.stats.Layers++
	pw.stats.Shapes += len(g.Shapes)
	return pw.pdf.Error()
}

// Close writes the document, no layers give one empty page
func (pw *PDFWriter) Close() error {
	if pw.closed {
		return ErrPDFClosed
	}
	pw.closed = true
	if pw.stats.Layers == 0 {
		pw.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: pdfMinPageSize, Ht: pdfMinPageSize})
	}
	return pw.pdf.Output(pw.w)
}
