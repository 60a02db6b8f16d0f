/*
 Output devices for the imported copper layer
*/
package plotter

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberdatamodel"
)

/*
	Plotter renders finished layers, one Build per layer.
	The same method set as the scene builder of the importer.
*/
type Plotter interface {
	Build(name string, g *gerberdatamodel.Geometry) error
}

/*
	Plotter statistic
*/
type Stats struct {
	Layers int
	Shapes int
	Items  int // facets or polygons
}

func (s Stats) String() string {
	return fmt.Sprintf("layers: %d, shapes: %d, items: %d", s.Layers, s.Shapes, s.Items)
}

/*
	WriteFile creates (truncates) the file and writes the output of plot to it
*/
func WriteFile(path string, plot func(w io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err = plot(bw); err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if glog.V(1) {
		glog.Infoln("written", path)
	}
	return nil
}
