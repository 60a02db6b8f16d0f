package regions

import (
	"errors"
	"strconv"

	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

var ErrNilRegion = errors.New("bad region referenced (by nil ptr)")

// Segment is one edge of a contour. Center and Sweep are used by arcs only,
// Sweep is signed (radians, counter-clockwise positive).
type Segment struct {
	To     xy.XY
	Center xy.XY
	Mode   IPmode
	Sweep  float64
}

type Contour struct {
	Start    xy.XY
	Segments []Segment
}

func (c *Contour) IsClosed(tolerance float64) bool {
	if len(c.Segments) == 0 {
		return false
	}
	return c.Segments[len(c.Segments)-1].To.Equals(c.Start, tolerance)
}

/*####################  regions ##################################
 */
type Region struct {
	contours        []Contour
	numberOfXY      int // number of entries
	G36StringNumber int // number of the string with G36 cmd
	G37StringNumber int // number of the string with G37 cmd
	Polarity        PolType
}

func (region *Region) String() string {

	xyText := "<nil>"
	if region == nil {
		return xyText
	}

	if len(region.contours) > 0 {
		xyText = region.contours[0].Start.String()
	}
	return "Region:\n" +
		"\t\tstart point: " + xyText + "\n" +
		"\t\tcontains " + strconv.Itoa(len(region.contours)) + " contours, " +
		strconv.Itoa(region.numberOfXY) + " vertices\n" +
		"\t\tG36 command is at line " + strconv.Itoa(region.G36StringNumber) + "\n" +
		"\t\tG37 command is at line " + strconv.Itoa(region.G37StringNumber)
}

// creates and initialises a region object
func NewRegion(strNum int) *Region {
	retVal := new(Region)
	retVal.G36StringNumber = strNum
	retVal.numberOfXY = 0
	retVal.G37StringNumber = -1
	return retVal
}

// closes the region
func (region *Region) Close(strnum int) error {
	if region == nil {
		return errors.New("can not close the contour referenced by null pointer")
	}
	region.G37StringNumber = strnum
	return nil
}

// MoveTo starts a new contour. An empty contour in progress is replaced.
func (region *Region) MoveTo(p xy.XY) {
	if n := len(region.contours); n > 0 && len(region.contours[n-1].Segments) == 0 {
		region.contours[n-1].Start = p
		return
	}
	region.contours = append(region.contours, Contour{Start: p})
	region.numberOfXY++
}

// the contour is started implicitly at from if there is none
func (region *Region) current(from xy.XY) *Contour {
	if len(region.contours) == 0 {
		region.MoveTo(from)
	}
	return &region.contours[len(region.contours)-1]
}

func (region *Region) LineTo(from, to xy.XY) {
	c := region.current(from)
	c.Segments = append(c.Segments, Segment{To: to, Mode: IPModeLinear})
	region.numberOfXY++
}

func (region *Region) ArcTo(from, to, center xy.XY, mode IPmode, sweep float64) {
	c := region.current(from)
	c.Segments = append(c.Segments, Segment{To: to, Center: center, Mode: mode, Sweep: sweep})
	region.numberOfXY++
}

// contours having at least one segment
func (region *Region) Contours() []Contour {
	retVal := make([]Contour, 0, len(region.contours))
	for _, c := range region.contours {
		if len(c.Segments) > 0 {
			retVal = append(retVal, c)
		}
	}
	return retVal
}

// returns the number of coordinate entries of the contour
func (region *Region) GetNumXY() int {
	return region.numberOfXY
}

// returns true if region is opened
func (region *Region) IsRegionOpened() (bool, error) {
	if region == nil {
		return false, ErrNilRegion
	}
	if region.G37StringNumber == -1 {
		return true, nil
	} else {
		return false, nil
	}
}

// Translate returns a copy of the region shifted by d
func (region *Region) Translate(d xy.XY) *Region {
	retVal := &Region{
		contours:        make([]Contour, len(region.contours)),
		numberOfXY:      region.numberOfXY,
		G36StringNumber: region.G36StringNumber,
		G37StringNumber: region.G37StringNumber,
		Polarity:        region.Polarity,
	}
	for i, c := range region.contours {
		nc := Contour{Start: c.Start.Add(d), Segments: make([]Segment, len(c.Segments))}
		for j, s := range c.Segments {
			nc.Segments[j] = Segment{To: s.To.Add(d), Center: s.Center.Add(d), Mode: s.Mode, Sweep: s.Sweep}
		}
		retVal.contours[i] = nc
	}
	return retVal
}
