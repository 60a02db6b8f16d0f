/*
Step and repeat blocks
*/
package srblocks

import (
	"errors"
	"strconv"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberlexer"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

/*
############################## step and repeat blocks #################################
*/
type SRBlock struct {
	srString string
	numX     int
	numY     int
	dX       float64
	dY       float64
	nSteps   int // number of steps in the SRBlock block
}

func (srblock *SRBlock) String() string {

	if srblock == nil {
		return "<nil>"
	}
	return "Step and repeat block:\n" +
		"\tsource string: " + srblock.srString + "\n" +
		"\tcontains " + strconv.Itoa(srblock.numX) + " repeats along X axis and " + strconv.Itoa(srblock.numY) + " repeats along Y axis\n" +
		"\tnumber of steps in each repetition: " + strconv.Itoa(srblock.nSteps) + "\n" +
		"\tdX=" + strconv.FormatFloat(srblock.dX, 'f', 5, 64) +
		", dY=" + strconv.FormatFloat(srblock.dY, 'f', 5, 64) + "\n"
}

func (srblock *SRBlock) NSteps() int {
	return srblock.nSteps
}

func (srblock *SRBlock) IncNSteps() {
	srblock.nSteps++
}

// Init loads the opening %SR parameters, scale converts the steps to mm
func (srblock *SRBlock) Init(dir *gerberlexer.StepRepeatDirective, scale float64, source string) error {
	if dir == nil {
		return errors.New("SRBlock.Init: no parameters")
	}
	if dir.X < 1 {
		return errors.New("SRBlock.Init: X count < 1")
	}
	if dir.Y < 1 {
		return errors.New("SRBlock.Init: Y count < 1")
	}
	if dir.I < 0 || dir.J < 0 {
		return errors.New("SRBlock.Init: negative step")
	}
	srblock.numX = dir.X
	srblock.numY = dir.Y
	srblock.dX = dir.I * scale // take into account inches or millimeters
	srblock.dY = dir.J * scale
	srblock.srString = source
	srblock.nSteps = 0
	return nil
}

// true for %SRX1Y1..% which does not replicate anything
func (srblock *SRBlock) IsIdentity() bool {
	return srblock.numX == 1 && srblock.numY == 1
}

// Offsets lists the displacement of every copy, X varies first
func (srblock *SRBlock) Offsets() []xy.XY {
	retVal := make([]xy.XY, 0, srblock.numX*srblock.numY)
	for j := 0; j < srblock.numY; j++ {
		for i := 0; i < srblock.numX; i++ {
			retVal = append(retVal, xy.NewXY(float64(i)*srblock.dX, float64(j)*srblock.dY))
		}
	}
	return retVal
}
