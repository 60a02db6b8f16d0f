package srblocks

import (
	"testing"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberlexer"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/xy"
)

func TestSRBlock_Init(t *testing.T) {
	var td = []struct {
		input *gerberlexer.StepRepeatDirective
		bad   bool
	}{
		{&gerberlexer.StepRepeatDirective{X: 3, Y: 2, I: 5, J: 2.5}, false},
		{&gerberlexer.StepRepeatDirective{X: 1, Y: 1}, false},
		{&gerberlexer.StepRepeatDirective{X: 0, Y: 2, I: 5, J: 2.5}, true},
		{&gerberlexer.StepRepeatDirective{X: 2, Y: 0, I: 5, J: 2.5}, true},
		{&gerberlexer.StepRepeatDirective{X: 2, Y: 2, I: -5, J: 2.5}, true},
		{nil, true},
	}
	for i, d := range td {
		srb := new(SRBlock)
		err := srb.Init(d.input, 1.0, "SR")
		if (err != nil) != d.bad {
			t.Error("case", i, "unexpected result", err)
		}
	}
}

func TestSRBlock_Offsets(t *testing.T) {
	srb := new(SRBlock)
	if err := srb.Init(&gerberlexer.StepRepeatDirective{X: 3, Y: 2, I: 0.1, J: 0.2}, 25.4, "SRX3Y2I0.1J0.2"); err != nil {
		t.Fatal(err)
	}
	off := srb.Offsets()
	if len(off) != 6 {
		t.Fatal("expected 6 offsets, got", len(off))
	}
	answer := []xy.XY{
		xy.NewXY(0, 0), xy.NewXY(2.54, 0), xy.NewXY(5.08, 0),
		xy.NewXY(0, 5.08), xy.NewXY(2.54, 5.08), xy.NewXY(5.08, 5.08),
	}
	for i := range answer {
		if !off[i].Equals(answer[i], 1e-9) {
			t.Error(i, ":", off[i], "!=", answer[i])
		}
	}
	if srb.IsIdentity() {
		t.Error("3x2 block is not the identity")
	}
	srb.IncNSteps()
	if srb.NSteps() != 1 {
		t.Error("step counter")
	}
	t.Log(srb.String())
}
